package repo

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	return conn
}

func TestBaseDB_BindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)
	if withCtx.Statement == nil || withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through")
	}

	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseBound(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	if _, changed := base.Bound(nil); changed {
		t.Fatalf("nil tx should keep the connection")
	}
	if _, changed := base.Bound(db); changed {
		t.Fatalf("same connection should not rebind")
	}

	tx := db.Session(&gorm.Session{})
	bound, changed := base.Bound(tx)
	if !changed {
		t.Fatalf("expected rebinding to tx")
	}
	if bound.DB(nil) != tx {
		t.Fatalf("expected bound base to use tx")
	}
}
