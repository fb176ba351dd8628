package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is embedded by the gorm repositories. It carries either the pool or
// an open transaction.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bound reports whether tx would change the connection; a nil tx keeps the
// current one.
func (b Base) Bound(tx *gorm.DB) (Base, bool) {
	if tx == nil || tx == b.db {
		return b, false
	}
	return Base{db: tx}, true
}
