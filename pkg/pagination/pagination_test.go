package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{-1: DefaultLimit, 0: DefaultLimit, 5: 5, MaxLimit: MaxLimit, MaxLimit + 1: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("expected buffered limit 11, got %d", got)
	}
}

func TestParamsFromQuery(t *testing.T) {
	p := ParamsFromQuery("abc", " cur ")
	if p.Limit != DefaultLimit || p.Cursor != "cur" {
		t.Fatalf("unexpected params %+v", p)
	}
	if p := ParamsFromQuery("7", ""); p.Limit != 7 {
		t.Fatalf("expected limit 7, got %d", p.Limit)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestParseCursorErrors(t *testing.T) {
	if c, err := ParseCursor("  "); c != nil || err != nil {
		t.Fatalf("expected nil cursor for blank input, got %v %v", c, err)
	}
	for _, bad := range []string{"!!!", "bm9waXBl", "bm90LWEtdGltZXxhYmM"} {
		if _, err := ParseCursor(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
