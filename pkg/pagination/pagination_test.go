package pagination

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorRoundTripIsQuerySafe(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.UTC), ID: uuid.New()}

	encoded := EncodeCursor(in)
	if encoded != url.QueryEscape(encoded) {
		t.Fatalf("cursor %q needs query escaping", encoded)
	}

	out, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !in.CreatedAt.Equal(out.CreatedAt) || in.ID != out.ID {
		t.Fatalf("round trip mismatch: %+v vs %+v", in, out)
	}
}

func TestParseCursorEmptyMeansFirstPage(t *testing.T) {
	cursor, err := ParseCursor("  ")
	if err != nil || cursor != nil {
		t.Fatalf("expected nil cursor, got %+v err=%v", cursor, err)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, value := range []string{"%%%", "bm8tc2VwYXJhdG9y", "bm90LWEtdGltZXxpZA"} {
		if _, err := ParseCursor(value); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("ParseCursor(%q): expected ErrInvalidCursor, got %v", value, err)
		}
	}
}

func TestNormalizeLimit(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{MaxLimit + 50, MaxLimit},
		{7, 7},
	}
	for _, tc := range cases {
		if got := NormalizeLimit(tc.in); got != tc.want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if got := LimitWithBuffer(7); got != 8 {
		t.Fatalf("LimitWithBuffer(7) = %d, want 8", got)
	}
}

type row struct {
	at time.Time
	id uuid.UUID
}

func TestTrimReturnsCursorOnlyWhenMoreRowsExist(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]row, 4)
	for i := range rows {
		rows[i] = row{at: base.Add(-time.Duration(i) * time.Hour), id: uuid.New()}
	}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Trim(rows, 3, key)
	if len(page) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(page))
	}
	cursor, err := ParseCursor(next)
	if err != nil {
		t.Fatalf("parse next: %v", err)
	}
	if cursor.ID != rows[2].id {
		t.Fatalf("cursor should point at the last returned row")
	}

	page, next = Trim(rows[:3], 3, key)
	if len(page) != 3 || next != "" {
		t.Fatalf("expected full last page without cursor, got %d rows next=%q", len(page), next)
	}
}
