package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if NormalizeLimit(0) != DefaultLimit || NormalizeLimit(-3) != DefaultLimit {
		t.Fatal("non-positive limits should normalize to default")
	}
	if NormalizeLimit(1000) != MaxLimit {
		t.Fatal("oversized limits should clamp to max")
	}
	if NormalizeLimit(10) != 10 {
		t.Fatal("in-range limits pass through")
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatal("buffer adds one")
	}
}

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{CreatedAt: time.Now().UTC().Truncate(time.Microsecond), ID: uuid.New()}
	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, want)
	}
}

func TestParseCursorEmptyAndInvalid(t *testing.T) {
	if c, err := ParseCursor("  "); err != nil || c != nil {
		t.Fatal("blank cursor should be nil without error")
	}
	if _, err := ParseCursor("!!!not-base64!!!"); err == nil {
		t.Fatal("invalid encoding should fail")
	}
}
