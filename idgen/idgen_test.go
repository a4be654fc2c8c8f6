package idgen

import (
	"strings"
	"testing"
)

func TestNanoID(t *testing.T) {
	gen := NanoID(12)
	seen := make(map[string]struct{}, 500)
	for i := 0; i < 500; i++ {
		id := gen()
		if len(id) != 12 {
			t.Fatalf("length: got %d, want 12", len(id))
		}
		for _, c := range id {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')) {
				t.Fatalf("unexpected character %q in %q", c, id)
			}
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate at iteration %d: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	a, b := gen(), gen()
	if len(a) != 36 {
		t.Fatalf("length: got %d, want 36", len(a))
	}
	if a[14] != '7' {
		t.Errorf("version nibble: got %q, want 7", a[14])
	}
	if a >= b {
		t.Errorf("not time-sortable: %s >= %s", a, b)
	}
}

func TestRequestIDs(t *testing.T) {
	id := RequestIDs()()
	if !strings.HasPrefix(id, "req_") {
		t.Fatalf("prefix: got %q", id)
	}
	got, err := ParseRequestID(id)
	if err != nil {
		t.Fatalf("ParseRequestID(%q): %v", id, err)
	}
	if got != id {
		t.Errorf("round trip: got %q, want %q", got, id)
	}
}

func TestParseRequestID_Rejects(t *testing.T) {
	for _, s := range []string{"", "abc", "req_not-a-uuid", "0190a8f0-0000-7000-8000-000000000000"} {
		if _, err := ParseRequestID(s); err == nil {
			t.Errorf("ParseRequestID(%q): expected error", s)
		}
	}
}
