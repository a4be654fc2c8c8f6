package debuglog

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestLog_AddKeepsOrderAndSource(t *testing.T) {
	l := New(SourceContent, nil)
	l.Add("a", nil)
	l.Add("b", map[string]any{"count": 2})
	l.Add("c", errors.New("boom"))

	got := l.Entries()
	if len(got) != 3 {
		t.Fatalf("entries: got %d, want 3", len(got))
	}
	for i, step := range []string{"a", "b", "c"} {
		if got[i].Step != step {
			t.Errorf("entry[%d].Step: got %q, want %q", i, got[i].Step, step)
		}
		if got[i].Source != SourceContent {
			t.Errorf("entry[%d].Source: got %q, want %q", i, got[i].Source, SourceContent)
		}
	}
	if got[2].Meta != "boom" {
		t.Errorf("error meta: got %v, want %q", got[2].Meta, "boom")
	}
}

func TestLog_EntriesIsACopy(t *testing.T) {
	l := New(SourceBackground, nil)
	l.Add("one", nil)
	snap := l.Entries()
	l.Add("two", nil)
	if len(snap) != 1 {
		t.Errorf("snapshot grew: got %d, want 1", len(snap))
	}
	if l.Len() != 2 {
		t.Errorf("Len: got %d, want 2", l.Len())
	}
}

func TestConcat_PreservesCausalOrder(t *testing.T) {
	before := New(SourceContent, nil)
	before.Add("phase-1-start", nil)
	before.Add("navigating-to-skills", nil)

	after := New(SourceContent, nil)
	after.Add("phase-2-start", nil)

	got := Concat(before.Entries(), after.Entries())
	want := []string{"phase-1-start", "navigating-to-skills", "phase-2-start"}
	if len(got) != len(want) {
		t.Fatalf("len: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Step != want[i] {
			t.Errorf("[%d]: got %q, want %q", i, got[i].Step, want[i])
		}
	}
}

func TestConcat_EmptyIsNotNil(t *testing.T) {
	got := Concat()
	if got == nil {
		t.Fatal("Concat(): got nil, want empty slice")
	}
	data, _ := json.Marshal(got)
	if string(data) != "[]" {
		t.Errorf("json: got %s, want []", data)
	}
}

func TestNormalize_Unmarshalable(t *testing.T) {
	got := normalize(map[string]any{"fn": func() {}})
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("normalize: got %T, want map", got)
	}
	if _, err := json.Marshal(m); err != nil {
		t.Errorf("normalized meta does not marshal: %v", err)
	}
}
