package profile

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/profilewatch/debuglog"
)

func names(skills []Skill) []string {
	out := make([]string, len(skills))
	for i, s := range skills {
		out[i] = s.Name
	}
	return out
}

func TestDedupSkills(t *testing.T) {
	n := 7
	in := []Skill{
		{Name: "Go", Endorsements: &n},
		{Name: "Distributed Systems"},
		{Name: "Go"},
		{Name: ""},
	}

	got := DedupSkills(in, 15)
	if diff := cmp.Diff([]string{"Go", "Distributed Systems"}, names(got)); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if got[0].Endorsements == nil || *got[0].Endorsements != 7 {
		t.Error("first occurrence did not win")
	}
	if len(in) != 4 {
		t.Error("input modified")
	}
}

func TestDedupSkills_Cap(t *testing.T) {
	var in []Skill
	for _, n := range []string{"a", "b", "c", "d"} {
		in = append(in, Skill{Name: n})
	}
	if got := DedupSkills(in, 2); len(got) != 2 {
		t.Errorf("cap 2: got %d", len(got))
	}
	if got := DedupSkills(in, 0); len(got) != 4 {
		t.Errorf("no cap: got %d", len(got))
	}
	if got := DedupSkills(nil, 5); got == nil || len(got) != 0 {
		t.Errorf("nil input: got %#v, want empty non-nil", got)
	}
}

func TestProfile_JSONEmptyArrays(t *testing.T) {
	data, err := json.Marshal(Profile{Name: Str("Jane Doe")})
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{`"experiences":[]`, `"education":[]`, `"skills":[]`, `"headline":null`} {
		if !strings.Contains(s, want) {
			t.Errorf("json %s missing %s", s, want)
		}
	}
}

func TestPhaseState_RoundTrip(t *testing.T) {
	st := &PhaseState{
		Phase:           PhaseAwaitSkills,
		ProfileBasePath: "/in/jane-doe",
		SkillsURL:       "https://www.linkedin.com/in/jane-doe/details/skills/",
		Partial:         Profile{Name: Str("Jane Doe"), Experiences: []Experience{{Title: Str("Engineer")}}},
		Logs: []debuglog.Entry{{
			Step:      "phase-1-start",
			Source:    debuglog.SourceContent,
			Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		}},
	}
	data, err := st.Encode()
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeState(data)
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if Deref(got.Partial.Name) != "Jane Doe" {
		t.Errorf("name: got %q", Deref(got.Partial.Name))
	}
	if got.SkillsURL != st.SkillsURL || len(got.Logs) != 1 || got.Logs[0].Step != "phase-1-start" {
		t.Errorf("state: got %+v", got)
	}
}

func TestDecodeState_Rejects(t *testing.T) {
	if _, err := DecodeState([]byte("{")); err == nil {
		t.Error("truncated json: expected error")
	}
	if _, err := DecodeState([]byte(`{"phase":"main"}`)); err == nil {
		t.Error("wrong phase: expected error")
	}
}

var rules = Rules{Host: "www.linkedin.com", Prefix: "/in/"}

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://www.linkedin.com/in/jane-doe/",
		"https://www.linkedin.com/in/jane-doe?trk=x",
	}
	for _, raw := range valid {
		if _, err := rules.ValidateURL(raw); err != nil {
			t.Errorf("ValidateURL(%q): %v", raw, err)
		}
	}

	invalid := []string{
		"",
		"http://www.linkedin.com/in/jane-doe/",
		"https://evil.example.com/in/jane-doe/",
		"https://www.linkedin.com/company/acme/",
		"https://www.linkedin.com/in/",
		"::not a url",
	}
	for _, raw := range invalid {
		_, err := rules.ValidateURL(raw)
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ValidateURL(%q): got %v, want ErrInvalidURL", raw, err)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"/in/jane-doe/", KindMain},
		{"/in/jane-doe/details/skills/", KindSkills},
		{"/in/jane-doe/details/experience/", KindUnknown},
		{"/feed/", KindUnknown},
	}
	for _, tt := range tests {
		if got := rules.KindOf(tt.path); got != tt.want {
			t.Errorf("KindOf(%q): got %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSkillsURL(t *testing.T) {
	tests := []struct {
		origin, base, want string
	}{
		{"https://www.linkedin.com", "/in/jane-doe/", "https://www.linkedin.com/in/jane-doe/details/skills/"},
		{"https://www.linkedin.com/", "/in/jane-doe", "https://www.linkedin.com/in/jane-doe/details/skills/"},
		{"https://www.linkedin.com", "/in/jane-doe/details/skills/", "https://www.linkedin.com/in/jane-doe/details/skills/"},
	}
	for _, tt := range tests {
		if got := SkillsURL(tt.origin, tt.base); got != tt.want {
			t.Errorf("SkillsURL(%q, %q): got %q, want %q", tt.origin, tt.base, got, tt.want)
		}
	}
}
