// Package profile is the scraped profile model and the URL rules that decide
// which page of a profile a tab is on.
package profile

import (
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/profilewatch/debuglog"
)

// Profile is the draft accumulated across phases. A nil field was not found.
type Profile struct {
	Name        *string      `json:"name"`
	Headline    *string      `json:"headline"`
	Location    *string      `json:"location"`
	About       *string      `json:"about"`
	Experiences []Experience `json:"experiences"`
	Education   []Education  `json:"education"`
	Skills      []Skill      `json:"skills"`
}

// Experience is one position.
type Experience struct {
	Title          *string  `json:"title"`
	Company        *string  `json:"company"`
	EmploymentType *string  `json:"employmentType"`
	Duration       *string  `json:"duration"`
	Location       *string  `json:"location"`
	Description    *string  `json:"description"`
	CompanyLogo    *string  `json:"companyLogo,omitempty"`
	RoleSkills     []string `json:"roleSkills,omitempty"`
}

// Education is one school entry.
type Education struct {
	School      *string `json:"school"`
	Degree      *string `json:"degree"`
	Field       *string `json:"field"`
	Dates       *string `json:"dates"`
	Activities  *string `json:"activities"`
	Description *string `json:"description"`
	Logo        *string `json:"logo,omitempty"`
}

// Skill is one skill entity.
type Skill struct {
	Name             string   `json:"name"`
	Endorsements     *int     `json:"endorsements"`
	AssessmentPassed bool     `json:"assessmentPassed"`
	Insights         []string `json:"insights"`
	RelatedLinks     []Link   `json:"relatedLinks,omitempty"`
}

// Link is an anchor found under a skill.
type Link struct {
	Href  string `json:"href"`
	Label string `json:"label"`
}

// New returns an empty draft whose slices encode as [].
func New() *Profile {
	return &Profile{
		Experiences: []Experience{},
		Education:   []Education{},
		Skills:      []Skill{},
	}
}

// MarshalJSON keeps list fields as arrays even when unset.
func (p Profile) MarshalJSON() ([]byte, error) {
	type plain Profile
	out := plain(p)
	if out.Experiences == nil {
		out.Experiences = []Experience{}
	}
	if out.Education == nil {
		out.Education = []Education{}
	}
	if out.Skills == nil {
		out.Skills = []Skill{}
	}
	return json.Marshal(out)
}

// DedupSkills keeps the first occurrence of each name, drops empty names and
// caps the result at max (max <= 0 means no cap). The input is not modified.
func DedupSkills(skills []Skill, max int) []Skill {
	seen := make(map[string]struct{}, len(skills))
	out := make([]Skill, 0, len(skills))
	for _, s := range skills {
		if s.Name == "" {
			continue
		}
		if _, dup := seen[s.Name]; dup {
			continue
		}
		seen[s.Name] = struct{}{}
		out = append(out, s)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// Phase names persisted in PhaseState.
const PhaseAwaitSkills = "awaitSkills"

// StateKey is the well-known key PhaseState is stored under.
const StateKey = "profilewatch:pending"

// PhaseState carries the draft across the navigation to the skills page.
type PhaseState struct {
	Phase           string           `json:"phase"`
	ProfileBasePath string           `json:"profileBasePath"`
	SkillsURL       string           `json:"skillsUrl"`
	Partial         Profile          `json:"partialProfile"`
	Logs            []debuglog.Entry `json:"logs"`
}

// Encode serializes the state.
func (s *PhaseState) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("profile: encode state: %w", err)
	}
	return data, nil
}

// DecodeState parses a serialized PhaseState.
func DecodeState(data []byte) (*PhaseState, error) {
	var s PhaseState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("profile: decode state: %w", err)
	}
	if s.Phase != PhaseAwaitSkills {
		return nil, fmt.Errorf("profile: decode state: unexpected phase %q", s.Phase)
	}
	return &s, nil
}

// Str returns a pointer to s, or nil when s is empty.
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns *p or "".
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
