package config

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var defaultSelectorsYAML []byte

// Selectors is the visual selector table. The markup it targets changes
// often, so every entry is data rather than code.
type Selectors struct {
	ContentRoot      string `yaml:"content_root"`
	SectionContainer string `yaml:"section_container"`
	CanonicalLink    string `yaml:"canonical_link"`
	CanonicalMeta    string `yaml:"canonical_meta"`

	Header     HeaderSelectors     `yaml:"header"`
	Sections   SectionAnchors      `yaml:"sections"`
	Ready      ReadyMarkers        `yaml:"ready"`
	Items      ItemSelectors       `yaml:"items"`
	Experience ExperienceSelectors `yaml:"experience"`
	Education  EducationSelectors  `yaml:"education"`
	Skills     SkillSelectors      `yaml:"skills"`
	Clickables ClickableSelectors  `yaml:"clickables"`
	Patterns   Patterns            `yaml:"patterns"`
}

// HeaderSelectors locate the page-level fields.
type HeaderSelectors struct {
	Name        string `yaml:"name"`
	Headline    string `yaml:"headline"`
	Location    string `yaml:"location"`
	AboutAnchor string `yaml:"about_anchor"`
	AboutText   string `yaml:"about_text"`
}

// SectionAnchors are the anchors whose closest container is the section.
type SectionAnchors struct {
	Experience string `yaml:"experience"`
	Education  string `yaml:"education"`
	Skills     string `yaml:"skills"`
}

// ReadyMarkers signal that a section has rendered its items.
type ReadyMarkers struct {
	Experience []string `yaml:"experience"`
	Education  []string `yaml:"education"`
	Skills     []string `yaml:"skills"`
}

// ItemSelectors find list items inside a section.
type ItemSelectors struct {
	Entity              string `yaml:"entity"`
	Fallback            string `yaml:"fallback"`
	FallbackMustContain string `yaml:"fallback_must_contain"`
}

// ExperienceSelectors are relative to one experience item.
type ExperienceSelectors struct {
	Title       string `yaml:"title"`
	CompanyLine string `yaml:"company_line"`
	Duration    string `yaml:"duration"`
	MetaRows    string `yaml:"meta_rows"`
	Description string `yaml:"description"`
	CompanyLogo string `yaml:"company_logo"`
	RoleSkills  string `yaml:"role_skills"`
}

// EducationSelectors are relative to one education item.
type EducationSelectors struct {
	School      string `yaml:"school"`
	DegreeLine  string `yaml:"degree_line"`
	Field       string `yaml:"field"`
	Dates       string `yaml:"dates"`
	Activities  string `yaml:"activities"`
	Description string `yaml:"description"`
	Logo        string `yaml:"logo"`
}

// SkillSelectors cover both the details page and the inline section.
type SkillSelectors struct {
	DetailsRoot  string `yaml:"details_root"`
	Name         string `yaml:"name"`
	SubRows      string `yaml:"sub_rows"`
	RelatedLinks string `yaml:"related_links"`
	InlineItem   string `yaml:"inline_item"`
	InlineName   string `yaml:"inline_name"`
	DetailsLink  string `yaml:"details_link"`
}

// ClickableSelectors pick the elements the interaction layer may click.
type ClickableSelectors struct {
	Expand  string `yaml:"expand"`
	ShowAll string `yaml:"show_all"`
}

// Patterns are the label and text classifiers.
type Patterns struct {
	Expand          []Pattern `yaml:"expand"`
	ShowMoreResults []Pattern `yaml:"show_more_results"`
	ShowAllSkills   Pattern   `yaml:"show_all_skills"`
	Endorsement     Pattern   `yaml:"endorsement"`
	Assessment      Pattern   `yaml:"assessment"`
	Passed          Pattern   `yaml:"passed"` // with Assessment, marks a passed assessment
	DurationLike    Pattern   `yaml:"duration_like"`
}

// DefaultSelectors returns the embedded selector table.
func DefaultSelectors() Selectors {
	var s Selectors
	if err := yaml.Unmarshal(defaultSelectorsYAML, &s); err != nil {
		panic(fmt.Sprintf("config: embedded selectors: %v", err))
	}
	return s
}

// Pattern is a regular expression that decodes from a YAML string.
type Pattern struct {
	re *regexp.Regexp
}

// MustPattern compiles expr or panics.
func MustPattern(expr string) Pattern {
	return Pattern{re: regexp.MustCompile(expr)}
}

// MatchString reports whether s matches. The zero Pattern matches nothing.
func (p Pattern) MatchString(s string) bool {
	return p.re != nil && p.re.MatchString(s)
}

// String returns the source expression.
func (p Pattern) String() string {
	if p.re == nil {
		return ""
	}
	return p.re.String()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Pattern) UnmarshalYAML(node *yaml.Node) error {
	var expr string
	if err := node.Decode(&expr); err != nil {
		return err
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("config: pattern %q: %w", expr, err)
	}
	p.re = re
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (p Pattern) MarshalYAML() (any, error) {
	return p.String(), nil
}

// MatchAny reports whether s matches any of ps.
func MatchAny(ps []Pattern, s string) bool {
	for _, p := range ps {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
