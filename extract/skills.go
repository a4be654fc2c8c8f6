package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/profilewatch/config"
	"github.com/hazyhaar/profilewatch/profile"
)

// SkillsFromDocument parses every skill entity in doc (the skills details
// page, or a document fetched from it), deduplicated and capped at max.
func SkillsFromDocument(doc *goquery.Document, sel config.Selectors, max int) []profile.Skill {
	var all []profile.Skill
	doc.Find(sel.Items.Entity).Each(func(_ int, item *goquery.Selection) {
		all = append(all, skill(item, sel))
	})
	return profile.DedupSkills(all, max)
}

func skill(item *goquery.Selection, sel config.Selectors) profile.Skill {
	s := profile.Skill{
		Name:         profile.Deref(textOf(item, sel.Skills.Name)),
		Insights:     []string{},
		RelatedLinks: []profile.Link{},
	}
	pats := sel.Patterns

	endorsed := false
	for _, row := range texts(item, sel.Skills.SubRows) {
		isEndorsement := pats.Endorsement.MatchString(row)
		isAssessment := pats.Assessment.MatchString(row) && pats.Passed.MatchString(row)
		if isEndorsement && !endorsed {
			endorsed = true
			s.Endorsements = endorsementCount(row)
		}
		if isAssessment {
			s.AssessmentPassed = true
		}
		if !isEndorsement && !isAssessment {
			s.Insights = append(s.Insights, row)
		}
	}

	if sel.Skills.RelatedLinks != "" {
		item.Find(sel.Skills.RelatedLinks).Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			s.RelatedLinks = append(s.RelatedLinks, profile.Link{
				Href:  strings.TrimSpace(href),
				Label: Clean(a.Text()),
			})
		})
	}
	return s
}

var firstNumber = regexp.MustCompile(`\d[\d,.]*`)

// endorsementCount parses the first number of row, thousands separators
// included. A row without digits yields nil.
func endorsementCount(row string) *int {
	m := firstNumber.FindString(row)
	if m == "" {
		return nil
	}
	m = strings.TrimRight(m, ",.")
	n, err := strconv.Atoi(strings.NewReplacer(",", "", ".", "").Replace(m))
	if err != nil {
		return nil
	}
	return &n
}

// InlineSkills parses the skills section of the main profile page. Inline
// entries carry names only.
func InlineSkills(doc *goquery.Document, sel config.Selectors, max int) []profile.Skill {
	section := Section(doc, sel.Sections.Skills, sel.SectionContainer)
	if section.Length() == 0 {
		return []profile.Skill{}
	}
	var all []profile.Skill
	section.Find(sel.Skills.InlineItem).Each(func(_ int, item *goquery.Selection) {
		name := textOf(item, sel.Skills.InlineName)
		if name == nil {
			return
		}
		all = append(all, profile.Skill{
			Name:         *name,
			Insights:     []string{},
			RelatedLinks: []profile.Link{},
		})
	})
	return profile.DedupSkills(all, max)
}
