package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/profilewatch/config"
	"github.com/hazyhaar/profilewatch/profile"
)

// Experiences extracts up to max positions from the experience section.
func Experiences(doc *goquery.Document, sel config.Selectors, max int) []profile.Experience {
	out := []profile.Experience{}
	section := Section(doc, sel.Sections.Experience, sel.SectionContainer)
	if section.Length() == 0 {
		return out
	}

	items(section, sel.Items, sel.Items.FallbackMustContain).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if max > 0 && len(out) >= max {
			return false
		}
		out = append(out, experience(item, sel))
		return true
	})
	return out
}

func experience(item *goquery.Selection, sel config.Selectors) profile.Experience {
	es := sel.Experience
	e := profile.Experience{
		Title:       textOf(item, es.Title),
		Duration:    textOf(item, es.Duration),
		Description: textOf(item, es.Description),
		CompanyLogo: attrOf(item, es.CompanyLogo, "src"),
		RoleSkills:  texts(item, es.RoleSkills),
	}

	if line := textOf(item, es.CompanyLine); line != nil {
		company, kind, ok := splitFirst(*line, "·", " · ")
		if ok {
			e.Company = profile.Str(company)
			if e.Company == nil {
				e.Company = line
			}
			e.EmploymentType = profile.Str(kind)
		} else {
			e.Company = line
		}
	}

	duration := profile.Deref(e.Duration)
	for _, row := range texts(item, es.MetaRows) {
		if row == duration || sel.Patterns.DurationLike.MatchString(row) {
			continue
		}
		e.Location = profile.Str(row)
		break
	}
	return e
}
