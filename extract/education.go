package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/profilewatch/config"
	"github.com/hazyhaar/profilewatch/profile"
)

// Education extracts up to max entries from the education section.
func Education(doc *goquery.Document, sel config.Selectors, max int) []profile.Education {
	out := []profile.Education{}
	section := Section(doc, sel.Sections.Education, sel.SectionContainer)
	if section.Length() == 0 {
		return out
	}

	items(section, sel.Items, "").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if max > 0 && len(out) >= max {
			return false
		}
		out = append(out, education(item, sel.Education))
		return true
	})
	return out
}

func education(item *goquery.Selection, es config.EducationSelectors) profile.Education {
	e := profile.Education{
		School:      textOf(item, es.School),
		Dates:       textOf(item, es.Dates),
		Activities:  textOf(item, es.Activities),
		Description: textOf(item, es.Description),
		Logo:        attrOf(item, es.Logo, "src"),
	}

	line := textOf(item, es.DegreeLine)
	if line == nil {
		e.Field = textOf(item, es.Field)
		return e
	}
	degree, field, ok := splitFirst(*line, ",", ", ")
	if ok {
		e.Degree = profile.Str(degree)
		e.Field = profile.Str(field)
		return e
	}
	e.Degree = line
	e.Field = textOf(item, es.Field)
	return e
}
