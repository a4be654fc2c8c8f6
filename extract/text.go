// Package extract turns a profile document snapshot into profile fields.
// Every extractor is a pure function of a goquery document and the selector
// table: missing sections yield empty results, never errors.
package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/profilewatch/config"
	"github.com/hazyhaar/profilewatch/profile"
)

// Clean collapses runs of whitespace and trims.
func Clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// textOf returns the cleaned text of the first element under root matching
// selector, or nil when there is none or it is blank.
func textOf(root *goquery.Selection, selector string) *string {
	if selector == "" {
		return nil
	}
	return profile.Str(Clean(root.Find(selector).First().Text()))
}

// texts returns the cleaned, non-blank texts of every match.
func texts(root *goquery.Selection, selector string) []string {
	out := []string{}
	if selector == "" {
		return out
	}
	root.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if t := Clean(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func attrOf(root *goquery.Selection, selector, attr string) *string {
	if selector == "" {
		return nil
	}
	v, _ := root.Find(selector).First().Attr(attr)
	return profile.Str(strings.TrimSpace(v))
}

// Section returns the closest container ancestor of anchor. The selection is
// empty when the anchor is absent.
func Section(doc *goquery.Document, anchor, container string) *goquery.Selection {
	return doc.Find(anchor).First().Closest(container)
}

// HasSection reports whether anchor exists inside a container.
func HasSection(doc *goquery.Document, anchor, container string) bool {
	return Section(doc, anchor, container).Length() > 0
}

// items picks the entity items of a section, falling back to list items.
// When mustContain is set, fallback items lacking it are dropped.
func items(section *goquery.Selection, sel config.ItemSelectors, mustContain string) *goquery.Selection {
	primary := section.Find(sel.Entity)
	if primary.Length() > 0 {
		return primary
	}
	fallback := section.Find(sel.Fallback)
	if mustContain == "" {
		return fallback
	}
	return fallback.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find(mustContain).Length() > 0
	})
}

// splitFirst splits on sep, trims every part and rejoins the remainder with
// joiner. ok is false when sep does not occur.
func splitFirst(line, sep, joiner string) (head, rest string, ok bool) {
	if !strings.Contains(line, sep) {
		return line, "", false
	}
	parts := strings.Split(line, sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts[0], strings.Join(parts[1:], joiner), true
}

// Header holds the page-level profile fields.
type Header struct {
	Name     *string
	Headline *string
	Location *string
	About    *string
}

// ExtractHeader reads name, headline, location and about.
func ExtractHeader(doc *goquery.Document, sel config.Selectors) Header {
	root := doc.Selection
	h := Header{
		Name:     textOf(root, sel.Header.Name),
		Headline: textOf(root, sel.Header.Headline),
		Location: textOf(root, sel.Header.Location),
	}
	if about := Section(doc, sel.Header.AboutAnchor, sel.SectionContainer); about.Length() > 0 {
		h.About = textOf(about, sel.Header.AboutText)
	}
	return h
}

// CanonicalPath returns the profile base path, preferring the declared
// canonical link or og:url over the address bar, which can carry query or
// hash state.
func CanonicalPath(doc *goquery.Document, sel config.Selectors, currentURL string) string {
	candidates := []*string{
		attrOf(doc.Selection, sel.CanonicalLink, "href"),
		attrOf(doc.Selection, sel.CanonicalMeta, "content"),
	}
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if u, err := url.Parse(*c); err == nil && u.Path != "" {
			return profile.BasePath(u.Path)
		}
	}
	if u, err := url.Parse(currentURL); err == nil {
		return profile.BasePath(u.Path)
	}
	return ""
}

// SkillsLink returns the raw href of the skills "show all" link inside the
// skills section, or "".
func SkillsLink(doc *goquery.Document, sel config.Selectors) string {
	section := Section(doc, sel.Sections.Skills, sel.SectionContainer)
	if section.Length() == 0 {
		return ""
	}
	href, _ := section.Find(sel.Skills.DetailsLink).First().Attr("href")
	return strings.TrimSpace(href)
}
