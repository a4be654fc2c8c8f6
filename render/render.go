// Package render formats scrape responses for humans: JSON, plain text,
// sanitized HTML and Markdown.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/profilewatch/profile"
	"github.com/hazyhaar/profilewatch/protocol"
)

// Formats accepted by Format.
const (
	FormatJSON     = "json"
	FormatText     = "text"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

var (
	policy = bluemonday.UGCPolicy()
	mdConv = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
)

// Format renders r in the named format.
func Format(r protocol.Response, format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return JSON(r)
	case FormatText:
		return Text(r), nil
	case FormatHTML:
		return HTML(r)
	case FormatMarkdown, "md":
		return Markdown(r)
	default:
		return "", fmt.Errorf("render: unsupported format %q", format)
	}
}

// JSON renders r as indented JSON.
func JSON(r protocol.Response) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render: json: %w", err)
	}
	return string(data), nil
}

// Text renders r as plain text.
func Text(r protocol.Response) string {
	var b strings.Builder
	if !r.OK() {
		fmt.Fprintf(&b, "error (%s): %s\n", r.Code, r.Reason)
		return b.String()
	}
	p := r.Profile
	if p == nil {
		p = profile.New()
	}
	line := func(label string, v *string) {
		if v != nil {
			fmt.Fprintf(&b, "%s: %s\n", label, *v)
		}
	}
	line("Name", p.Name)
	line("Headline", p.Headline)
	line("Location", p.Location)
	if p.About != nil {
		fmt.Fprintf(&b, "\nAbout\n%s\n", *p.About)
	}

	if len(p.Experiences) > 0 {
		b.WriteString("\nExperience\n")
		for _, e := range p.Experiences {
			fmt.Fprintf(&b, "- %s\n", join(" at ", e.Title, e.Company))
			if s := join(" | ", e.EmploymentType, e.Duration, e.Location); s != "" {
				fmt.Fprintf(&b, "  %s\n", s)
			}
		}
	}
	if len(p.Education) > 0 {
		b.WriteString("\nEducation\n")
		for _, e := range p.Education {
			fmt.Fprintf(&b, "- %s\n", join(", ", e.School, e.Degree, e.Field))
			if e.Dates != nil {
				fmt.Fprintf(&b, "  %s\n", *e.Dates)
			}
		}
	}
	if len(p.Skills) > 0 {
		b.WriteString("\nSkills\n")
		for _, s := range p.Skills {
			fmt.Fprintf(&b, "- %s\n", skillLine(s))
		}
	}
	if r.ScrapedAt != "" {
		fmt.Fprintf(&b, "\nScraped at %s\n", r.ScrapedAt)
	}
	return b.String()
}

func join(sep string, parts ...*string) string {
	var out []string
	for _, p := range parts {
		if p != nil && *p != "" {
			out = append(out, *p)
		}
	}
	return strings.Join(out, sep)
}

func skillLine(s profile.Skill) string {
	out := s.Name
	if s.Endorsements != nil {
		out += " (" + strconv.Itoa(*s.Endorsements) + " endorsements)"
	}
	if s.AssessmentPassed {
		out += " [assessment passed]"
	}
	return out
}

var page = template.Must(template.New("profile").Funcs(template.FuncMap{
	"deref": profile.Deref,
	"skill": skillLine,
}).Parse(`<article>
{{- if .OK}}{{with .Profile}}
<h1>{{deref .Name}}</h1>
{{- with .Headline}}<p><strong>{{.}}</strong></p>{{end}}
{{- with .Location}}<p>{{.}}</p>{{end}}
{{- with .About}}<h2>About</h2><p>{{.}}</p>{{end}}
{{- if .Experiences}}
<h2>Experience</h2>
<table><thead><tr><th>Title</th><th>Company</th><th>Duration</th><th>Location</th></tr></thead><tbody>
{{- range .Experiences}}
<tr><td>{{deref .Title}}</td><td>{{deref .Company}}</td><td>{{deref .Duration}}</td><td>{{deref .Location}}</td></tr>
{{- end}}
</tbody></table>
{{- end}}
{{- if .Education}}
<h2>Education</h2>
<table><thead><tr><th>School</th><th>Degree</th><th>Field</th><th>Dates</th></tr></thead><tbody>
{{- range .Education}}
<tr><td>{{deref .School}}</td><td>{{deref .Degree}}</td><td>{{deref .Field}}</td><td>{{deref .Dates}}</td></tr>
{{- end}}
</tbody></table>
{{- end}}
{{- if .Skills}}
<h2>Skills</h2>
<ul>
{{- range .Skills}}
<li>{{skill .}}</li>
{{- end}}
</ul>
{{- end}}
{{- end}}
{{- with .ScrapedAt}}<p><em>Scraped at {{.}}</em></p>{{end}}
{{- else}}
<h1>Scrape failed</h1>
<p>{{.Reason}} ({{.Code}})</p>
{{- end}}
</article>`))

// HTML renders r as an HTML fragment, sanitized with the UGC policy.
func HTML(r protocol.Response) (string, error) {
	var buf bytes.Buffer
	if err := page.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("render: html: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}

// Markdown renders r as Markdown by converting its HTML form.
func Markdown(r protocol.Response) (string, error) {
	html, err := HTML(r)
	if err != nil {
		return "", err
	}
	md, err := mdConv.ConvertString(html, converter.WithDomain(r.URL))
	if err != nil {
		return "", fmt.Errorf("render: markdown: %w", err)
	}
	return strings.TrimSpace(md) + "\n", nil
}
