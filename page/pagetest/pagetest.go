// Package pagetest provides an in-memory page.Page backed by goquery, for
// tests of the readiness, interaction and orchestration layers.
package pagetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Page is a static-HTML page. Its DOM can be replaced at any time with
// SetHTML; clicks and navigations are recorded.
type Page struct {
	mu          sync.Mutex
	url         string
	html        string
	doc         *goquery.Document
	scrolls     []int
	tops        int
	clicks      []string
	navigations []string
	subs        map[int]chan struct{}
	nextSub     int

	// OnClick runs after an element is clicked, with its label.
	OnClick func(p *Page, label string)
	// OnNavigate runs on Navigate. A nil hook just records the URL.
	OnNavigate func(p *Page, url string) error
}

// New returns a page at url with the given markup.
func New(url, html string) *Page {
	p := &Page{url: url, subs: make(map[int]chan struct{})}
	p.setHTML(html)
	return p
}

func (p *Page) setHTML(html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(fmt.Sprintf("pagetest: parse html: %v", err))
	}
	p.mu.Lock()
	p.html = html
	p.doc = doc
	subs := make([]chan struct{}, 0, len(p.subs))
	for _, ch := range p.subs {
		subs = append(subs, ch)
	}
	p.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SetHTML replaces the DOM and notifies mutation subscribers.
func (p *Page) SetHTML(html string) { p.setHTML(html) }

// SetHTMLAfter replaces the DOM after d.
func (p *Page) SetHTMLAfter(d time.Duration, html string) {
	time.AfterFunc(d, func() { p.setHTML(html) })
}

// SetURL changes the current address without recording a navigation.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
}

// URL implements page.Page.
func (p *Page) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

// Exists implements page.Page.
func (p *Page) Exists(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Find(selector).Length() > 0, nil
}

// Document implements page.Page. Each call returns an independent snapshot.
func (p *Page) Document(ctx context.Context) (*goquery.Document, error) {
	p.mu.Lock()
	html := p.html
	p.mu.Unlock()
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// ScrollBy implements page.Page.
func (p *Page) ScrollBy(ctx context.Context, px int) error {
	p.mu.Lock()
	p.scrolls = append(p.scrolls, px)
	p.mu.Unlock()
	return nil
}

// ScrollTop implements page.Page.
func (p *Page) ScrollTop(ctx context.Context) error {
	p.mu.Lock()
	p.tops++
	p.mu.Unlock()
	return nil
}

// ClickWhere implements page.Page. Elements carrying the hidden attribute or
// an inline display:none count as having no layout box.
func (p *Page) ClickWhere(ctx context.Context, selector string, first bool, match func(string) bool) (int, error) {
	p.mu.Lock()
	var labels []string
	p.doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !visible(s) {
			return true
		}
		label := Label(s)
		if !match(label) {
			return true
		}
		labels = append(labels, label)
		return !first
	})
	p.clicks = append(p.clicks, labels...)
	hook := p.OnClick
	p.mu.Unlock()

	if hook != nil {
		for _, l := range labels {
			hook(p, l)
		}
	}
	return len(labels), nil
}

// Navigate implements page.Page.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	p.navigations = append(p.navigations, url)
	hook := p.OnNavigate
	p.mu.Unlock()
	if hook != nil {
		return hook(p, url)
	}
	return nil
}

// Scrolls returns the recorded ScrollBy offsets.
func (p *Page) Scrolls() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.scrolls...)
}

// Tops returns how many times ScrollTop ran.
func (p *Page) Tops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tops
}

// Clicks returns the labels clicked so far.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Navigations returns the URLs passed to Navigate.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Label is the lower-cased, whitespace-collapsed text of s, or its
// aria-label when it has no text.
func Label(s *goquery.Selection) string {
	label := strings.Join(strings.Fields(s.Text()), " ")
	if label == "" {
		label, _ = s.Attr("aria-label")
	}
	return strings.ToLower(strings.TrimSpace(label))
}

func visible(s *goquery.Selection) bool {
	if _, hidden := s.Attr("hidden"); hidden {
		return false
	}
	style, _ := s.Attr("style")
	return !strings.Contains(strings.ReplaceAll(style, " ", ""), "display:none")
}

// Observed wraps a Page with mutation notifications.
type Observed struct {
	*Page
}

// WithMutations returns p as a page.MutationSource.
func WithMutations(p *Page) Observed { return Observed{Page: p} }

// Mutations implements page.MutationSource.
func (o Observed) Mutations(ctx context.Context) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	o.mu.Unlock()

	cancel := func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
	return ch, cancel, nil
}

// Subscribers returns the number of live mutation subscriptions.
func (o Observed) Subscribers() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}
