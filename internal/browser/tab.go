package browser

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Tab adapts a Rod page to page.Page, page.MutationSource and statestore.KV.
type Tab struct {
	page *rod.Page
	obs  *mutationHub
}

func newTab(page *rod.Page, obs *mutationHub) *Tab {
	return &Tab{page: page, obs: obs}
}

func (t *Tab) eval(ctx context.Context, js string, args ...any) (*proto.RuntimeRemoteObject, error) {
	res, err := t.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return nil, fmt.Errorf("browser: eval: %w", err)
	}
	return res, nil
}

// URL returns the address of the current document.
func (t *Tab) URL(ctx context.Context) (string, error) {
	info, err := t.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("browser: target info: %w", err)
	}
	return info.URL, nil
}

// Exists reports whether sel matches an element. An invalid selector
// matches nothing.
func (t *Tab) Exists(ctx context.Context, sel string) (bool, error) {
	res, err := t.eval(ctx, `(s) => { try { return !!document.querySelector(s) } catch (e) { return false } }`, sel)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// Document parses the live DOM.
func (t *Tab) Document(ctx context.Context) (*goquery.Document, error) {
	res, err := t.eval(ctx, `() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Value.Str()))
	if err != nil {
		return nil, fmt.Errorf("browser: parse dom: %w", err)
	}
	return doc, nil
}

// ScrollBy scrolls the window vertically by px.
func (t *Tab) ScrollBy(ctx context.Context, px int) error {
	_, err := t.eval(ctx, `(px) => window.scrollBy(0, px)`, px)
	return err
}

// ScrollTop scrolls back to the top of the document.
func (t *Tab) ScrollTop(ctx context.Context) error {
	_, err := t.eval(ctx, `() => window.scrollTo(0, 0)`)
	return err
}

// labelsJS returns, per element matching the selector, its lower-cased label
// (text, else aria-label) or null when the element is not visible.
const labelsJS = `(sel) => {
	let els;
	try { els = document.querySelectorAll(sel) } catch (e) { return [] }
	return Array.from(els).map((el) => {
		const r = el.getBoundingClientRect();
		const st = window.getComputedStyle(el);
		if (r.width === 0 || r.height === 0 || st.visibility === 'hidden' || st.display === 'none') return null;
		const text = (el.innerText || el.textContent || '').trim().replace(/\s+/g, ' ');
		return (text || el.getAttribute('aria-label') || '').toLowerCase();
	});
}`

const clickJS = `(sel, idx) => {
	const els = document.querySelectorAll(sel);
	let n = 0;
	for (const i of idx) {
		const el = els[i];
		if (el) { el.click(); n++; }
	}
	return n;
}`

// ClickWhere clicks the visible elements matching selector whose label
// satisfies match, or only the first of them.
func (t *Tab) ClickWhere(ctx context.Context, selector string, first bool, match func(label string) bool) (int, error) {
	res, err := t.eval(ctx, labelsJS, selector)
	if err != nil {
		return 0, err
	}
	var idx []int
	for i, v := range res.Value.Arr() {
		if v.Nil() {
			continue
		}
		if match(v.Str()) {
			idx = append(idx, i)
			if first {
				break
			}
		}
	}
	if len(idx) == 0 {
		return 0, nil
	}
	res, err = t.eval(ctx, clickJS, selector, idx)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

// Navigate starts loading url in the tab. It does not wait for the load:
// the new document is reported through the tab's frame events.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	if err := t.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	return nil
}

// Mutations subscribes to DOM mutation signals of the tab's documents.
func (t *Tab) Mutations(ctx context.Context) (<-chan struct{}, func(), error) {
	if t.obs == nil {
		return nil, nil, fmt.Errorf("browser: mutation observer not installed")
	}
	ch, cancel := t.obs.subscribe()
	return ch, cancel, nil
}

// GetItem reads key from the tab's sessionStorage.
func (t *Tab) GetItem(ctx context.Context, key string) (string, bool, error) {
	res, err := t.eval(ctx, `(k) => window.sessionStorage.getItem(k)`, key)
	if err != nil {
		return "", false, err
	}
	if res.Value.Nil() {
		return "", false, nil
	}
	return res.Value.Str(), true, nil
}

// SetItem writes key to the tab's sessionStorage.
func (t *Tab) SetItem(ctx context.Context, key, value string) error {
	_, err := t.eval(ctx, `(k, v) => window.sessionStorage.setItem(k, v)`, key, value)
	return err
}

// RemoveItem deletes key from the tab's sessionStorage.
func (t *Tab) RemoveItem(ctx context.Context, key string) error {
	_, err := t.eval(ctx, `(k) => window.sessionStorage.removeItem(k)`, key)
	return err
}

// Cookies returns the browser cookies that apply to rawURL.
func (t *Tab) Cookies(ctx context.Context, rawURL string) ([]*http.Cookie, error) {
	cs, err := t.page.Context(ctx).Cookies([]string{rawURL})
	if err != nil {
		return nil, fmt.Errorf("browser: cookies: %w", err)
	}
	out := make([]*http.Cookie, 0, len(cs))
	for _, c := range cs {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return out, nil
}

// UserAgent returns the tab's navigator.userAgent.
func (t *Tab) UserAgent(ctx context.Context) (string, error) {
	res, err := t.eval(ctx, `() => navigator.userAgent`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.page != nil {
		return t.page.Close()
	}
	return nil
}
