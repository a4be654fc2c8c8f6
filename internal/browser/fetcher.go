package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/hazyhaar/profilewatch/safe"
)

// CookieSource supplies the session a fetch runs with. *Tab implements it.
type CookieSource interface {
	Cookies(ctx context.Context, rawURL string) ([]*http.Cookie, error)
	UserAgent(ctx context.Context) (string, error)
}

// SessionFetcher loads a page over plain HTTP with the cookies and user agent
// of a browser tab, and parses it without rendering.
type SessionFetcher struct {
	Source  CookieSource
	Timeout time.Duration
	// Transport is the underlying round tripper; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// FetchSkills implements orchestrator.SkillsFetcher.
func (f *SessionFetcher) FetchSkills(ctx context.Context, rawURL string) (*goquery.Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("browser: fetch: %w", err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("browser: fetch: cookie jar: %w", err)
	}
	cookies, err := f.Source.Cookies(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("browser: fetch: %w", err)
	}
	jar.SetCookies(u, cookies)

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &http.Client{Jar: jar, Timeout: timeout, Transport: f.Transport}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("browser: fetch: %w", err)
	}
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "text/html, */*;q=0.1")
	if ua, err := f.Source.UserAgent(ctx); err == nil && ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("browser: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("browser: fetch %s: status %d", rawURL, resp.StatusCode)
	}

	body, err := safe.LimitedReadAll(resp.Body, safe.MaxPageBody)
	if err != nil {
		return nil, fmt.Errorf("browser: fetch %s: %w", rawURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("browser: fetch %s: parse: %w", rawURL, err)
	}
	return doc, nil
}
