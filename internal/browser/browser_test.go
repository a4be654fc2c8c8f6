package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/profilewatch/config"
	"github.com/hazyhaar/profilewatch/extract"
	"github.com/hazyhaar/profilewatch/page/pagetest"
)

func TestShouldBlock(t *testing.T) {
	set := map[string]bool{"images": true, "fonts": true}
	tests := []struct {
		typ  proto.NetworkResourceType
		want bool
	}{
		{proto.NetworkResourceTypeImage, true},
		{proto.NetworkResourceTypeFont, true},
		{proto.NetworkResourceTypeStylesheet, false},
		{proto.NetworkResourceTypeMedia, false},
		{proto.NetworkResourceTypeDocument, false},
		{proto.NetworkResourceTypeXHR, false},
	}
	for _, tt := range tests {
		if got := shouldBlock(set, tt.typ); got != tt.want {
			t.Errorf("shouldBlock(%s): got %v, want %v", tt.typ, got, tt.want)
		}
	}
	if shouldBlock(map[string]bool{"document": true}, proto.NetworkResourceTypeDocument) {
		t.Error("documents must never be blocked")
	}
}

func TestTabTarget(t *testing.T) {
	if !tabTarget.Background {
		t.Error("Background: got false, want true")
	}
	if tabTarget.URL != "about:blank" {
		t.Errorf("URL: got %q, want about:blank", tabTarget.URL)
	}
}

func TestMutationHub(t *testing.T) {
	h := newMutationHub()
	a, cancelA := h.subscribe()
	b, cancelB := h.subscribe()
	if h.len() != 2 {
		t.Fatalf("subscribers: got %d, want 2", h.len())
	}

	// Bursts coalesce into one pending signal per subscriber.
	h.notify()
	h.notify()
	for name, ch := range map[string]<-chan struct{}{"a": a, "b": b} {
		select {
		case <-ch:
		default:
			t.Errorf("%s: no signal", name)
		}
		select {
		case <-ch:
			t.Errorf("%s: second signal not coalesced", name)
		default:
		}
	}

	cancelA()
	h.notify()
	select {
	case <-a:
		t.Error("cancelled subscriber signalled")
	default:
	}
	<-b
	cancelB()
	if h.len() != 0 {
		t.Errorf("subscribers after cancel: got %d", h.len())
	}
}

func TestTabMutations_NoObserver(t *testing.T) {
	tab := newTab(nil, nil)
	if _, _, err := tab.Mutations(context.Background()); err == nil {
		t.Error("Mutations without observer: got nil error")
	}
}

type fakeSource struct {
	cookies []*http.Cookie
	ua      string
	err     error
}

func (f fakeSource) Cookies(context.Context, string) ([]*http.Cookie, error) { return f.cookies, f.err }
func (f fakeSource) UserAgent(context.Context) (string, error)               { return f.ua, nil }

func TestSessionFetcher(t *testing.T) {
	var gotCookie, gotUA, gotXRW, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("li_at"); err == nil {
			gotCookie = c.Value
		}
		gotUA = r.UserAgent()
		gotXRW = r.Header.Get("X-Requested-With")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(pagetest.SkillsHTML))
	}))
	defer srv.Close()

	f := &SessionFetcher{
		Source:  fakeSource{cookies: []*http.Cookie{{Name: "li_at", Value: "session-token", Path: "/"}}, ua: "Mozilla/5.0 test"},
		Timeout: 5 * time.Second,
	}
	doc, err := f.FetchSkills(context.Background(), srv.URL+"/in/jane-doe/details/skills/")
	if err != nil {
		t.Fatalf("FetchSkills: %v", err)
	}
	if gotCookie != "session-token" {
		t.Errorf("cookie: got %q", gotCookie)
	}
	if gotUA != "Mozilla/5.0 test" || gotXRW != "XMLHttpRequest" || !strings.HasPrefix(gotAccept, "text/html") {
		t.Errorf("headers: ua=%q xrw=%q accept=%q", gotUA, gotXRW, gotAccept)
	}
	skills := extract.SkillsFromDocument(doc, config.DefaultSelectors(), 15)
	if len(skills) != 2 {
		t.Errorf("skills from fetched page: got %d, want 2", len(skills))
	}
}

func TestSessionFetcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := &SessionFetcher{Source: fakeSource{}}
	_, err := f.FetchSkills(context.Background(), srv.URL+"/x")
	if err == nil || !strings.Contains(err.Error(), "status 429") {
		t.Errorf("status error: got %v", err)
	}

	errCookies := errors.New("target closed")
	f = &SessionFetcher{Source: fakeSource{err: errCookies}}
	if _, err := f.FetchSkills(context.Background(), srv.URL+"/x"); !errors.Is(err, errCookies) {
		t.Errorf("cookie error: got %v", err)
	}
}
