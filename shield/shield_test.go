package shield

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/profilewatch/dbopen"
	"github.com/hazyhaar/profilewatch/kit"
)

func stackRouter(t *testing.T) http.Handler {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	stack, _ := DefaultStack(db)
	r := chi.NewRouter()
	for _, mw := range stack {
		r.Use(mw)
	}
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Post("/api/scrape", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	return r
}

func TestDefaultStack_Headers(t *testing.T) {
	r := stackRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	checks := map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "no-referrer",
	}
	for header, want := range checks {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s: got %q, want %q", header, got, want)
		}
	}
	if id := w.Header().Get("X-Trace-ID"); len(id) != 8 {
		t.Errorf("X-Trace-ID: got %q, want 8 hex chars", id)
	}
}

func TestDefaultStack_HeadToGet(t *testing.T) {
	r := stackRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("HEAD", "/health", nil))
	if w.Code != 200 {
		t.Errorf("HEAD /health: got %d, want 200", w.Code)
	}
}

func TestHeadToGet_PostOnlyRoute(t *testing.T) {
	r := stackRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("HEAD", "/api/scrape", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("HEAD /api/scrape: got %d, want 405", w.Code)
	}
}

func TestHeadToGet_Method(t *testing.T) {
	var got []string
	h := HeadToGet(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Method)
	}))
	for _, m := range []string{"HEAD", "GET", "POST"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(m, "/api/scrapes/req-1", nil))
	}
	if diff := cmp.Diff([]string{"GET", "GET", "POST"}, got); diff != "" {
		t.Errorf("methods (-want +got):\n%s", diff)
	}
}

func TestRateLimiter_ScrapeEndpoint(t *testing.T) {
	r := stackRouter(t)
	var codes []int
	for range 7 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/scrape", strings.NewReader("{}"))
		req.RemoteAddr = "192.0.2.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	for i, c := range codes[:6] {
		if c != 200 {
			t.Errorf("request %d: got %d, want 200", i, c)
		}
	}
	if codes[6] != http.StatusTooManyRequests {
		t.Errorf("request 7: got %d, want 429", codes[6])
	}

	// Another client has its own bucket.
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/scrape", strings.NewReader("{}"))
	req.RemoteAddr = "192.0.2.2:1234"
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Errorf("other client: got %d, want 200", w.Code)
	}
}

func TestRateLimiter_ExcludedPrefix(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	if _, err := db.Exec(`INSERT INTO rate_limits (endpoint, max_requests, window_seconds) VALUES ('GET /health', 1, 60)`); err != nil {
		t.Fatal(err)
	}
	rl := NewRateLimiter(db, "/health")
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := range 3 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
		if w.Code != 200 {
			t.Errorf("request %d: got %d, want 200", i, w.Code)
		}
	}
}

func TestRequireToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	h := RequireToken(string(hash))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer s3cret", 200},
		{"wrong", "Bearer nope", 401},
		{"missing", "", 401},
		{"basic scheme", "Basic s3cret", 401},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/scrape", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("got %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequireToken_Disabled(t *testing.T) {
	h := RequireToken("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != 200 {
		t.Errorf("got %d, want 200", w.Code)
	}
}

func TestTraceID_Context(t *testing.T) {
	var traceID, addr string
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = kit.GetTraceID(r.Context())
		addr = kit.GetRemoteAddr(r.Context())
	}))
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if traceID == "" || traceID != w.Header().Get("X-Trace-ID") {
		t.Errorf("trace id: context %q, header %q", traceID, w.Header().Get("X-Trace-ID"))
	}
	if addr != "198.51.100.7" {
		t.Errorf("remote addr: got %q", addr)
	}
}

func TestHashToken(t *testing.T) {
	hash, err := HashToken("abc")
	if err != nil {
		t.Fatal(err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("abc")) != nil {
		t.Error("hash does not match token")
	}
}

func TestRateLimiter_Headers(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	rl := NewRateLimiter(db)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/scrape", nil)
		req.RemoteAddr = "192.0.2.9:1"
		h.ServeHTTP(w, req)
		return w
	}

	w := send()
	if got := w.Header().Get("X-RateLimit-Limit"); got != "6" {
		t.Errorf("limit header: got %q, want 6", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "5" {
		t.Errorf("remaining header: got %q, want 5", got)
	}
	for range 5 {
		send()
	}
	now = now.Add(20 * time.Second)
	w = send()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("7th request: got %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "41" {
		t.Errorf("Retry-After: got %q, want 41", got)
	}

	// The window resets.
	now = now.Add(41 * time.Second)
	if w := send(); w.Code != http.StatusOK {
		t.Errorf("after window: got %d, want 200", w.Code)
	}
}

func TestRateLimiter_DisabledRule(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	if _, err := db.Exec(`UPDATE rate_limits SET enabled = 0`); err != nil {
		t.Fatal(err)
	}
	rl := NewRateLimiter(db)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := range 10 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("POST", "/api/scrape", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i, w.Code)
		}
		if w.Header().Get("X-RateLimit-Limit") != "" {
			t.Fatal("disabled rule must not set limit headers")
		}
	}
}
