package shield

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/profilewatch/kit"
)

// Rule caps one endpoint ("METHOD /path") at Max requests per Window and
// per client.
type Rule struct {
	Max    int
	Window time.Duration
}

type bucket struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window limiter keyed by client and endpoint. Its
// rules come from the enabled rows of the rate_limits table (see Schema).
type RateLimiter struct {
	db      *sql.DB
	exclude []string // path prefixes never limited
	now     func() time.Time

	mu      sync.Mutex
	rules   map[string]Rule
	buckets map[string]*bucket
}

// NewRateLimiter loads the rules from db. Call StartReloader to pick up
// later edits of the table.
func NewRateLimiter(db *sql.DB, excludePrefixes ...string) *RateLimiter {
	rl := &RateLimiter{
		db:      db,
		exclude: excludePrefixes,
		now:     time.Now,
		rules:   make(map[string]Rule),
		buckets: make(map[string]*bucket),
	}
	if err := rl.reload(context.Background()); err != nil {
		slog.Default().Warn("shield: load rate limits", "error", err)
	}
	return rl
}

// StartReloader reloads the rules every minute and drops expired buckets
// every five, until ctx is done.
func (rl *RateLimiter) StartReloader(ctx context.Context) {
	reloadTick := time.NewTicker(time.Minute)
	gcTick := time.NewTicker(5 * time.Minute)
	go func() {
		defer reloadTick.Stop()
		defer gcTick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-reloadTick.C:
				if err := rl.reload(ctx); err != nil {
					slog.Default().Warn("shield: reload rate limits", "error", err)
				}
			case <-gcTick.C:
				rl.gc()
			}
		}
	}()
}

func (rl *RateLimiter) reload(ctx context.Context) error {
	rows, err := rl.db.QueryContext(ctx,
		`SELECT endpoint, max_requests, window_seconds FROM rate_limits WHERE enabled = 1`)
	if err != nil {
		return fmt.Errorf("shield: query rate limits: %w", err)
	}
	defer rows.Close()

	rules := make(map[string]Rule)
	for rows.Next() {
		var (
			endpoint      string
			limit, window int
		)
		if err := rows.Scan(&endpoint, &limit, &window); err != nil {
			return fmt.Errorf("shield: scan rate limit: %w", err)
		}
		if limit <= 0 || window <= 0 {
			continue
		}
		rules[endpoint] = Rule{Max: limit, Window: time.Duration(window) * time.Second}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("shield: read rate limits: %w", err)
	}

	rl.mu.Lock()
	rl.rules = rules
	rl.mu.Unlock()
	slog.Default().Debug("shield: rate limits loaded", "count", len(rules))
	return nil
}

func (rl *RateLimiter) gc() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, b := range rl.buckets {
		if now.After(b.resetAt) {
			delete(rl.buckets, k)
		}
	}
}

// take counts one request of client against endpoint. limited is false when
// no rule covers the endpoint.
func (rl *RateLimiter) take(client, endpoint string) (rule Rule, ok bool, remaining int, reset time.Time, limited bool) {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rule, limited = rl.rules[endpoint]
	if !limited {
		return rule, true, 0, time.Time{}, false
	}
	key := client + " " + endpoint
	b, found := rl.buckets[key]
	if !found || now.After(b.resetAt) {
		b = &bucket{resetAt: now.Add(rule.Window)}
		rl.buckets[key] = b
	}
	b.count++
	return rule, b.count <= rule.Max, max(rule.Max-b.count, 0), b.resetAt, true
}

// Middleware enforces the rules. Limited endpoints carry X-RateLimit-Limit
// and X-RateLimit-Remaining; blocked requests get 429 with Retry-After.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range rl.exclude {
			if strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
		}

		client := kit.GetRemoteAddr(r.Context())
		if client == "" {
			client = ExtractIP(r)
		}
		endpoint := r.Method + " " + r.URL.Path
		rule, ok, remaining, reset, limited := rl.take(client, endpoint)
		if !limited {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rule.Max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if ok {
			next.ServeHTTP(w, r)
			return
		}

		GetLogger(r.Context()).Warn("shield: rate limited", "client", client, "endpoint", endpoint)
		retry := int(reset.Sub(rl.now()).Seconds()) + 1
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "error",
			"reason": "rate limit exceeded",
		})
	})
}

// ExtractIP returns the client IP: the first X-Forwarded-For hop, else the
// host part of RemoteAddr.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
