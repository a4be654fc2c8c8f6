// Package broker accepts scrape requests, opens one isolated context per
// request, and turns whatever happens to that context (a completion message,
// the deadline, the context disappearing) into exactly one Response.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/profilewatch/debuglog"
	"github.com/hazyhaar/profilewatch/idgen"
	"github.com/hazyhaar/profilewatch/kit"
	"github.com/hazyhaar/profilewatch/profile"
	"github.com/hazyhaar/profilewatch/protocol"
)

// ContextOpener manages isolated execution contexts.
type ContextOpener interface {
	// Open creates a new context, inactive and not yet navigated.
	Open(ctx context.Context) (protocol.ContextID, error)
	// Load navigates the context to url.
	Load(ctx context.Context, id protocol.ContextID, url string) error
	// Close disposes of the context. Closing an unknown context is not an error.
	Close(ctx context.Context, id protocol.ContextID) error
}

// Receiver is notified by the context layer. *Broker implements it.
type Receiver interface {
	OnCompletionMessage(id protocol.ContextID, c protocol.Completion)
	OnContextDestroyed(id protocol.ContextID)
}

// ResultSink is offered every terminal response.
type ResultSink interface {
	SaveResult(ctx context.Context, r protocol.Response) error
}

var errTimedOut = fmt.Errorf("%w waiting for profile scrape", protocol.ErrTimeout)

// Pending is a submitted request awaiting its single response.
type Pending struct {
	RequestID string
	URL       string
	ContextID protocol.ContextID

	done chan struct{}
	resp protocol.Response
}

// Done is closed once the response is available.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the response is available or ctx ends. A caller giving
// up does not resolve the request; its deadline still does.
func (p *Pending) Wait(ctx context.Context) (protocol.Response, error) {
	select {
	case <-p.done:
		return p.resp, nil
	case <-ctx.Done():
		return protocol.Response{}, fmt.Errorf("broker: wait %s: %w", p.RequestID, ctx.Err())
	}
}

type entry struct {
	p     *Pending
	timer *time.Timer
}

// Option configures a Broker.
type Option func(*Broker)

// WithTimeout sets the per-request deadline.
func WithTimeout(d time.Duration) Option { return func(b *Broker) { b.timeout = d } }

// WithRules sets the accepted profile host and path prefix.
func WithRules(r profile.Rules) Option { return func(b *Broker) { b.rules = r } }

// WithResultSink records every terminal response.
func WithResultSink(s ResultSink) Option { return func(b *Broker) { b.sink = s } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(b *Broker) { b.logger = l } }

// WithRequestIDs replaces the request ID generator.
func WithRequestIDs(g idgen.Generator) Option { return func(b *Broker) { b.ids = g } }

// WithClock replaces time.Now for ScrapedAt stamps.
func WithClock(now func() time.Time) Option { return func(b *Broker) { b.now = now } }

// Broker correlates requests with contexts.
type Broker struct {
	opener  ContextOpener
	timeout time.Duration
	rules   profile.Rules
	sink    ResultSink
	logger  *slog.Logger
	ids     idgen.Generator
	now     func() time.Time

	mu      sync.Mutex
	pending map[protocol.ContextID]*entry
	byID    map[string]protocol.ContextID
}

// New returns a Broker opening contexts through opener.
func New(opener ContextOpener, opts ...Option) *Broker {
	b := &Broker{
		opener:  opener,
		timeout: 60 * time.Second,
		rules:   profile.Rules{Host: "www.linkedin.com", Prefix: "/in/"},
		logger:  slog.Default(),
		ids:     idgen.RequestIDs(),
		now:     time.Now,
		pending: make(map[protocol.ContextID]*entry),
		byID:    make(map[string]protocol.ContextID),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Submit validates rawURL, opens a context, registers the request with its
// deadline and starts loading the page. Invalid URLs fail before any context
// is opened. A load failure resolves the returned Pending immediately.
func (b *Broker) Submit(ctx context.Context, rawURL string) (*Pending, error) {
	if _, err := b.rules.ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("broker: submit: %w", err)
	}

	cid, err := b.opener.Open(ctx)
	if err != nil {
		b.logger.Warn("broker: open context failed", "url", rawURL, "error", err)
		return nil, fmt.Errorf("broker: submit: %w: %w", protocol.ErrContextOpenFailed, err)
	}

	p := &Pending{
		URL:       rawURL,
		ContextID: cid,
		done:      make(chan struct{}),
	}
	b.mu.Lock()
	// A caller-supplied ID is kept unless it is already in flight.
	p.RequestID = kit.GetRequestID(ctx)
	if _, dup := b.byID[p.RequestID]; p.RequestID == "" || dup {
		p.RequestID = b.ids()
	}
	b.pending[cid] = &entry{
		p:     p,
		timer: time.AfterFunc(b.timeout, func() { b.onTimeout(cid) }),
	}
	b.byID[p.RequestID] = cid
	b.mu.Unlock()

	b.logger.Info("broker: scrape submitted", "request_id", p.RequestID, "context", string(cid), "url", rawURL)

	if err := b.opener.Load(ctx, cid, rawURL); err != nil {
		b.logger.Warn("broker: load failed", "request_id", p.RequestID, "error", err)
		b.resolve(cid, protocol.ErrorResponse(fmt.Errorf("%w: %w", protocol.ErrContextOpenFailed, err), nil), true)
	}
	return p, nil
}

// Scrape submits rawURL and waits for its response. Synchronous failures
// become error responses.
func (b *Broker) Scrape(ctx context.Context, rawURL string) protocol.Response {
	p, err := b.Submit(ctx, rawURL)
	if err != nil {
		resp := protocol.ErrorResponse(err, nil)
		resp.URL = rawURL
		return resp
	}
	resp, err := p.Wait(ctx)
	if err != nil {
		resp = protocol.ErrorResponse(err, nil)
		resp.RequestID, resp.URL = p.RequestID, p.URL
	}
	return resp
}

// OnCompletionMessage resolves the request owning id. Messages for contexts
// with no pending request are ignored.
func (b *Broker) OnCompletionMessage(id protocol.ContextID, c protocol.Completion) {
	var resp protocol.Response
	switch c.Action {
	case protocol.ActionProfileScraped:
		resp = protocol.SuccessResponse(c.Profile, b.now(), c.DebugLogs)
	case protocol.ActionProfileError:
		resp = protocol.Response{
			Status: protocol.StatusError,
			Reason: c.Reason,
			Code:   c.Code,
			Debug:  debuglog.Concat(c.DebugLogs),
		}
		if resp.Code == "" {
			resp.Code = protocol.CodeScrapeFailed
		}
	default:
		b.logger.Debug("broker: ignoring message", "context", string(id), "action", c.Action)
		return
	}
	if !b.resolve(id, resp, true) {
		b.logger.Debug("broker: completion for unknown context", "context", string(id))
	}
}

// OnContextDestroyed fails the request owning id, if any. The context is
// already gone, so it is not closed again.
func (b *Broker) OnContextDestroyed(id protocol.ContextID) {
	b.resolve(id, protocol.ErrorResponse(protocol.ErrContextDestroyed, nil), false)
}

func (b *Broker) onTimeout(id protocol.ContextID) {
	b.resolve(id, protocol.ErrorResponse(errTimedOut, nil), true)
}

// resolve delivers resp to the request owning id. It reports false when
// there is none. The entry is removed under the lock; the sink, the context
// close and delivery happen outside it, delivery last.
func (b *Broker) resolve(id protocol.ContextID, resp protocol.Response, closeCtx bool) bool {
	b.mu.Lock()
	e, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
		delete(b.byID, e.p.RequestID)
		e.timer.Stop()
	}
	b.mu.Unlock()
	if !ok {
		return false
	}

	resp.RequestID, resp.URL = e.p.RequestID, e.p.URL
	e.p.resp = resp
	defer close(e.p.done)

	b.logger.Info("broker: scrape resolved",
		"request_id", resp.RequestID,
		"context", string(id),
		"status", resp.Status,
		"code", resp.Code,
	)

	if b.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := b.sink.SaveResult(ctx, resp); err != nil {
			b.logger.Warn("broker: save result", "request_id", resp.RequestID, "error", err)
		}
		cancel()
	}
	if closeCtx {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := b.opener.Close(ctx, id); err != nil {
			b.logger.Warn("broker: close context", "context", string(id), "error", err)
		}
		cancel()
	}
	return true
}

// InFlight reports whether requestID is still awaiting its response.
func (b *Broker) InFlight(requestID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.byID[requestID]
	return ok
}

// Len returns the number of pending requests.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
