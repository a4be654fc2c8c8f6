package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/profilewatch/broker"
	"github.com/hazyhaar/profilewatch/config"
	"github.com/hazyhaar/profilewatch/orchestrator"
	"github.com/hazyhaar/profilewatch/protocol"
	"github.com/hazyhaar/profilewatch/statestore"
)

// OpenerConfig wires an Opener.
type OpenerConfig struct {
	Manager *Manager
	Config  *config.Config
	// Store holds PhaseState. Nil keeps it in each tab's sessionStorage.
	Store  statestore.Store
	Logger *slog.Logger
}

type session struct {
	tab    *Tab
	host   *orchestrator.Host
	router *rod.HijackRouter
	cancel context.CancelFunc
}

// Opener implements broker.ContextOpener with one stealth tab per context.
// Each tab gets a Host fed by the tab's frame events; completions and tab
// destruction are forwarded to the bound Receiver.
type Opener struct {
	cfg    OpenerConfig
	logger *slog.Logger

	mu       sync.Mutex
	recv     broker.Receiver
	sessions map[protocol.ContextID]*session
}

// NewOpener returns an Opener. Call Bind before the first Open.
func NewOpener(cfg OpenerConfig) *Opener {
	if cfg.Config == nil {
		cfg.Config = config.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	o := &Opener{
		cfg:      cfg,
		logger:   cfg.Logger,
		sessions: make(map[protocol.ContextID]*session),
	}
	cfg.Manager.setHooks(
		func() bool { return o.Len() > 0 },
		func(b *rod.Browser) { go o.watchTargets(b) },
	)
	return o
}

// Bind sets the receiver of completions and destruction notices and starts
// watching the browser's targets.
func (o *Opener) Bind(r broker.Receiver) {
	o.mu.Lock()
	o.recv = r
	o.mu.Unlock()
	if b := o.cfg.Manager.Browser(); b != nil {
		go o.watchTargets(b)
	}
}

func (o *Opener) receiver() broker.Receiver {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.recv
}

// Len returns the number of open contexts.
func (o *Opener) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sessions)
}

// Open creates a background stealth tab with its observer and Host.
func (o *Opener) Open(ctx context.Context) (protocol.ContextID, error) {
	b := o.cfg.Manager.Browser()
	if b == nil {
		return "", fmt.Errorf("browser: no active browser")
	}
	page, err := newStealthTab(b)
	if err != nil {
		return "", fmt.Errorf("browser: create tab: %w", err)
	}
	id := protocol.ContextID(page.TargetID)

	evCtx, cancel := context.WithCancel(context.Background())
	s := &session{cancel: cancel}
	if len(o.cfg.Config.Browser.ResourceBlocking) > 0 {
		s.router = blockResources(page, o.cfg.Config.Browser.ResourceBlocking)
	}

	hub := newMutationHub()
	if err := installObserver(evCtx, page, hub, o.logger); err != nil {
		// Readiness falls back to polling.
		o.logger.Warn("browser: mutation observer unavailable", "context", string(id), "error", err)
		hub = nil
	}
	s.tab = newTab(page, hub)

	store := o.cfg.Store
	if store == nil {
		store = statestore.NewSession(s.tab)
	}
	s.host = orchestrator.NewHost(orchestrator.HostConfig{
		Scope: id,
		Page:  s.tab,
		Store: store,
		Fetcher: &SessionFetcher{
			Source:  s.tab,
			Timeout: o.cfg.Config.Timings.FetchTimeout,
		},
		Config: o.cfg.Config,
		Logger: o.logger,
		Complete: func(id protocol.ContextID, c protocol.Completion) {
			// The Host's goroutine must not wait on the broker, which closes
			// this context and with it the Host.
			if r := o.receiver(); r != nil {
				go r.OnCompletionMessage(id, c)
			}
		},
	})

	go page.Context(evCtx).EachEvent(
		func(e *proto.PageFrameNavigated) {
			if e.Frame.ParentID != "" {
				return
			}
			s.host.DocumentCommitted(string(e.Frame.LoaderID), e.Frame.URL)
		},
		func(e *proto.PageNavigatedWithinDocument) {
			if e.FrameID != page.FrameID {
				return
			}
			s.host.RouteChanged(e.URL)
		},
	)()

	o.mu.Lock()
	o.sessions[id] = s
	o.mu.Unlock()

	o.logger.Info("browser: context opened", "context", string(id))
	return id, nil
}

// tabTarget opens a blank tab without activating it, so scrapes never steal
// focus from a headful window.
var tabTarget = proto.TargetCreateTarget{URL: "about:blank", Background: true}

// newStealthTab creates a background tab with the stealth evasions installed
// before any document runs.
func newStealthTab(b *rod.Browser) (*rod.Page, error) {
	page, err := b.Page(tabTarget)
	if err != nil {
		return nil, err
	}
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("stealth: %w", err)
	}
	return page, nil
}

// Load navigates the context's tab to url.
func (o *Opener) Load(ctx context.Context, id protocol.ContextID, url string) error {
	o.mu.Lock()
	s, ok := o.sessions[id]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("browser: load: unknown context %s", id)
	}
	return s.tab.Navigate(ctx, url)
}

// Close tears down the context. Unknown contexts are ignored.
func (o *Opener) Close(ctx context.Context, id protocol.ContextID) error {
	s := o.remove(id)
	if s == nil {
		return nil
	}
	o.teardown(s)
	if err := s.tab.Close(); err != nil {
		return fmt.Errorf("browser: close %s: %w", id, err)
	}
	o.logger.Info("browser: context closed", "context", string(id))
	return nil
}

func (o *Opener) remove(id protocol.ContextID) *session {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[id]
	if !ok {
		return nil
	}
	delete(o.sessions, id)
	return s
}

func (o *Opener) teardown(s *session) {
	s.host.Close()
	s.cancel()
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			o.logger.Debug("browser: stop hijack router", "error", err)
		}
	}
}

// watchTargets reports tabs destroyed outside of Close (crash, user action).
func (o *Opener) watchTargets(b *rod.Browser) {
	b.EachEvent(func(e *proto.TargetTargetDestroyed) {
		id := protocol.ContextID(e.TargetID)
		s := o.remove(id)
		if s == nil {
			return
		}
		o.logger.Warn("browser: context destroyed", "context", string(id))
		go o.teardown(s)
		if r := o.receiver(); r != nil {
			r.OnContextDestroyed(id)
		}
	})()
}

// CloseAll closes every open context.
func (o *Opener) CloseAll(ctx context.Context) {
	o.mu.Lock()
	ids := make([]protocol.ContextID, 0, len(o.sessions))
	for id := range o.sessions {
		ids = append(ids, id)
	}
	o.mu.Unlock()
	for _, id := range ids {
		if err := o.Close(ctx, id); err != nil {
			o.logger.Warn("browser: close all", "context", string(id), "error", err)
		}
	}
}
