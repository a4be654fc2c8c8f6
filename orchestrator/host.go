package orchestrator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hazyhaar/profilewatch/config"
	"github.com/hazyhaar/profilewatch/interact"
	"github.com/hazyhaar/profilewatch/page"
	"github.com/hazyhaar/profilewatch/protocol"
	"github.com/hazyhaar/profilewatch/statestore"
)

// HostConfig wires a Host to its tab.
type HostConfig struct {
	Scope    protocol.ContextID
	Page     page.Page
	Store    statestore.Store
	Fetcher  SkillsFetcher
	Config   *config.Config
	Logger   *slog.Logger
	Complete func(protocol.ContextID, protocol.Completion)
}

type hostEvent struct {
	loaderID string // empty for in-document route changes
	url      string
}

// Host owns the orchestration of one tab. Browser events are queued and
// handled one at a time on a single goroutine, so at most one Orchestrator
// runs per tab. Each committed document is booted at most once, and nothing
// is booted after a terminal completion.
type Host struct {
	cfg    HostConfig
	events chan hostEvent
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Owned by the loop goroutine.
	booted map[string]bool
	done   bool
}

// NewHost starts the event loop.
func NewHost(cfg HostConfig) *Host {
	if cfg.Config == nil {
		cfg.Config = config.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Complete == nil {
		cfg.Complete = func(protocol.ContextID, protocol.Completion) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Host{
		cfg:    cfg,
		events: make(chan hostEvent, 32),
		ctx:    ctx,
		cancel: cancel,
		booted: make(map[string]bool),
	}
	h.wg.Add(1)
	go h.loop()
	return h
}

// DocumentCommitted reports a new document in the tab's main frame.
func (h *Host) DocumentCommitted(loaderID, url string) {
	h.enqueue(hostEvent{loaderID: loaderID, url: url})
}

// RouteChanged reports a same-document (history API) navigation.
func (h *Host) RouteChanged(url string) {
	h.enqueue(hostEvent{url: url})
}

func (h *Host) enqueue(ev hostEvent) {
	select {
	case <-h.ctx.Done():
	case h.events <- ev:
	default:
		h.cfg.Logger.Warn("host: event queue full, dropping", "scope", string(h.cfg.Scope), "url", ev.url)
	}
}

// Close stops the loop and cancels a running Orchestrator.
func (h *Host) Close() {
	h.cancel()
	h.wg.Wait()
}

func (h *Host) loop() {
	defer h.wg.Done()
	for {
		select {
		case <-h.ctx.Done():
			return
		case ev := <-h.events:
			h.handle(ev)
		}
	}
}

func (h *Host) handle(ev hostEvent) {
	logger := h.cfg.Logger.With("scope", string(h.cfg.Scope), "url", ev.url)

	if ev.loaderID != "" {
		if h.booted[ev.loaderID] {
			logger.Debug("host: document already booted", "loader", ev.loaderID)
			return
		}
		h.booted[ev.loaderID] = true
	} else {
		logger.Debug("host: route change, settling")
		if err := interact.Sleep(h.ctx, h.cfg.Config.Timings.SPASettle); err != nil {
			return
		}
	}
	if h.done {
		logger.Debug("host: scrape already complete, not booting")
		return
	}

	logger.Info("host: booting orchestrator")
	o := New(Deps{
		Page:    h.cfg.Page,
		Store:   h.cfg.Store,
		Scope:   h.cfg.Scope,
		Fetcher: h.cfg.Fetcher,
		Config:  h.cfg.Config,
		Logger:  h.cfg.Logger,
		Emit: func(c protocol.Completion) {
			h.done = true
			h.cfg.Complete(h.cfg.Scope, c)
		},
	})
	o.Run(h.ctx)
}
