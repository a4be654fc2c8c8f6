package browser

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/profilewatch/idgen"
)

//go:embed mutations.js
var mutationsJS string

// mutationHub fans DOM mutation signals out to subscribers. The signals come
// from a MutationObserver injected into every document of the tab, calling
// back through a Runtime binding; bursts are coalesced on the page side.
type mutationHub struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

func newMutationHub() *mutationHub {
	return &mutationHub{subs: make(map[int]chan struct{})}
}

func (h *mutationHub) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// notify signals every subscriber without blocking; a subscriber with a
// signal already pending is skipped.
func (h *mutationHub) notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *mutationHub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// installObserver registers the binding and the per-document observer
// script, then forwards binding calls to hub until ctx ends.
func installObserver(ctx context.Context, page *rod.Page, hub *mutationHub, logger *slog.Logger) error {
	name := idgen.Prefixed("pw_", idgen.NanoID(10))()

	if err := (proto.RuntimeAddBinding{Name: name}).Call(page); err != nil {
		return fmt.Errorf("browser: add binding: %w", err)
	}
	if _, err := page.EvalOnNewDocument(fmt.Sprintf(mutationsJS, name)); err != nil {
		return fmt.Errorf("browser: inject observer: %w", err)
	}

	go page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != name {
			return
		}
		hub.notify()
	})()

	logger.Debug("browser: mutation observer installed", "binding", name)
	return nil
}
