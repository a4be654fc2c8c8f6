// Package domwait waits for markup to appear in a live page. Single-selector
// waits react to DOM mutations when the page can report them; multi-selector
// waits poll and degrade to a boolean.
package domwait

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/profilewatch/debuglog"
	"github.com/hazyhaar/profilewatch/page"
	"github.com/hazyhaar/profilewatch/protocol"
)

// Options control a wait.
type Options struct {
	Timeout time.Duration
	Poll    time.Duration
	Log     *debuglog.Log // optional
}

func (o Options) poll() time.Duration {
	if o.Poll <= 0 {
		return 250 * time.Millisecond
	}
	return o.Poll
}

// WaitForSelector returns nil once selector matches. It fails with an error
// wrapping protocol.ErrTimeout when o.Timeout elapses first. The mutation
// subscription, if any, is released on every path.
func WaitForSelector(ctx context.Context, p page.Page, selector string, o Options) error {
	var notify <-chan struct{}
	if ms, ok := p.(page.MutationSource); ok {
		ch, cancel, err := ms.Mutations(ctx)
		if err == nil {
			defer cancel()
			notify = ch
		}
	}

	if found, err := exists(ctx, p, selector); err != nil {
		return err
	} else if found {
		return nil
	}

	deadline := time.NewTimer(o.Timeout)
	defer deadline.Stop()
	tick := time.NewTicker(o.poll())
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("domwait: %q: %w", selector, ctx.Err())
		case <-deadline.C:
			return fmt.Errorf("domwait: %q: %w", selector, protocol.ErrTimeout)
		case <-notify:
		case <-tick.C:
		}
		found, err := exists(ctx, p, selector)
		if err != nil {
			return err
		}
		if found {
			return nil
		}
	}
}

// WaitForAll polls until every selector matches. On timeout it logs
// sections-timeout with the selectors still missing and returns false.
func WaitForAll(ctx context.Context, p page.Page, selectors []string, o Options) bool {
	return pollUntil(ctx, p, selectors, o, true, "sections-timeout")
}

// WaitForAny polls until at least one selector matches. On timeout it logs
// section-any-timeout and returns false.
func WaitForAny(ctx context.Context, p page.Page, selectors []string, o Options) bool {
	return pollUntil(ctx, p, selectors, o, false, "section-any-timeout")
}

func pollUntil(ctx context.Context, p page.Page, selectors []string, o Options, all bool, timeoutStep string) bool {
	if len(selectors) == 0 {
		return true
	}
	deadline := time.Now().Add(o.Timeout)
	for {
		missing := missingSelectors(ctx, p, selectors)
		if all && len(missing) == 0 {
			return true
		}
		if !all && len(missing) < len(selectors) {
			return true
		}
		if !time.Now().Before(deadline) || ctx.Err() != nil {
			if o.Log != nil {
				o.Log.Add(timeoutStep, map[string]any{"missing": missing})
			}
			return false
		}
		select {
		case <-ctx.Done():
		case <-time.After(o.poll()):
		}
	}
}

func missingSelectors(ctx context.Context, p page.Page, selectors []string) []string {
	missing := make([]string, 0, len(selectors))
	for _, sel := range selectors {
		found, err := exists(ctx, p, sel)
		if err != nil || !found {
			missing = append(missing, sel)
		}
	}
	return missing
}

// exists tolerates evaluation errors while the context is alive: a document
// in the middle of a re-render can fail a query once.
func exists(ctx context.Context, p page.Page, selector string) (bool, error) {
	found, err := p.Exists(ctx, selector)
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("domwait: %q: %w", selector, ctx.Err())
		}
		return false, nil
	}
	return found, nil
}
