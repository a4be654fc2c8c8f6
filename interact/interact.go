// Package interact drives the page into showing its full content: scrolling
// to trigger lazy loading, expanding truncated text and opening the complete
// skills list.
package interact

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/profilewatch/config"
	"github.com/hazyhaar/profilewatch/debuglog"
	"github.com/hazyhaar/profilewatch/page"
)

// Interactor bundles the timings, selectors and log used by every action.
type Interactor struct {
	Timings   config.Timings
	Selectors config.Selectors
	Log       *debuglog.Log
}

// New creates an Interactor.
func New(t config.Timings, s config.Selectors, log *debuglog.Log) *Interactor {
	return &Interactor{Timings: t, Selectors: s, Log: log}
}

func (in *Interactor) log(step string, meta any) {
	if in.Log != nil {
		in.Log.Add(step, meta)
	}
}

// AutoScroll scrolls down in steps, returns to the top, then clicks any
// "show more results" control once.
func (in *Interactor) AutoScroll(ctx context.Context, p page.Page) error {
	in.log("autoscroll-start", map[string]any{"steps": in.Timings.ScrollSteps})
	for i := 0; i < in.Timings.ScrollSteps; i++ {
		if err := p.ScrollBy(ctx, in.Timings.ScrollStepPX); err != nil {
			return fmt.Errorf("interact: scroll: %w", err)
		}
		if err := Sleep(ctx, in.Timings.ScrollDelay); err != nil {
			return err
		}
	}
	if err := p.ScrollTop(ctx); err != nil {
		return fmt.Errorf("interact: scroll top: %w", err)
	}

	n, err := ClickMatching(ctx, p, in.Selectors.Clickables.Expand, in.Selectors.Patterns.ShowMoreResults)
	if err != nil {
		return err
	}
	if n > 0 {
		if err := Sleep(ctx, in.Timings.ShowMoreDelay); err != nil {
			return err
		}
	}
	in.log("autoscroll-done", map[string]any{"showMoreClicked": n})
	return nil
}

// ClickMatching clicks every visible element matching selector whose label
// matches any pattern. It returns the number of clicks.
func ClickMatching(ctx context.Context, p page.Page, selector string, patterns []config.Pattern) (int, error) {
	n, err := p.ClickWhere(ctx, selector, false, func(label string) bool {
		return config.MatchAny(patterns, label)
	})
	if err != nil {
		return n, fmt.Errorf("interact: click %q: %w", selector, err)
	}
	return n, nil
}

// ExpandTruncatedText clicks "see more" style controls for up to
// ExpandRounds rounds, stopping at the first round that clicks nothing.
func (in *Interactor) ExpandTruncatedText(ctx context.Context, p page.Page) error {
	for round := 1; round <= in.Timings.ExpandRounds; round++ {
		n, err := ClickMatching(ctx, p, in.Selectors.Clickables.Expand, in.Selectors.Patterns.Expand)
		if err != nil {
			return err
		}
		in.log("expand-round", map[string]any{"round": round, "clicked": n})
		if n == 0 {
			return nil
		}
		if err := Sleep(ctx, in.Timings.ExpandDelay); err != nil {
			return err
		}
	}
	return nil
}

// ClickShowAllSkills clicks the first visible "show all N skills" trigger.
func (in *Interactor) ClickShowAllSkills(ctx context.Context, p page.Page) (bool, error) {
	pat := in.Selectors.Patterns.ShowAllSkills
	n, err := p.ClickWhere(ctx, in.Selectors.Clickables.ShowAll, true, pat.MatchString)
	if err != nil {
		return false, fmt.Errorf("interact: show all skills: %w", err)
	}
	return n > 0, nil
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
