// Package orchestrator runs the scrape inside one isolated context. A fresh
// Orchestrator is built for every committed document; it picks its phase from
// the document URL:
//
//	main profile page  -> extract header, experience, education; hand off to
//	                      the skills page through persisted PhaseState, or
//	                      finish in place when there is no skills section
//	skills details page -> reload PhaseState, add skills, emit the result
//
// The Host in this package decides when an Orchestrator is built.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/profilewatch/config"
	"github.com/hazyhaar/profilewatch/debuglog"
	"github.com/hazyhaar/profilewatch/domwait"
	"github.com/hazyhaar/profilewatch/extract"
	"github.com/hazyhaar/profilewatch/interact"
	"github.com/hazyhaar/profilewatch/page"
	"github.com/hazyhaar/profilewatch/profile"
	"github.com/hazyhaar/profilewatch/protocol"
	"github.com/hazyhaar/profilewatch/statestore"
)

// Emitter receives the terminal completion of a run.
type Emitter func(protocol.Completion)

// SkillsFetcher loads the skills details page out of band, with the
// context's session credentials, and returns it unrendered.
type SkillsFetcher interface {
	FetchSkills(ctx context.Context, url string) (*goquery.Document, error)
}

// Deps are what an Orchestrator runs against.
type Deps struct {
	Page    page.Page
	Store   statestore.Store
	Scope   protocol.ContextID
	Fetcher SkillsFetcher // optional; tier 2 is skipped without it
	Emit    Emitter
	Config  *config.Config
	Logger  *slog.Logger
}

// Orchestrator is one run of the phase state machine.
type Orchestrator struct {
	page    page.Page
	store   statestore.Store
	scope   protocol.ContextID
	fetcher SkillsFetcher
	emit    Emitter
	cfg     *config.Config
	sel     config.Selectors
	rules   profile.Rules
	logger  *slog.Logger

	log       *debuglog.Log
	persisted []debuglog.Entry
	interact  *interact.Interactor
}

// New builds an Orchestrator for the current document.
func New(d Deps) *Orchestrator {
	if d.Config == nil {
		d.Config = config.Default()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Emit == nil {
		d.Emit = func(protocol.Completion) {}
	}
	log := debuglog.New(debuglog.SourceContent, d.Logger)
	return &Orchestrator{
		page:     d.Page,
		store:    d.Store,
		scope:    d.Scope,
		fetcher:  d.Fetcher,
		emit:     d.Emit,
		cfg:      d.Config,
		sel:      d.Config.Selectors,
		rules:    profile.Rules{Host: d.Config.Broker.Host, Prefix: d.Config.Broker.ProfilePrefix},
		logger:   d.Logger,
		log:      log,
		interact: interact.New(d.Config.Timings, d.Config.Selectors, log),
	}
}

// Logs returns the entries of this run.
func (o *Orchestrator) Logs() []debuglog.Entry { return o.log.Entries() }

// Run executes the phase implied by the current URL. It returns when the
// phase ends: after emitting a terminal completion, after handing off to the
// skills page, or immediately for pages that are not part of a profile.
func (o *Orchestrator) Run(ctx context.Context) {
	raw, err := o.page.URL(ctx)
	if err != nil {
		o.fail(fmt.Errorf("orchestrator: url: %w", err))
		return
	}
	u, err := url.Parse(raw)
	if err != nil {
		o.fail(fmt.Errorf("orchestrator: url %q: %w", raw, err))
		return
	}

	switch kind := o.rules.KindOf(u.Path); kind {
	case profile.KindMain:
		o.runMain(ctx, u)
	case profile.KindSkills:
		o.runSkills(ctx)
	default:
		o.log.Add("unknown-page-type", map[string]any{"href": raw})
	}
}

// settle waits for the content root, then the grace delay, then drives the
// page into showing everything.
func (o *Orchestrator) settle(ctx context.Context) error {
	t := o.cfg.Timings
	err := domwait.WaitForSelector(ctx, o.page, o.sel.ContentRoot, domwait.Options{
		Timeout: t.ObserverTimeout,
		Poll:    t.Poll,
	})
	if err != nil {
		return fmt.Errorf("orchestrator: content root: %w: %w", protocol.ErrExtractionNotReady, err)
	}
	if err := interact.Sleep(ctx, t.PostMainGrace); err != nil {
		return err
	}
	if err := o.interact.AutoScroll(ctx, o.page); err != nil {
		if ctx.Err() != nil {
			return err
		}
		o.log.Add("autoscroll-error", err)
	}
	if err := o.interact.ExpandTruncatedText(ctx, o.page); err != nil {
		if ctx.Err() != nil {
			return err
		}
		o.log.Add("expand-error", err)
	}
	return nil
}

func (o *Orchestrator) sectionsOpts() domwait.Options {
	return domwait.Options{Timeout: o.cfg.Timings.SectionsTimeout, Poll: o.cfg.Timings.Poll, Log: o.log}
}

func (o *Orchestrator) runMain(ctx context.Context, current *url.URL) {
	o.log.Add("phase-1-start", map[string]any{"url": current.String()})

	if err := o.store.Delete(ctx, o.scope); err != nil {
		o.log.Add("stale-state-delete-error", err)
	}
	if err := o.settle(ctx); err != nil {
		o.fail(err)
		return
	}

	opts := o.sectionsOpts()
	domwait.WaitForAll(ctx, o.page, []string{o.sel.Header.Name}, opts)
	for _, markers := range [][]string{o.sel.Ready.Experience, o.sel.Ready.Education, o.sel.Ready.Skills} {
		domwait.WaitForAny(ctx, o.page, markers, opts)
	}

	doc, err := o.page.Document(ctx)
	if err != nil {
		o.fail(fmt.Errorf("orchestrator: snapshot: %w", err))
		return
	}

	h := extract.ExtractHeader(doc, o.sel)
	if h.Name == nil {
		o.fail(fmt.Errorf("orchestrator: profile name not found: %w", protocol.ErrExtractionNotReady))
		return
	}
	draft := profile.New()
	draft.Name, draft.Headline, draft.Location, draft.About = h.Name, h.Headline, h.Location, h.About
	draft.Experiences = extract.Experiences(doc, o.sel, o.cfg.Limits.MaxExperiences)
	draft.Education = extract.Education(doc, o.sel, o.cfg.Limits.MaxEducation)

	basePath := extract.CanonicalPath(doc, o.sel, current.String())
	o.log.Add("main-extracted", map[string]any{
		"experiences": len(draft.Experiences),
		"education":   len(draft.Education),
	})

	if extract.HasSection(doc, o.sel.Sections.Skills, o.sel.SectionContainer) {
		o.handOff(ctx, doc, current, basePath, draft)
		return
	}

	o.log.Add("no-skills-section-found", nil)
	draft.Skills = o.skillsChain(ctx, doc, current, basePath)
	o.succeed(draft, nil)
}

// handOff persists the draft and navigates to the skills page. The phase
// ends without emitting; the next document's Orchestrator finishes.
func (o *Orchestrator) handOff(ctx context.Context, doc *goquery.Document, current *url.URL, basePath string, draft *profile.Profile) {
	skillsURL := o.skillsURL(doc, current, basePath)
	o.log.Add("navigating-to-skills", map[string]any{"url": skillsURL})

	st := &profile.PhaseState{
		Phase:           profile.PhaseAwaitSkills,
		ProfileBasePath: basePath,
		SkillsURL:       skillsURL,
		Partial:         *draft,
		Logs:            o.log.Entries(),
	}
	if err := o.store.Save(ctx, o.scope, st); err != nil {
		o.fail(fmt.Errorf("orchestrator: persist state: %w", err))
		return
	}
	if err := o.page.Navigate(ctx, skillsURL); err != nil {
		if derr := o.store.Delete(ctx, o.scope); derr != nil {
			o.log.Add("state-delete-error", derr)
		}
		o.fail(fmt.Errorf("orchestrator: navigate to skills: %w", err))
	}
}

// skillsURL prefers the discovered "show all" link when it points at the
// skills details page, else derives it from the canonical path.
func (o *Orchestrator) skillsURL(doc *goquery.Document, current *url.URL, basePath string) string {
	if href := extract.SkillsLink(doc, o.sel); href != "" {
		if ref, err := url.Parse(href); err == nil {
			abs := current.ResolveReference(ref)
			if o.rules.KindOf(abs.Path) == profile.KindSkills {
				return abs.String()
			}
		}
	}
	return profile.SkillsURL(profile.Origin(current), basePath)
}

func (o *Orchestrator) runSkills(ctx context.Context) {
	o.log.Add("phase-2-start", nil)

	st, err := o.store.Load(ctx, o.scope)
	if errors.Is(err, statestore.ErrNotFound) {
		o.fail(fmt.Errorf("orchestrator: skills page: %w", protocol.ErrMissingState))
		return
	}
	if err != nil {
		o.fail(fmt.Errorf("orchestrator: load state: %w", err))
		return
	}
	o.persisted = st.Logs

	if err := o.settle(ctx); err != nil {
		o.fail(err)
		return
	}
	domwait.WaitForAny(ctx, o.page, []string{o.sel.Items.Entity}, o.sectionsOpts())

	doc, err := o.page.Document(ctx)
	if err != nil {
		o.fail(fmt.Errorf("orchestrator: snapshot: %w", err))
		return
	}
	max := o.cfg.Limits.MaxSkills
	skills := extract.SkillsFromDocument(doc, o.sel, max)
	if len(skills) == 0 {
		skills = extract.InlineSkills(doc, o.sel, max)
		o.log.Add("skills-inline-used", map[string]any{"count": len(skills)})
	}
	o.log.Add("skills-extracted", map[string]any{"count": len(skills)})

	draft := st.Partial
	draft.Skills = profile.DedupSkills(append(draft.Skills, skills...), max)

	if err := o.store.Delete(ctx, o.scope); err != nil {
		o.log.Add("state-delete-error", err)
	}
	o.succeed(&draft, st.Logs)
}

func (o *Orchestrator) succeed(p *profile.Profile, persisted []debuglog.Entry) {
	o.log.Add("profile-ready", map[string]any{
		"experiences": len(p.Experiences),
		"education":   len(p.Education),
		"skills":      len(p.Skills),
	})
	o.emit(protocol.Scraped(p, debuglog.Concat(persisted, o.log.Entries())))
}

func (o *Orchestrator) fail(err error) {
	o.log.Add("profile-error", map[string]any{"reason": err.Error()})
	o.logger.Warn("orchestrator: scrape failed", "scope", string(o.scope), "error", err)
	o.emit(protocol.Failed(err, debuglog.Concat(o.persisted, o.log.Entries())))
}
