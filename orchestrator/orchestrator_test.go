package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/profilewatch/config"
	"github.com/hazyhaar/profilewatch/debuglog"
	"github.com/hazyhaar/profilewatch/page/pagetest"
	"github.com/hazyhaar/profilewatch/profile"
	"github.com/hazyhaar/profilewatch/protocol"
	"github.com/hazyhaar/profilewatch/statestore"
)

const scope = protocol.ContextID("tab-1")

func fastConfig() *config.Config {
	cfg := config.Default()
	t := &cfg.Timings
	t.Poll = 2 * time.Millisecond
	t.ObserverTimeout = 100 * time.Millisecond
	t.SectionsTimeout = 20 * time.Millisecond
	t.PostMainGrace = time.Millisecond
	t.ScrollSteps = 2
	t.ScrollDelay = time.Millisecond
	t.ShowMoreDelay = time.Millisecond
	t.ExpandDelay = time.Millisecond
	t.ShowAllSettle = time.Millisecond
	t.ShowAllWait = 10 * time.Millisecond
	t.SPASettle = 5 * time.Millisecond
	return cfg
}

// recorder collects completions.
type recorder struct {
	mu  sync.Mutex
	got []protocol.Completion
}

func (r *recorder) emit(c protocol.Completion) {
	r.mu.Lock()
	r.got = append(r.got, c)
	r.mu.Unlock()
}

func (r *recorder) all() []protocol.Completion {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Completion(nil), r.got...)
}

type fakeFetcher struct {
	html string
	err  error
	urls []string
}

func (f *fakeFetcher) FetchSkills(_ context.Context, url string) (*goquery.Document, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(f.html))
}

func steps(entries []debuglog.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Step
	}
	return out
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func skillNames(p *profile.Profile) []string {
	var out []string
	for _, s := range p.Skills {
		out = append(out, s.Name)
	}
	return out
}

// navigateTo swaps the page to html at the navigated URL.
func navigateTo(html string) func(*pagetest.Page, string) error {
	return func(p *pagetest.Page, url string) error {
		p.SetURL(url)
		p.SetHTML(html)
		return nil
	}
}

func TestTwoPhaseFlow(t *testing.T) {
	ctx := context.Background()
	cfg := fastConfig()
	store := statestore.NewMemory()
	rec := &recorder{}
	p := pagetest.New(pagetest.ProfileURL, pagetest.ProfileHTML)
	p.OnNavigate = navigateTo(pagetest.SkillsHTML)

	deps := Deps{Page: p, Store: store, Scope: scope, Config: cfg, Emit: rec.emit}

	New(deps).Run(ctx)

	if got := rec.all(); len(got) != 0 {
		t.Fatalf("main phase emitted %d completions, want 0", len(got))
	}
	if diff := cmp.Diff([]string{pagetest.SkillsURL}, p.Navigations()); diff != "" {
		t.Fatalf("navigations (-want +got):\n%s", diff)
	}
	st, err := store.Load(ctx, scope)
	if err != nil {
		t.Fatalf("state after main phase: %v", err)
	}
	if profile.Deref(st.Partial.Name) != "Jane Doe" || st.SkillsURL != pagetest.SkillsURL || st.ProfileBasePath != "/in/jane-doe" {
		t.Errorf("state: got name=%q url=%q base=%q", profile.Deref(st.Partial.Name), st.SkillsURL, st.ProfileBasePath)
	}

	// The navigation committed a new document: a fresh Orchestrator runs.
	New(deps).Run(ctx)

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("completions: got %d, want 1", len(got))
	}
	c := got[0]
	if c.Action != protocol.ActionProfileScraped {
		t.Fatalf("action: got %q (%s)", c.Action, c.Reason)
	}
	if diff := cmp.Diff([]string{"Go", "Distributed Systems"}, skillNames(c.Profile)); diff != "" {
		t.Errorf("skills (-want +got):\n%s", diff)
	}
	if profile.Deref(c.Profile.Name) != "Jane Doe" || len(c.Profile.Experiences) != 2 || len(c.Profile.Education) != 2 {
		t.Errorf("profile: got %+v", c.Profile)
	}

	s := steps(c.DebugLogs)
	first, nav, second := indexOf(s, "phase-1-start"), indexOf(s, "navigating-to-skills"), indexOf(s, "phase-2-start")
	if first != 0 || nav < 0 || second < nav {
		t.Errorf("log order: phase-1-start@%d navigating-to-skills@%d phase-2-start@%d in %v", first, nav, second, s)
	}

	if _, err := store.Load(ctx, scope); !errors.Is(err, statestore.ErrNotFound) {
		t.Errorf("state after skills phase: got %v, want ErrNotFound", err)
	}
}

func TestMain_NoSkillsSection(t *testing.T) {
	rec := &recorder{}
	p := pagetest.New(pagetest.ProfileURL, pagetest.BareProfileHTML)
	New(Deps{Page: p, Store: statestore.NewMemory(), Scope: scope, Config: fastConfig(), Emit: rec.emit}).Run(context.Background())

	got := rec.all()
	if len(got) != 1 || got[0].Action != protocol.ActionProfileScraped {
		t.Fatalf("completions: got %+v", got)
	}
	if len(p.Navigations()) != 0 {
		t.Errorf("navigated without a skills section: %v", p.Navigations())
	}
	data, err := json.Marshal(got[0].Profile)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"name":"John Roe"`, `"experiences":[]`, `"education":[]`, `"skills":[]`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("profile %s missing %s", data, want)
		}
	}
	if indexOf(steps(got[0].DebugLogs), "skills-inline-used") < 0 {
		t.Errorf("inline tier not logged: %v", steps(got[0].DebugLogs))
	}
}

func TestMain_SkillsFromFetchedDetails(t *testing.T) {
	rec := &recorder{}
	f := &fakeFetcher{html: pagetest.SkillsHTML}
	p := pagetest.New(pagetest.ProfileURL, pagetest.BareProfileHTML)
	New(Deps{Page: p, Store: statestore.NewMemory(), Scope: scope, Fetcher: f, Config: fastConfig(), Emit: rec.emit}).Run(context.Background())

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("completions: got %d", len(got))
	}
	if diff := cmp.Diff([]string{pagetest.SkillsURL}, f.urls); diff != "" {
		t.Errorf("fetched (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Go", "Distributed Systems"}, skillNames(got[0].Profile)); diff != "" {
		t.Errorf("skills (-want +got):\n%s", diff)
	}
	if indexOf(steps(got[0].DebugLogs), "skills-from-details") < 0 {
		t.Errorf("details tier not logged: %v", steps(got[0].DebugLogs))
	}
}

func TestMain_FetchFailureFallsBack(t *testing.T) {
	rec := &recorder{}
	f := &fakeFetcher{err: errors.New("status 999")}
	p := pagetest.New(pagetest.ProfileURL, pagetest.BareProfileHTML)
	New(Deps{Page: p, Store: statestore.NewMemory(), Scope: scope, Fetcher: f, Config: fastConfig(), Emit: rec.emit}).Run(context.Background())

	got := rec.all()
	if len(got) != 1 || got[0].Action != protocol.ActionProfileScraped {
		t.Fatalf("completions: got %+v", got)
	}
	s := steps(got[0].DebugLogs)
	if indexOf(s, "skills-fetch-fallback") < 0 || indexOf(s, "skills-inline-used") < 0 {
		t.Errorf("fallback not logged: %v", s)
	}
}

func TestMain_StaleStateCleared(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemory()
	stale := &profile.PhaseState{Phase: profile.PhaseAwaitSkills, Partial: profile.Profile{Name: profile.Str("Old")}}
	if err := store.Save(ctx, scope, stale); err != nil {
		t.Fatal(err)
	}
	p := pagetest.New(pagetest.ProfileURL, pagetest.BareProfileHTML)
	New(Deps{Page: p, Store: store, Scope: scope, Config: fastConfig()}).Run(ctx)

	if _, err := store.Load(ctx, scope); !errors.Is(err, statestore.ErrNotFound) {
		t.Errorf("stale state survived: %v", err)
	}
}

// undeletable refuses every Delete.
type undeletable struct {
	*statestore.Memory
}

func (undeletable) Delete(context.Context, protocol.ContextID) error {
	return errors.New("store offline")
}

func TestMain_NavigateFailureLogsDeleteError(t *testing.T) {
	rec := &recorder{}
	p := pagetest.New(pagetest.ProfileURL, pagetest.ProfileHTML)
	p.OnNavigate = func(*pagetest.Page, string) error { return errors.New("target closed") }
	store := undeletable{statestore.NewMemory()}

	New(Deps{Page: p, Store: store, Scope: scope, Config: fastConfig(), Emit: rec.emit}).Run(context.Background())

	got := rec.all()
	if len(got) != 1 || got[0].Action != protocol.ActionProfileError {
		t.Fatalf("completions: got %+v", got)
	}
	if !strings.Contains(got[0].Reason, "navigate to skills") {
		t.Errorf("reason: got %q", got[0].Reason)
	}
	s := steps(got[0].DebugLogs)
	del, failed := indexOf(s, "state-delete-error"), indexOf(s, "profile-error")
	if del < 0 || failed < del {
		t.Errorf("state-delete-error@%d profile-error@%d in %v", del, failed, s)
	}
}

func TestMain_NameMissing(t *testing.T) {
	rec := &recorder{}
	p := pagetest.New(pagetest.ProfileURL, `<main><p>loading…</p></main>`)
	New(Deps{Page: p, Store: statestore.NewMemory(), Scope: scope, Config: fastConfig(), Emit: rec.emit}).Run(context.Background())

	got := rec.all()
	if len(got) != 1 || got[0].Action != protocol.ActionProfileError {
		t.Fatalf("completions: got %+v", got)
	}
	if got[0].Code != protocol.CodeExtractionNotReady {
		t.Errorf("code: got %q, want %q", got[0].Code, protocol.CodeExtractionNotReady)
	}
	s := steps(got[0].DebugLogs)
	if indexOf(s, "sections-timeout") < 0 || s[len(s)-1] != "profile-error" {
		t.Errorf("logs: %v", s)
	}
}

func TestMain_NoContentRoot(t *testing.T) {
	rec := &recorder{}
	p := pagetest.New(pagetest.ProfileURL, `<div>blank</div>`)
	New(Deps{Page: p, Store: statestore.NewMemory(), Scope: scope, Config: fastConfig(), Emit: rec.emit}).Run(context.Background())

	got := rec.all()
	if len(got) != 1 || got[0].Code != protocol.CodeExtractionNotReady {
		t.Fatalf("completions: got %+v", got)
	}
}

func TestSkills_MissingState(t *testing.T) {
	rec := &recorder{}
	p := pagetest.New(pagetest.SkillsURL, pagetest.SkillsHTML)
	New(Deps{Page: p, Store: statestore.NewMemory(), Scope: scope, Config: fastConfig(), Emit: rec.emit}).Run(context.Background())

	got := rec.all()
	if len(got) != 1 || got[0].Action != protocol.ActionProfileError {
		t.Fatalf("completions: got %+v", got)
	}
	if got[0].Code != protocol.CodeMissingState {
		t.Errorf("code: got %q, want %q", got[0].Code, protocol.CodeMissingState)
	}
}

func TestSkills_MergesPersistedDraft(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemory()
	persisted := []debuglog.Entry{{Step: "navigating-to-skills", Source: debuglog.SourceContent, Timestamp: time.Now().UTC()}}
	st := &profile.PhaseState{
		Phase:   profile.PhaseAwaitSkills,
		Partial: profile.Profile{Name: profile.Str("Jane Doe")},
		Logs:    persisted,
	}
	if err := store.Save(ctx, scope, st); err != nil {
		t.Fatal(err)
	}

	// A skills URL whose document carries the inline section layout.
	rec := &recorder{}
	html := `<main><section><div id="skills"></div><ul>
		<li><div data-view-name="profile-component-entity"><div class="t-bold"><span aria-hidden="true">Rust</span></div></div></li>
	</ul></section></main>`
	p := pagetest.New(pagetest.SkillsURL, html)
	New(Deps{Page: p, Store: store, Scope: scope, Config: fastConfig(), Emit: rec.emit}).Run(ctx)

	got := rec.all()
	if len(got) != 1 || got[0].Action != protocol.ActionProfileScraped {
		t.Fatalf("completions: got %+v", got)
	}
	if diff := cmp.Diff([]string{"Rust"}, skillNames(got[0].Profile)); diff != "" {
		t.Errorf("skills (-want +got):\n%s", diff)
	}
	if s := steps(got[0].DebugLogs); s[0] != "navigating-to-skills" {
		t.Errorf("persisted logs not first: %v", s)
	}
}

func TestSkills_ErrorKeepsPersistedLogs(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemory()
	st := &profile.PhaseState{
		Phase: profile.PhaseAwaitSkills,
		Logs:  []debuglog.Entry{{Step: "phase-1-start", Source: debuglog.SourceContent}},
	}
	if err := store.Save(ctx, scope, st); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	p := pagetest.New(pagetest.SkillsURL, `<div>no main</div>`)
	New(Deps{Page: p, Store: store, Scope: scope, Config: fastConfig(), Emit: rec.emit}).Run(ctx)

	got := rec.all()
	if len(got) != 1 || got[0].Action != protocol.ActionProfileError {
		t.Fatalf("completions: got %+v", got)
	}
	s := steps(got[0].DebugLogs)
	if s[0] != "phase-1-start" || s[len(s)-1] != "profile-error" {
		t.Errorf("logs: %v", s)
	}
}

func TestRun_UnknownPage(t *testing.T) {
	rec := &recorder{}
	p := pagetest.New("https://www.linkedin.com/feed/", `<main></main>`)
	o := New(Deps{Page: p, Store: statestore.NewMemory(), Scope: scope, Config: fastConfig(), Emit: rec.emit})
	o.Run(context.Background())

	if len(rec.all()) != 0 {
		t.Errorf("emitted on unknown page: %+v", rec.all())
	}
	if diff := cmp.Diff([]string{"unknown-page-type"}, steps(o.Logs())); diff != "" {
		t.Errorf("logs (-want +got):\n%s", diff)
	}
}
