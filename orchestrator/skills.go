package orchestrator

import (
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/profilewatch/domwait"
	"github.com/hazyhaar/profilewatch/extract"
	"github.com/hazyhaar/profilewatch/interact"
	"github.com/hazyhaar/profilewatch/profile"
)

// skillsChain tries, in order: the in-page "show all skills" control, an
// out-of-band fetch of the details page, and the inline section of snapshot.
// The first non-empty result wins. Every failure is logged, never returned.
func (o *Orchestrator) skillsChain(ctx context.Context, snapshot *goquery.Document, current *url.URL, basePath string) []profile.Skill {
	max := o.cfg.Limits.MaxSkills

	if skills := o.skillsFromShowAll(ctx); len(skills) > 0 {
		o.log.Add("skills-from-show-all", map[string]any{"count": len(skills)})
		return skills
	}

	if o.fetcher != nil {
		target := profile.SkillsURL(profile.Origin(current), basePath)
		o.log.Add("skills-fetch-url", map[string]any{"url": target})
		doc, err := o.fetcher.FetchSkills(ctx, target)
		if err != nil {
			o.log.Add("skills-fetch-fallback", map[string]any{"reason": err.Error()})
		} else if skills := extract.SkillsFromDocument(doc, o.sel, max); len(skills) > 0 {
			o.log.Add("skills-from-details", map[string]any{"count": len(skills)})
			return skills
		} else {
			o.log.Add("skills-details-empty", nil)
		}
	}

	doc := snapshot
	if fresh, err := o.page.Document(ctx); err == nil {
		doc = fresh
	}
	skills := extract.InlineSkills(doc, o.sel, max)
	o.log.Add("skills-inline-used", map[string]any{"count": len(skills)})
	return skills
}

func (o *Orchestrator) skillsFromShowAll(ctx context.Context) []profile.Skill {
	t := o.cfg.Timings
	clicked, err := o.interact.ClickShowAllSkills(ctx, o.page)
	if err != nil {
		o.log.Add("skills-show-all-error", map[string]any{"reason": err.Error()})
		return nil
	}
	if !clicked {
		return nil
	}
	o.log.Add("skills-show-all-clicked", nil)

	if err := interact.Sleep(ctx, t.ShowAllSettle); err != nil {
		return nil
	}
	if err := o.interact.AutoScroll(ctx, o.page); err != nil {
		o.log.Add("skills-show-all-error", map[string]any{"reason": err.Error()})
		return nil
	}
	domwait.WaitForAny(ctx, o.page, []string{o.sel.Items.Entity, o.sel.Items.Fallback}, domwait.Options{
		Timeout: t.ShowAllWait,
		Poll:    t.Poll,
		Log:     o.log,
	})
	doc, err := o.page.Document(ctx)
	if err != nil {
		o.log.Add("skills-show-all-error", map[string]any{"reason": err.Error()})
		return nil
	}
	// Without the details list the document still holds the profile's
	// other entities, which are not skills.
	if doc.Find(o.sel.Skills.DetailsRoot).Length() == 0 {
		o.log.Add("skills-show-all-no-details", nil)
		return nil
	}
	return extract.SkillsFromDocument(doc, o.sel, o.cfg.Limits.MaxSkills)
}
