package view

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/patchdeck/patchdeck/internal/patch"
	"github.com/patchdeck/patchdeck/internal/prefs"
	"github.com/patchdeck/patchdeck/internal/scm"
)

// ErrNoBaseCommit is returned when an operation needs a base commit and the
// user declined to pick one.
var ErrNoBaseCommit = errors.New("no base commit selected")

// Interactor is the consumer-side surface commands prompt through. Pick
// methods return an error when the user dismisses the prompt.
type Interactor interface {
	PickRepo(ctx context.Context) (string, error)
	PickBase(ctx context.Context) (string, error)
	ShowError(err error)
}

// Explainer produces a natural-language summary of a diff.
type Explainer interface {
	Explain(ctx context.Context, contents string) (string, error)
}

// Commands is the operation surface the consumer drives. Every method
// funnels state changes through the reconciler; none of them touch the
// committed context directly.
type Commands struct {
	rec       *Reconciler
	projector *Projector
	ui        Interactor
	fetcher   ContentFetcher
	explainer Explainer
	open      func(path string) (scm.Engine, error)
}

// NewCommands wires the command surface. explainer and fetcher may be nil;
// the operations that need them degrade with an explicit error.
func NewCommands(rec *Reconciler, projector *Projector, ui Interactor, fetcher ContentFetcher, explainer Explainer, open func(string) (scm.Engine, error)) *Commands {
	return &Commands{
		rec:       rec,
		projector: projector,
		ui:        ui,
		fetcher:   fetcher,
		explainer: explainer,
		open:      open,
	}
}

// ShowLocal replaces the context's patch with a local diff. The repository
// path is pre-filled when an engine is already selected.
func (c *Commands) ShowLocal(contents string) {
	lp := &patch.LocalPatch{Contents: contents}
	if eng := c.projector.Engine(); eng != nil {
		lp.RepoPath = eng.Root()
	}
	if c.rec.UpdatePending(Update{Patch: lp}, false) {
		c.rec.ScheduleNotify(false)
	}
}

// ShowCloud replaces the context's patch with a fetched cloud patch.
func (c *Commands) ShowCloud(cp *patch.CloudPatch) {
	if c.rec.UpdatePending(Update{Patch: cp}, false) {
		c.rec.ScheduleNotify(false)
	}
}

// Clear unsets the patch.
func (c *Commands) Clear() {
	if c.rec.UpdatePending(Update{ClearPatch: true}, false) {
		c.rec.ScheduleNotify(false)
	}
}

// UpdatePreferences overlays new preferences onto the context.
func (c *Commands) UpdatePreferences(p prefs.Prefs) {
	if c.rec.UpdatePending(Update{Preferences: &p}, false) {
		c.rec.ScheduleNotify(false)
	}
}

// SetVisible records visibility. Becoming visible flushes immediately so
// enrichment deferred while hidden gets scheduled right away.
func (c *Commands) SetVisible(visible bool) {
	if c.rec.UpdatePending(Update{Visible: &visible}, false) {
		c.rec.ScheduleNotify(visible)
	}
}

// SelectRepo prompts for a repository, opens it and records it as the
// context's engine. A committed local patch picks up the new root.
func (c *Commands) SelectRepo(ctx context.Context) (scm.Engine, error) {
	path, err := c.ui.PickRepo(ctx)
	if err != nil || path == "" {
		return nil, scm.ErrNoRepository
	}
	engine, err := c.open(path)
	if err != nil {
		c.ui.ShowError(err)
		return nil, err
	}
	c.projector.SetEngine(engine)

	if lp := c.rec.MutateLocal(func(lp *patch.LocalPatch) {
		lp.RepoPath = engine.Root()
	}); lp != nil {
		c.rec.UpdatePending(Update{Patch: lp}, true)
		c.rec.ScheduleNotify(true)
	}
	return engine, nil
}

// SelectBase prompts for the base commit of the committed local patch.
// Changing the base invalidates any previously materialized commit.
func (c *Commands) SelectBase(ctx context.Context) error {
	if _, err := c.requireEngine(ctx); err != nil {
		return err
	}
	base, err := c.ui.PickBase(ctx)
	if err != nil || base == "" {
		return ErrNoBaseCommit
	}
	if lp := c.rec.MutateLocal(func(lp *patch.LocalPatch) {
		lp.BaseRef = base
		lp.ResolvedCommit = ""
	}); lp != nil {
		c.rec.UpdatePending(Update{Patch: lp}, true)
		c.rec.ScheduleNotify(true)
	}
	return nil
}

// PatchCommit returns the commit id that materializes the committed local
// patch, prompting for missing repository or base context in that order and
// caching the result. A materialization failure resets the base so the next
// attempt prompts again.
func (c *Commands) PatchCommit(ctx context.Context) (string, error) {
	// Field reads go through the reconciler lock; other command goroutines
	// mutate the same patch via MutateLocal.
	var baseRef, resolved, contents string
	read := func(lp *patch.LocalPatch) {
		baseRef, resolved, contents = lp.BaseRef, lp.ResolvedCommit, lp.Contents
	}
	lp := c.rec.MutateLocal(read)
	if lp == nil {
		return "", fmt.Errorf("no local patch in context")
	}

	engine, err := c.requireEngine(ctx)
	if err != nil {
		return "", err
	}
	if baseRef == "" {
		if err := c.SelectBase(ctx); err != nil {
			c.ui.ShowError(err)
			return "", err
		}
		if c.rec.MutateLocal(read) == nil {
			return "", fmt.Errorf("no local patch in context")
		}
	}
	if resolved != "" {
		return resolved, nil
	}

	sha, err := engine.CommitFromPatch(ctx, baseRef, contents)
	if err != nil {
		c.rec.MutateLocal(func(lp *patch.LocalPatch) {
			lp.BaseRef = ""
			lp.ResolvedCommit = ""
		})
		c.rec.UpdatePending(Update{Patch: lp}, true)
		c.rec.ScheduleNotify(true)
		c.ui.ShowError(err)
		return "", err
	}

	c.rec.MutateLocal(func(lp *patch.LocalPatch) {
		lp.ResolvedCommit = sha
	})
	return sha, nil
}

// ApplyPatch applies the committed patch's contents to the selected
// repository. Cloud patch contents are downloaded first. With the
// delete-after-apply preference set, a successful apply clears the patch.
func (c *Commands) ApplyPatch(ctx context.Context, opts scm.ApplyOptions) error {
	state := c.rec.Committed()
	contents, err := c.patchContents(ctx, state.Patch)
	if err != nil {
		c.ui.ShowError(err)
		return err
	}

	engine, err := c.requireEngine(ctx)
	if err != nil {
		return err
	}
	if err := engine.Apply(ctx, contents, opts); err != nil {
		c.ui.ShowError(err)
		return err
	}

	if state.Preferences.DeleteAfterApply {
		c.Clear()
	}
	return nil
}

// Explain requests an AI summary of the committed patch. The result, success
// or failure, arrives through the snapshot channel like any other derived
// state.
func (c *Commands) Explain(ctx context.Context) {
	key := c.rec.Committed().Patch
	if key == nil {
		return
	}
	if c.explainer == nil {
		c.rec.ApplyExplain(key, ExplainResult{Err: "no explain backend configured"})
		return
	}
	go func() {
		contents, err := c.patchContents(ctx, key)
		if err != nil {
			c.rec.ApplyExplain(key, ExplainResult{Err: err.Error()})
			return
		}
		summary, err := c.explainer.Explain(ctx, contents)
		if err != nil {
			c.rec.ApplyExplain(key, ExplainResult{Err: err.Error()})
			return
		}
		c.rec.ApplyExplain(key, ExplainResult{Summary: summary})
	}()
}

// FilePath resolves a changed file against the selected repository root.
func (c *Commands) FilePath(fc patch.FileChange) (string, error) {
	eng := c.projector.Engine()
	if eng == nil {
		return "", scm.ErrNoRepository
	}
	return filepath.Join(eng.Root(), fc.Path), nil
}

// FileDiff returns the diff section for one changed file, for the compare
// view.
func (c *Commands) FileDiff(ctx context.Context, fc patch.FileChange) (string, error) {
	contents, err := c.patchContents(ctx, c.rec.Committed().Patch)
	if err != nil {
		return "", err
	}
	section := patch.ExtractFileDiff(contents, fc.Path)
	if section == "" {
		return "", fmt.Errorf("no diff section for %s", fc.Path)
	}
	return section, nil
}

// requireEngine returns the selected engine, prompting for one when unset.
func (c *Commands) requireEngine(ctx context.Context) (scm.Engine, error) {
	if eng := c.projector.Engine(); eng != nil {
		return eng, nil
	}
	eng, err := c.SelectRepo(ctx)
	if err != nil {
		c.ui.ShowError(scm.ErrNoRepository)
		return nil, scm.ErrNoRepository
	}
	return eng, nil
}

// patchContents resolves the diff text for either patch variant.
func (c *Commands) patchContents(ctx context.Context, p patch.Patch) (string, error) {
	switch pt := p.(type) {
	case *patch.LocalPatch:
		return pt.Contents, nil
	case *patch.CloudPatch:
		row, err := pt.Current()
		if err != nil {
			return "", err
		}
		if c.fetcher == nil {
			return "", fmt.Errorf("no content source configured")
		}
		return c.fetcher.GetPatchContents(ctx, row.ID)
	default:
		return "", fmt.Errorf("no patch in context")
	}
}
