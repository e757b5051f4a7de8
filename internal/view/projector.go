package view

import (
	"context"
	"log"
	"sync"

	"github.com/patchdeck/patchdeck/internal/patch"
	"github.com/patchdeck/patchdeck/internal/scm"
)

// ContentFetcher downloads a remote patch's diff text.
type ContentFetcher interface {
	GetPatchContents(ctx context.Context, id string) (string, error)
}

// Projector derives PatchDetails from a committed context. Projection itself
// is cheap and synchronous; anything that needs the repository or the network
// (file lists, autolinks) is spawned as a cancellable enrichment task that
// feeds results back through the reconciler.
type Projector struct {
	fetcher ContentFetcher
	rec     *Reconciler

	mu     sync.Mutex
	engine scm.Engine

	// Every flush starts a new generation and wipes the inflight guards so
	// work cancelled by that flush gets rescheduled. A task only removes
	// its own guard entry, identified by the generation it was spawned in.
	gen           uint64
	filesInflight map[patch.Patch]uint64
	linksInflight map[patch.Patch]uint64

	// linksDone marks patches whose autolinks have been delivered, so a
	// feedback-driven reflush does not re-derive them.
	linksDone map[patch.Patch]bool

	// Cloud patches are immutable values, so their derived file lists are
	// cached here instead of on the patch.
	cloudFiles map[*patch.CloudPatch][]patch.FileChange
}

// NewProjector builds a projector. fetcher may be nil when the client is
// offline; cloud file enrichment then stays unresolved.
func NewProjector(fetcher ContentFetcher) *Projector {
	return &Projector{
		fetcher:       fetcher,
		filesInflight: make(map[patch.Patch]uint64),
		linksInflight: make(map[patch.Patch]uint64),
		linksDone:     make(map[patch.Patch]bool),
		cloudFiles:    make(map[*patch.CloudPatch][]patch.FileChange),
	}
}

func (p *Projector) bind(r *Reconciler) { p.rec = r }

// SetEngine swaps the repository engine used for autolink derivation.
func (p *Projector) SetEngine(e scm.Engine) {
	p.mu.Lock()
	p.engine = e
	p.mu.Unlock()
}

// Engine returns the current repository engine, which may be nil.
func (p *Projector) Engine() scm.Engine {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine
}

// resetGeneration invalidates the guard entries of tasks the caller has just
// cancelled. Called by the reconciler on every flush.
func (p *Projector) resetGeneration() {
	p.mu.Lock()
	p.gen++
	p.filesInflight = make(map[patch.Patch]uint64)
	p.linksInflight = make(map[patch.Patch]uint64)
	p.mu.Unlock()
}

// forget drops per-patch derived caches once the patch left the context.
func (p *Projector) forget(old patch.Patch) {
	p.mu.Lock()
	delete(p.linksDone, old)
	if cp, ok := old.(*patch.CloudPatch); ok {
		delete(p.cloudFiles, cp)
	}
	p.mu.Unlock()
}

// project maps the context's patch to its details. Enrichment tasks are only
// spawned for visible contexts; a hidden view defers the work until the next
// flush after it becomes visible.
func (p *Projector) project(ctx context.Context, c Context) *PatchDetails {
	switch pt := c.Patch.(type) {
	case nil:
		return nil
	case *patch.LocalPatch:
		return p.projectLocal(ctx, pt, c.Visible)
	case *patch.CloudPatch:
		return p.projectCloud(ctx, pt, c)
	default:
		log.Printf("unknown patch variant %T", c.Patch)
		return nil
	}
}

func (p *Projector) projectLocal(ctx context.Context, lp *patch.LocalPatch, visible bool) *PatchDetails {
	d := &PatchDetails{
		Kind:     "local",
		RepoPath: lp.RepoPath,
		BaseRef:  lp.BaseRef,
	}
	if lp.Files != nil {
		d.Files = lp.Files
		d.FilesResolved = true
		return d
	}
	if visible {
		p.enrichLocalFiles(ctx, lp)
	}
	return d
}

func (p *Projector) projectCloud(ctx context.Context, cp *patch.CloudPatch, c Context) *PatchDetails {
	d := &PatchDetails{
		Kind:        "cloud",
		ID:          cp.ID,
		DeepLink:    cp.DeepLink,
		Title:       cp.Title,
		Description: cp.Description,
		CreatedBy:   cp.CreatedBy,
		CreatedAt:   cp.CreatedAt,
	}
	if row, err := cp.Current(); err == nil {
		d.BaseRef = row.BaseCommitSHA
		d.BaseBranch = row.BaseBranchName
	}

	p.mu.Lock()
	files, resolved := p.cloudFiles[cp]
	p.mu.Unlock()
	if resolved {
		d.Files = files
		d.FilesResolved = true
	} else if c.Visible {
		p.enrichCloudFiles(ctx, cp)
	}

	if c.Visible && c.Preferences.Autolinks {
		p.enrichLinks(ctx, cp)
	}
	return d
}

// claim registers an enrichment task for key in the given guard map, unless
// one is already running. Returns the generation token the task must present
// to release its entry.
func (p *Projector) claim(m map[patch.Patch]uint64, key patch.Patch) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := m[key]; busy {
		return 0, false
	}
	m[key] = p.gen
	return p.gen, true
}

// release removes key's guard entry when it still belongs to gen. Entries
// re-registered by a later generation stay put.
func (p *Projector) release(m *map[patch.Patch]uint64, key patch.Patch, gen uint64) {
	p.mu.Lock()
	if (*m)[key] == gen {
		delete(*m, key)
	}
	p.mu.Unlock()
}

// enrichLocalFiles parses the diff's file list off the flush path and feeds
// it back to the reconciler, which caches it on the patch.
func (p *Projector) enrichLocalFiles(ctx context.Context, lp *patch.LocalPatch) {
	gen, ok := p.claim(p.filesInflight, lp)
	if !ok {
		return
	}
	go func() {
		files := patch.ParseFileChanges(lp.Contents)
		if files == nil {
			// nil marks "not yet computed" on the patch, so an empty
			// result must still resolve.
			files = []patch.FileChange{}
		}
		if ctx.Err() != nil {
			p.release(&p.filesInflight, lp, gen)
			return
		}
		p.rec.ApplyDerivedFiles(lp, files)
	}()
}

// enrichCloudFiles downloads the current patch row's contents and parses the
// file list. Failures leave the entry unresolved; cancellation reschedules.
func (p *Projector) enrichCloudFiles(ctx context.Context, cp *patch.CloudPatch) {
	if p.fetcher == nil {
		return
	}
	row, err := cp.Current()
	if err != nil {
		return
	}
	gen, ok := p.claim(p.filesInflight, cp)
	if !ok {
		return
	}
	go func() {
		contents, err := p.fetcher.GetPatchContents(ctx, row.ID)
		if ctx.Err() != nil {
			p.release(&p.filesInflight, cp, gen)
			return
		}
		if err != nil {
			log.Printf("fetch patch contents for %s: %v", row.ID, err)
			p.release(&p.filesInflight, cp, gen)
			return
		}
		files := patch.ParseFileChanges(contents)
		p.mu.Lock()
		p.cloudFiles[cp] = files
		p.mu.Unlock()
		p.rec.refreshDerived(cp)
	}()
}

// enrichLinks resolves the repository provider and scans the patch's title
// and description for commit and issue references.
func (p *Projector) enrichLinks(ctx context.Context, cp *patch.CloudPatch) {
	p.mu.Lock()
	engine := p.engine
	done := p.linksDone[cp]
	p.mu.Unlock()
	if engine == nil || done {
		return
	}
	gen, ok := p.claim(p.linksInflight, cp)
	if !ok {
		return
	}
	go func() {
		remotes, err := engine.Remotes(ctx)
		if ctx.Err() != nil {
			p.release(&p.linksInflight, cp, gen)
			return
		}
		if err != nil {
			log.Printf("resolve remotes for autolinks: %v", err)
			p.release(&p.linksInflight, cp, gen)
			return
		}

		var links []Autolink
		if provider, err := scm.BestProvider(remotes); err == nil {
			links = deriveAutolinks(provider, cp.Title+"\n"+cp.Description)
		}
		// No provider means no links; either way the derivation is final
		// for this patch.
		p.mu.Lock()
		p.linksDone[cp] = true
		p.mu.Unlock()
		p.rec.ApplyDerivedLinks(cp, links)
	}()
}
