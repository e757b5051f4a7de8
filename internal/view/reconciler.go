package view

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patchdeck/patchdeck/internal/debounce"
	"github.com/patchdeck/patchdeck/internal/patch"
)

// Notifier receives consumer snapshots. It is called off the reconciler's
// lock and must not block for long.
type Notifier func(Snapshot)

const defaultDebounce = 250 * time.Millisecond

// Reconciler holds the committed Context and an optional pending overlay,
// merges them under a debounced flush discipline, and keeps at most one
// derivation in flight per flush generation. Mutations arrive from several
// producers (user commands, enrichment tasks, preference reloads); the
// consumer only ever observes whole snapshots.
type Reconciler struct {
	mu        sync.Mutex
	committed Context
	pending   *Update
	projector *Projector
	notify    Notifier
	deb       *debounce.Debouncer
	webviewID string

	// cancel aborts the in-flight derivation of the previous generation.
	cancel context.CancelFunc

	// flushGen numbers flushes; notifyMu serializes deliveries. A flush
	// whose generation is stale by the time it would notify stays silent,
	// so the consumer's last observed snapshot is always the newest one.
	flushGen uint64
	notifyMu sync.Mutex

	// Derived state for the current committed patch, filled by enrichment
	// feedback and dropped whenever the patch identity changes.
	links   []Autolink
	explain *ExplainResult

	closed bool
}

// NewReconciler wires a reconciler to its projector and consumer.
// delay <= 0 selects the default debounce window.
func NewReconciler(projector *Projector, delay time.Duration, notify Notifier) *Reconciler {
	if delay <= 0 {
		delay = defaultDebounce
	}
	r := &Reconciler{
		projector: projector,
		notify:    notify,
		webviewID: uuid.NewString(),
	}
	r.deb = debounce.New(delay, func() { r.Flush(false) })
	projector.bind(r)
	return r
}

// UpdatePending shallow-merges u into the pending overlay and reports
// whether anything actually changed against the effective (committed +
// pending) state. force bypasses the change-detection short-circuit, which
// enrichment feedback needs because it mutates fields in place on the same
// patch reference.
func (r *Reconciler) UpdatePending(u Update, force bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}

	if !force {
		effective := r.committed
		if r.pending != nil {
			r.pending.apply(&effective)
		}
		if !u.changes(effective) {
			return false
		}
	} else if u.isEmpty() && r.pending == nil {
		// A forced no-field update still marks the context dirty so the
		// next flush re-projects.
		r.pending = &Update{}
		return true
	}

	if r.pending == nil {
		r.pending = &Update{}
	}
	r.pending.merge(u)
	return true
}

// ScheduleNotify requests a flush: immediately, or coalesced on the
// trailing edge of the debounce window.
func (r *Reconciler) ScheduleNotify(immediate bool) {
	if immediate {
		r.Flush(false)
		return
	}
	r.deb.Trigger()
}

// Flush merges the pending overlay into the committed context, derives a
// snapshot from the new committed state, and notifies the consumer. Any
// in-flight derivation from the previous flush is cancelled first; a flush
// that is itself superseded before it notifies stays silent.
func (r *Reconciler) Flush(force bool) {
	r.mu.Lock()
	if r.closed || (r.pending == nil && !force) {
		r.mu.Unlock()
		return
	}

	if r.pending != nil {
		prevPatch := r.committed.Patch
		r.pending.apply(&r.committed)
		r.pending = nil
		if r.committed.Patch != prevPatch {
			r.links = nil
			r.explain = nil
			if prevPatch != nil {
				r.projector.forget(prevPatch)
			}
		}
	}

	if r.cancel != nil {
		r.cancel()
	}
	// Cancelled tasks must be reschedulable by this flush's projection.
	r.projector.resetGeneration()
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.flushGen++
	gen := r.flushGen
	snap := r.buildSnapshotLocked(ctx)
	notify := r.notify
	r.mu.Unlock()

	if notify == nil {
		return
	}
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	r.mu.Lock()
	stale := gen != r.flushGen || r.closed
	r.mu.Unlock()
	if stale || ctx.Err() != nil {
		return
	}
	notify(snap)
}

// Bootstrap returns the current committed+pending merge as a snapshot
// without committing anything and without notifying: the initial paint
// consumes the return value directly.
func (r *Reconciler) Bootstrap() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	merged := r.committed
	if r.pending != nil {
		r.pending.apply(&merged)
	}
	return Snapshot{
		WebviewID:   r.webviewID,
		Timestamp:   time.Now(),
		Patch:       r.projector.project(context.Background(), merged),
		Preferences: merged.Preferences,
	}
}

// Committed returns the committed context. The patch reference is shared;
// callers must treat it as read-only.
func (r *Reconciler) Committed() Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.committed
}

// Close tears down the debounce timer and cancels any outstanding
// derivation. Further calls on the reconciler are no-ops.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.deb.Stop()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// buildSnapshotLocked projects the committed context and attaches derived
// state. Callers hold r.mu; the projection itself never suspends, it only
// spawns enrichment tasks bound to ctx.
func (r *Reconciler) buildSnapshotLocked(ctx context.Context) Snapshot {
	details := r.projector.project(ctx, r.committed)
	if details != nil {
		details.Links = r.links
		details.Explain = r.explain
	}
	return Snapshot{
		WebviewID:   r.webviewID,
		Timestamp:   time.Now(),
		Patch:       details,
		Preferences: r.committed.Preferences,
	}
}

// ApplyDerivedFiles is the enrichment feedback edge for the lazy file-diff
// computation. key is the patch the files were computed for; the result is
// dropped when that patch is no longer the committed one.
func (r *Reconciler) ApplyDerivedFiles(key *patch.LocalPatch, files []patch.FileChange) {
	r.mu.Lock()
	current, ok := r.committed.Patch.(*patch.LocalPatch)
	if !ok || current != key || r.closed {
		r.mu.Unlock()
		return
	}
	key.Files = files
	r.mu.Unlock()

	r.UpdatePending(Update{Patch: key}, true)
	r.ScheduleNotify(true)
}

// MutateLocal runs fn on the committed local patch under the reconciler's
// lock and returns the patch, or nil when the committed patch is not local.
// Projection reads patch fields under the same lock, so mutations through
// this method never race a flush.
func (r *Reconciler) MutateLocal(fn func(*patch.LocalPatch)) *patch.LocalPatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	lp, ok := r.committed.Patch.(*patch.LocalPatch)
	if !ok || r.closed {
		return nil
	}
	fn(lp)
	return lp
}

// refreshDerived re-flushes when key is still the committed patch. Used for
// projector-owned caches whose contents do not live on the reconciler.
func (r *Reconciler) refreshDerived(key patch.Patch) {
	r.mu.Lock()
	if r.committed.Patch != key || r.closed {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.UpdatePending(Update{}, true)
	r.ScheduleNotify(true)
}

// ApplyDerivedLinks records autolink enrichment for the given patch.
func (r *Reconciler) ApplyDerivedLinks(key patch.Patch, links []Autolink) {
	r.mu.Lock()
	if r.committed.Patch != key || r.closed {
		r.mu.Unlock()
		return
	}
	r.links = links
	r.mu.Unlock()

	r.UpdatePending(Update{}, true)
	r.ScheduleNotify(true)
}

// ApplyExplain records an AI summary (or its failure) for the given patch.
func (r *Reconciler) ApplyExplain(key patch.Patch, result ExplainResult) {
	r.mu.Lock()
	if r.committed.Patch != key || r.closed {
		r.mu.Unlock()
		return
	}
	r.explain = &result
	r.mu.Unlock()

	r.UpdatePending(Update{}, true)
	r.ScheduleNotify(true)
}
