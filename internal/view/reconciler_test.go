package view

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/patchdeck/patchdeck/internal/patch"
	"github.com/patchdeck/patchdeck/internal/prefs"
	"github.com/patchdeck/patchdeck/internal/scm"
)

const sampleDiff = `diff --git a/main.go b/main.go
index 1111111..2222222 100644
--- a/main.go
+++ b/main.go
@@ -1 +1 @@
-old
+new
`

// recorder collects snapshots from the notify callback.
type recorder struct {
	ch chan Snapshot
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Snapshot, 32)}
}

func (r *recorder) notify(s Snapshot) { r.ch <- s }

func (r *recorder) next(t *testing.T) Snapshot {
	t.Helper()
	select {
	case s := <-r.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func (r *recorder) quiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case s := <-r.ch:
		t.Fatalf("unexpected snapshot: %+v", s)
	case <-time.After(d):
	}
}

// stubEngine is a canned scm.Engine for view tests.
type stubEngine struct {
	mu          sync.Mutex
	root        string
	branch      string
	head        string
	first       string
	diff        string
	remotes     []scm.Remote
	remotesGate chan struct{} // when non-nil, Remotes waits for close

	commitSHA   string
	commitErr   error
	commitCalls int

	applyErr error
	applied  []string
}

func (e *stubEngine) Root() string { return e.root }

func (e *stubEngine) WorktreeDiff(ctx context.Context, staged bool) (string, error) {
	return e.diff, nil
}

func (e *stubEngine) HeadCommit(ctx context.Context) (string, error) { return e.head, nil }

func (e *stubEngine) CurrentBranch(ctx context.Context) (string, error) { return e.branch, nil }

func (e *stubEngine) FirstCommit(ctx context.Context) (string, error) { return e.first, nil }

func (e *stubEngine) Remotes(ctx context.Context) ([]scm.Remote, error) {
	if e.remotesGate != nil {
		select {
		case <-e.remotesGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return e.remotes, nil
}

func (e *stubEngine) CommitFromPatch(ctx context.Context, baseCommit, contents string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commitCalls++
	if e.commitErr != nil {
		return "", e.commitErr
	}
	return e.commitSHA, nil
}

func (e *stubEngine) Apply(ctx context.Context, contents string, opts scm.ApplyOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.applyErr != nil {
		return e.applyErr
	}
	e.applied = append(e.applied, contents)
	return nil
}

func (e *stubEngine) appliedContents() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.applied...)
}

func testCloudPatch(id string) *patch.CloudPatch {
	return &patch.CloudPatch{
		ID:       id,
		Title:    "add retries",
		DeepLink: "https://patchdeck.dev/p/" + id,
		Changesets: []patch.Changeset{{
			ID: "cs-1",
			Patches: []patch.RemotePatch{{
				ID:             "row-1",
				BaseCommitSHA:  "abc1234",
				BaseBranchName: "main",
			}},
		}},
	}
}

func TestFlushCommitsPendingOverlay(t *testing.T) {
	rec := newRecorder()
	r := NewReconciler(NewProjector(nil), time.Hour, rec.notify)
	defer r.Close()

	p := prefs.Prefs{FilesLayout: prefs.LayoutTree}
	if !r.UpdatePending(Update{Patch: &patch.LocalPatch{Contents: "x"}}, false) {
		t.Fatalf("patch update reported no change")
	}
	if !r.UpdatePending(Update{Preferences: &p}, false) {
		t.Fatalf("prefs update reported no change")
	}
	r.Flush(false)

	snap := rec.next(t)
	if snap.Patch == nil || snap.Patch.Kind != "local" {
		t.Fatalf("snapshot patch = %+v, want local", snap.Patch)
	}
	if snap.Preferences.FilesLayout != prefs.LayoutTree {
		t.Fatalf("snapshot layout = %q, want tree", snap.Preferences.FilesLayout)
	}
	if snap.WebviewID == "" {
		t.Fatalf("snapshot is missing its webview id")
	}
}

func TestDebounceCollapsesBurst(t *testing.T) {
	rec := newRecorder()
	r := NewReconciler(NewProjector(nil), 40*time.Millisecond, rec.notify)
	defer r.Close()

	layouts := []string{prefs.LayoutTree, prefs.LayoutList, prefs.LayoutTree}
	for _, l := range layouts {
		p := prefs.Prefs{FilesLayout: l}
		r.UpdatePending(Update{Preferences: &p}, true)
		r.ScheduleNotify(false)
	}

	snap := rec.next(t)
	if snap.Preferences.FilesLayout != prefs.LayoutTree {
		t.Fatalf("layout = %q, want last writer tree", snap.Preferences.FilesLayout)
	}
	rec.quiet(t, 120*time.Millisecond)
}

func TestOverlayLastWriterWinsPerField(t *testing.T) {
	rec := newRecorder()
	r := NewReconciler(NewProjector(nil), time.Hour, rec.notify)
	defer r.Close()

	a := &patch.LocalPatch{Contents: "a"}
	b := testCloudPatch("draft-b")
	p := prefs.Prefs{DeleteAfterApply: true}

	r.UpdatePending(Update{Patch: a}, false)
	r.UpdatePending(Update{ClearPatch: true}, false)
	r.UpdatePending(Update{Preferences: &p}, false)
	r.UpdatePending(Update{Patch: b}, false)
	r.Flush(false)

	snap := rec.next(t)
	if snap.Patch == nil || snap.Patch.ID != "draft-b" {
		t.Fatalf("snapshot patch = %+v, want draft-b", snap.Patch)
	}
	if !snap.Preferences.DeleteAfterApply {
		t.Fatalf("preference overlay was lost in the merge")
	}
}

func TestClearPatchOverridesEarlierSet(t *testing.T) {
	rec := newRecorder()
	r := NewReconciler(NewProjector(nil), time.Hour, rec.notify)
	defer r.Close()

	r.UpdatePending(Update{Patch: &patch.LocalPatch{Contents: "a"}}, false)
	r.UpdatePending(Update{ClearPatch: true}, false)
	r.Flush(false)

	if snap := rec.next(t); snap.Patch != nil {
		t.Fatalf("snapshot patch = %+v, want nil after clear", snap.Patch)
	}
}

func TestUpdatePendingDetectsNoChange(t *testing.T) {
	r := NewReconciler(NewProjector(nil), time.Hour, func(Snapshot) {})
	defer r.Close()

	lp := &patch.LocalPatch{Contents: "a"}
	if !r.UpdatePending(Update{Patch: lp}, false) {
		t.Fatalf("first patch update should report a change")
	}
	if r.UpdatePending(Update{Patch: lp}, false) {
		t.Fatalf("same patch pointer should be a no-op")
	}
	r.Flush(false)
	if r.UpdatePending(Update{Patch: lp}, false) {
		t.Fatalf("re-sending the committed patch should be a no-op")
	}
	v := false
	if r.UpdatePending(Update{Visible: &v}, false) {
		t.Fatalf("visible=false matches the zero state and should be a no-op")
	}
}

func TestDerivedStateDroppedOnPatchSwitch(t *testing.T) {
	rec := newRecorder()
	r := NewReconciler(NewProjector(nil), time.Hour, rec.notify)
	defer r.Close()

	a := testCloudPatch("draft-a")
	r.UpdatePending(Update{Patch: a}, false)
	r.Flush(false)
	rec.next(t)

	r.ApplyDerivedLinks(a, []Autolink{{Text: "#1", URL: "https://x/1", Kind: "issue"}})
	snap := rec.next(t)
	if len(snap.Patch.Links) != 1 {
		t.Fatalf("links = %v, want the derived link", snap.Patch.Links)
	}

	r.UpdatePending(Update{Patch: testCloudPatch("draft-b")}, false)
	r.Flush(false)
	snap = rec.next(t)
	if snap.Patch.ID != "draft-b" {
		t.Fatalf("snapshot patch = %q, want draft-b", snap.Patch.ID)
	}
	if snap.Patch.Links != nil {
		t.Fatalf("links survived a patch switch: %v", snap.Patch.Links)
	}

	// Feedback keyed to the replaced patch must be dropped.
	r.ApplyDerivedLinks(a, []Autolink{{Text: "#2", URL: "https://x/2", Kind: "issue"}})
	rec.quiet(t, 80*time.Millisecond)
}

func TestLocalFilesEnrichment(t *testing.T) {
	rec := newRecorder()
	r := NewReconciler(NewProjector(nil), time.Hour, rec.notify)
	defer r.Close()

	visible := true
	r.UpdatePending(Update{Patch: &patch.LocalPatch{Contents: sampleDiff}, Visible: &visible}, false)
	r.Flush(false)

	snap := rec.next(t)
	if snap.Patch.FilesResolved {
		t.Fatalf("first snapshot should not have resolved files yet")
	}

	snap = rec.next(t)
	if !snap.Patch.FilesResolved {
		t.Fatalf("second snapshot should carry resolved files")
	}
	if len(snap.Patch.Files) != 1 || snap.Patch.Files[0].Path != "main.go" {
		t.Fatalf("files = %+v, want main.go", snap.Patch.Files)
	}
	if f := snap.Patch.Files[0]; f.Additions != 1 || f.Deletions != 1 {
		t.Fatalf("counts = +%d/-%d, want +1/-1", f.Additions, f.Deletions)
	}
}

func TestHiddenContextDefersEnrichment(t *testing.T) {
	rec := newRecorder()
	r := NewReconciler(NewProjector(nil), time.Hour, rec.notify)
	defer r.Close()

	r.UpdatePending(Update{Patch: &patch.LocalPatch{Contents: sampleDiff}}, false)
	r.Flush(false)
	if snap := rec.next(t); snap.Patch.FilesResolved {
		t.Fatalf("hidden context resolved files eagerly")
	}
	rec.quiet(t, 80*time.Millisecond)

	visible := true
	r.UpdatePending(Update{Visible: &visible}, false)
	r.Flush(false)
	rec.next(t) // unresolved re-projection
	if snap := rec.next(t); !snap.Patch.FilesResolved {
		t.Fatalf("becoming visible should schedule file enrichment")
	}
}

func TestCancelledDerivationStaysSilent(t *testing.T) {
	rec := newRecorder()
	proj := NewProjector(nil)
	r := NewReconciler(proj, time.Hour, rec.notify)
	defer r.Close()

	gate := make(chan struct{})
	proj.SetEngine(&stubEngine{
		root:        t.TempDir(),
		remotes:     []scm.Remote{{Name: "origin", URL: "https://github.com/acme/widgets.git"}},
		remotesGate: gate,
	})

	visible := true
	auto := prefs.Prefs{FilesLayout: prefs.LayoutList, Autolinks: true}
	r.UpdatePending(Update{Patch: testCloudPatch("draft-a"), Visible: &visible, Preferences: &auto}, false)
	r.Flush(false)
	rec.next(t) // link derivation is now blocked on the gate

	// Switching patches cancels the in-flight derivation.
	r.UpdatePending(Update{Patch: &patch.LocalPatch{Files: []patch.FileChange{}}}, false)
	r.Flush(false)
	if snap := rec.next(t); snap.Patch.Kind != "local" {
		t.Fatalf("snapshot kind = %q, want local", snap.Patch.Kind)
	}

	close(gate)
	rec.quiet(t, 100*time.Millisecond)
}

func TestConcurrentFlushesDeliverNewestLast(t *testing.T) {
	for i := 0; i < 50; i++ {
		rec := newRecorder()
		r := NewReconciler(NewProjector(nil), time.Hour, rec.notify)

		var wg sync.WaitGroup
		for _, id := range []string{"draft-a", "draft-b"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if r.UpdatePending(Update{Patch: testCloudPatch(id)}, false) {
					r.ScheduleNotify(true)
				}
			}(id)
		}
		wg.Wait()

		var last *Snapshot
		for {
			select {
			case s := <-rec.ch:
				last = &s
				continue
			default:
			}
			break
		}
		if last == nil {
			t.Fatalf("no snapshot delivered")
		}
		committed := r.Committed().Patch.(*patch.CloudPatch)
		if last.Patch.ID != committed.ID {
			t.Fatalf("last delivered snapshot = %q, want committed %q", last.Patch.ID, committed.ID)
		}
		r.Close()
	}
}

func TestBlockedConsumerDoesNotReorderDeliveries(t *testing.T) {
	gate := make(chan struct{})
	var mu sync.Mutex
	var got []string
	first := true
	r := NewReconciler(NewProjector(nil), time.Hour, func(s Snapshot) {
		if first {
			first = false
			<-gate
		}
		mu.Lock()
		got = append(got, s.Patch.ID)
		mu.Unlock()
	})
	defer r.Close()

	r.UpdatePending(Update{Patch: testCloudPatch("draft-a")}, false)
	done := make(chan struct{})
	go func() {
		r.Flush(false)
		close(done)
	}()

	// The first delivery is parked inside the consumer; a newer flush must
	// queue behind it, not overtake it.
	second := make(chan struct{})
	go func() {
		for {
			r.mu.Lock()
			busy := r.flushGen > 0
			r.mu.Unlock()
			if busy {
				break
			}
			time.Sleep(time.Millisecond)
		}
		r.UpdatePending(Update{Patch: testCloudPatch("draft-b")}, false)
		r.Flush(false)
		close(second)
	}()

	time.Sleep(20 * time.Millisecond)
	close(gate)
	<-done
	<-second

	mu.Lock()
	defer mu.Unlock()
	if len(got) == 0 || got[len(got)-1] != "draft-b" {
		t.Fatalf("deliveries = %v, want draft-b observed last", got)
	}
}

func TestBootstrapMergesWithoutCommitting(t *testing.T) {
	rec := newRecorder()
	r := NewReconciler(NewProjector(nil), time.Hour, rec.notify)
	defer r.Close()

	r.UpdatePending(Update{Patch: testCloudPatch("draft-a")}, false)
	snap := r.Bootstrap()
	if snap.Patch == nil || snap.Patch.ID != "draft-a" {
		t.Fatalf("bootstrap patch = %+v, want the pending overlay applied", snap.Patch)
	}
	// Nothing was committed or notified.
	if r.Committed().Patch != nil {
		t.Fatalf("bootstrap committed the overlay")
	}
	rec.quiet(t, 50*time.Millisecond)
}

func TestCloseStopsNotifications(t *testing.T) {
	rec := newRecorder()
	r := NewReconciler(NewProjector(nil), time.Hour, rec.notify)

	r.UpdatePending(Update{Patch: &patch.LocalPatch{Contents: "x"}}, false)
	r.Close()
	r.Flush(false)
	r.ScheduleNotify(true)
	rec.quiet(t, 80*time.Millisecond)
}
