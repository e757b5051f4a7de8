package view

import (
	"testing"
	"time"

	"github.com/patchdeck/patchdeck/internal/prefs"
	"github.com/patchdeck/patchdeck/internal/scm"
)

func TestProjectCloudPatchDetails(t *testing.T) {
	rec := newRecorder()
	r := NewReconciler(NewProjector(nil), time.Hour, rec.notify)
	defer r.Close()

	cp := testCloudPatch("draft-a")
	cp.Description = "retry on 503"
	cp.CreatedBy = "user-7"
	r.UpdatePending(Update{Patch: cp}, false)
	r.Flush(false)

	d := rec.next(t).Patch
	if d.Kind != "cloud" || d.ID != "draft-a" {
		t.Fatalf("details = %+v, want cloud draft-a", d)
	}
	if d.Title != "add retries" || d.Description != "retry on 503" || d.CreatedBy != "user-7" {
		t.Fatalf("metadata not carried through: %+v", d)
	}
	if d.BaseRef != "abc1234" || d.BaseBranch != "main" {
		t.Fatalf("base = %q/%q, want the current changeset's", d.BaseRef, d.BaseBranch)
	}
	if d.DeepLink == "" {
		t.Fatalf("deep link missing")
	}
}

func TestCloudPatchWithoutChangesetsProjectsBare(t *testing.T) {
	rec := newRecorder()
	r := NewReconciler(NewProjector(nil), time.Hour, rec.notify)
	defer r.Close()

	cp := testCloudPatch("draft-a")
	cp.Changesets = nil
	r.UpdatePending(Update{Patch: cp}, false)
	r.Flush(false)

	d := rec.next(t).Patch
	if d.BaseRef != "" || d.BaseBranch != "" {
		t.Fatalf("base = %q/%q, want empty without a current changeset", d.BaseRef, d.BaseBranch)
	}
}

func TestCloudFilesEnrichmentDownloadsContents(t *testing.T) {
	rec := newRecorder()
	r := NewReconciler(NewProjector(&fakeFetcher{contents: sampleDiff}), time.Hour, rec.notify)
	defer r.Close()

	visible := true
	r.UpdatePending(Update{Patch: testCloudPatch("draft-a"), Visible: &visible}, false)
	r.Flush(false)

	if d := rec.next(t).Patch; d.FilesResolved {
		t.Fatalf("first snapshot should not have files yet")
	}
	d := rec.next(t).Patch
	if !d.FilesResolved || len(d.Files) != 1 || d.Files[0].Path != "main.go" {
		t.Fatalf("files = %+v, want main.go resolved", d.Files)
	}
}

func TestAutolinksDerivedFromProvider(t *testing.T) {
	rec := newRecorder()
	proj := NewProjector(nil)
	r := NewReconciler(proj, time.Hour, rec.notify)
	defer r.Close()

	proj.SetEngine(&stubEngine{
		root:    t.TempDir(),
		remotes: []scm.Remote{{Name: "origin", URL: "git@github.com:acme/widgets.git"}},
	})

	cp := testCloudPatch("draft-a")
	cp.Title = "fix #42"
	visible := true
	auto := prefs.Prefs{FilesLayout: prefs.LayoutList, Autolinks: true}
	r.UpdatePending(Update{Patch: cp, Visible: &visible, Preferences: &auto}, false)
	r.Flush(false)
	rec.next(t)

	snap := rec.next(t)
	if len(snap.Patch.Links) != 1 {
		t.Fatalf("links = %+v, want one issue link", snap.Patch.Links)
	}
	link := snap.Patch.Links[0]
	if link.Kind != "issue" || link.URL != "https://github.com/acme/widgets/issues/42" {
		t.Fatalf("link = %+v, want the github issue url", link)
	}
}

func TestAutolinksSkippedWhenDisabled(t *testing.T) {
	rec := newRecorder()
	proj := NewProjector(nil)
	r := NewReconciler(proj, time.Hour, rec.notify)
	defer r.Close()

	proj.SetEngine(&stubEngine{
		root:    t.TempDir(),
		remotes: []scm.Remote{{Name: "origin", URL: "git@github.com:acme/widgets.git"}},
	})

	cp := testCloudPatch("draft-a")
	cp.Title = "fix #42"
	visible := true
	off := prefs.Prefs{FilesLayout: prefs.LayoutList}
	r.UpdatePending(Update{Patch: cp, Visible: &visible, Preferences: &off}, false)
	r.Flush(false)
	rec.next(t)
	rec.quiet(t, 80*time.Millisecond)
}
