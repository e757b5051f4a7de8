package ui

import (
	"strings"
	"testing"

	"github.com/patchdeck/patchdeck/internal/patch"
	"github.com/patchdeck/patchdeck/internal/prefs"
	"github.com/patchdeck/patchdeck/internal/view"
)

func testSnapshot() view.Snapshot {
	return view.Snapshot{
		WebviewID: "w-1",
		Patch: &view.PatchDetails{
			Kind:          "cloud",
			ID:            "draft-1",
			Title:         "add retries",
			BaseRef:       "0123456789abcdef0123456789abcdef01234567",
			BaseBranch:    "main",
			FilesResolved: true,
			Files: []patch.FileChange{
				{Path: "internal/app/app.go", Status: patch.StatusModified, Additions: 2, Deletions: 1},
				{Path: "internal/app/poller.go", Status: patch.StatusAdded, Additions: 10},
				{Path: "README.md", Status: patch.StatusDeleted, Deletions: 3},
			},
		},
		Preferences: prefs.Default(),
	}
}

func TestViewRendersPatchDetails(t *testing.T) {
	m := newModel(t.Context(), nil)
	m.snapshot = testSnapshot()
	m.haveSnapshot = true
	m.width = 120
	m.height = 40

	out := m.View()
	for _, want := range []string{"add retries", "draft-1", "0123456789ab", "main", "app.go", "README.md"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view output missing %q:\n%s", want, out)
		}
	}
}

func TestViewWithoutPatchShowsPlaceholder(t *testing.T) {
	m := newModel(t.Context(), nil)
	m.width = 80
	m.height = 24
	if out := m.View(); !strings.Contains(out, "no patch in view") {
		t.Fatalf("placeholder missing:\n%s", out)
	}
}

func TestRenderFilesTreeGroupsByDirectory(t *testing.T) {
	m := newModel(t.Context(), nil)
	m.snapshot = testSnapshot()
	m.snapshot.Preferences.FilesLayout = prefs.LayoutTree
	m.haveSnapshot = true

	lines := m.renderFiles(defaultStyles())
	// One directory header plus three file lines.
	if len(lines) != 4 {
		t.Fatalf("tree lines = %d, want 4:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if !strings.Contains(lines[0], "internal/app/") {
		t.Fatalf("first line = %q, want the directory header", lines[0])
	}
	if !strings.Contains(lines[1], "app.go") || strings.Contains(lines[1], "internal/app/app.go") {
		t.Fatalf("tree entry = %q, want the base name only", lines[1])
	}
}

func TestRenderFilesListMarksCursor(t *testing.T) {
	m := newModel(t.Context(), nil)
	m.snapshot = testSnapshot()
	m.haveSnapshot = true
	m.cursor = 1

	lines := m.renderFiles(defaultStyles())
	if len(lines) != 3 {
		t.Fatalf("list lines = %d, want 3", len(lines))
	}
	if !strings.Contains(lines[1], "▸") {
		t.Fatalf("cursor marker missing on line 1: %q", lines[1])
	}
	if strings.Contains(lines[0], "▸") {
		t.Fatalf("cursor marker leaked to line 0: %q", lines[0])
	}
}

func TestBaseLabel(t *testing.T) {
	tests := []struct {
		ref, branch, want string
	}{
		{"0123456789abcdef0123456789abcdef01234567", "main", "0123456789ab (main)"},
		{"0123456789abcdef0123456789abcdef01234567", "", "0123456789ab"},
		{"", "main", "main"},
		{"HEAD~2", "", "HEAD~2"},
	}
	for _, tc := range tests {
		if got := baseLabel(tc.ref, tc.branch); got != tc.want {
			t.Fatalf("baseLabel(%q, %q) = %q, want %q", tc.ref, tc.branch, got, tc.want)
		}
	}
}

func TestHighlightDiffKeepsContent(t *testing.T) {
	src := "diff --git a/x.go b/x.go\n+added line\n-removed line\n"
	out := highlightDiff(src)
	if !strings.Contains(out, "added line") || !strings.Contains(out, "removed line") {
		t.Fatalf("highlighted output lost content:\n%s", out)
	}
}
