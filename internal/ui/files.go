package ui

import (
	"fmt"
	"path"

	"github.com/charmbracelet/lipgloss"

	"github.com/patchdeck/patchdeck/internal/patch"
	"github.com/patchdeck/patchdeck/internal/prefs"
)

func (m Model) files() []patch.FileChange {
	if m.snapshot.Patch == nil {
		return nil
	}
	return m.snapshot.Patch.Files
}

// renderFiles renders the changed-files panel in the layout the preferences
// select. cursor indexes the file list, not the rendered lines.
func (m Model) renderFiles(st styles) []string {
	files := m.files()
	if m.snapshot.Preferences.FilesLayout == prefs.LayoutTree {
		return m.renderFilesTree(files, st)
	}
	lines := make([]string, 0, len(files))
	for i, f := range files {
		lines = append(lines, m.fileLine(f, f.Path, i == m.cursor, st))
	}
	return lines
}

// renderFilesTree groups consecutive files by directory. Directory header
// lines are not selectable; the cursor stays on files.
func (m Model) renderFilesTree(files []patch.FileChange, st styles) []string {
	var lines []string
	lastDir := "\x00"
	for i, f := range files {
		dir := path.Dir(f.Path)
		if dir != lastDir {
			if dir != "." {
				lines = append(lines, st.Muted.Render(dir+"/"))
			}
			lastDir = dir
		}
		name := path.Base(f.Path)
		indent := ""
		if dir != "." {
			indent = "  "
		}
		lines = append(lines, indent+m.fileLine(f, name, i == m.cursor, st))
	}
	return lines
}

func (m Model) fileLine(f patch.FileChange, label string, selected bool, st styles) string {
	glyph, style := statusGlyph(f.Status, st)
	counts := st.Muted.Render(fmt.Sprintf(" +%d -%d", f.Additions, f.Deletions))
	if f.Status == patch.StatusRenamed && f.OriginalPath != "" {
		label = f.OriginalPath + " → " + label
	}
	line := style.Render(glyph) + " " + label + counts
	if selected {
		return st.Selected.Render("▸ " + line)
	}
	return "  " + line
}

func statusGlyph(s patch.FileStatus, st styles) (string, lipgloss.Style) {
	switch s {
	case patch.StatusAdded:
		return "+", st.Added
	case patch.StatusDeleted:
		return "-", st.Deleted
	case patch.StatusRenamed:
		return "»", st.Renamed
	default:
		return "~", st.Muted
	}
}
