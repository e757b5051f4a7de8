package ui

import (
	"fmt"
	"strings"
)

func (m Model) View() string {
	st := defaultStyles()
	var b strings.Builder

	b.WriteString(m.renderHeader(st))
	b.WriteString("\n")

	if m.prompt != nil {
		label := "Repository path"
		if m.prompt.kind == promptBase {
			label = "Base commit or branch"
		}
		b.WriteString(st.Prompt.Render(label + "\n" + m.prompt.input.View()))
		b.WriteString("\n")
	}

	switch {
	case m.showDiff:
		b.WriteString(st.Title.Render(m.diffPath))
		b.WriteString("\n")
		b.WriteString(m.diffView.View())
	case !m.haveSnapshot || m.snapshot.Patch == nil:
		b.WriteString(st.Muted.Render("\n  no patch in view\n"))
		b.WriteString(st.Muted.Render("\n  open one with `patchdeck view <diff-file>` or `patchdeck view <draft-id>`\n"))
	default:
		b.WriteString(m.renderDetails(st))
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter(st))
	return b.String()
}

func (m Model) renderHeader(st styles) string {
	parts := []string{st.Logo.Render(" patchdeck ")}
	if d := m.snapshot.Patch; d != nil {
		parts = append(parts, st.Muted.Render(d.Kind))
		if d.Title != "" {
			parts = append(parts, st.Title.Render(d.Title))
		}
		if d.ID != "" {
			parts = append(parts, st.Muted.Render(d.ID))
		}
		if !d.FilesResolved {
			parts = append(parts, m.spin.View()+st.Muted.Render(" resolving files"))
		}
	}
	return st.Header.Width(max(m.width, 1)).Render(strings.Join(parts, "  "))
}

func (m Model) renderDetails(st styles) string {
	d := m.snapshot.Patch
	var b strings.Builder

	meta := func(label, value string) {
		if value != "" {
			b.WriteString("  " + st.Muted.Render(label+": ") + value + "\n")
		}
	}
	b.WriteString("\n")
	meta("repo", d.RepoPath)
	meta("base", baseLabel(d.BaseRef, d.BaseBranch))
	meta("author", d.CreatedBy)
	if !d.CreatedAt.IsZero() {
		meta("created", d.CreatedAt.Format("2006-01-02 15:04"))
	}
	meta("link", st.LinkText.Render(d.DeepLink))
	if d.Description != "" {
		b.WriteString("\n  " + d.Description + "\n")
	}

	if len(d.Links) > 0 {
		b.WriteString("\n")
		for _, l := range d.Links {
			b.WriteString("  " + st.Muted.Render(l.Kind+" ") + st.LinkText.Render(l.Text) + " " + st.Muted.Render(l.URL) + "\n")
		}
	}

	if d.Explain != nil {
		b.WriteString("\n")
		if d.Explain.Err != "" {
			b.WriteString("  " + st.Danger.Render("explain failed: "+d.Explain.Err) + "\n")
		} else {
			b.WriteString("  " + st.Success.Render("summary: ") + d.Explain.Summary + "\n")
		}
	}

	b.WriteString("\n")
	if d.FilesResolved && len(d.Files) == 0 {
		b.WriteString(st.Muted.Render("  no file changes\n"))
	}
	for _, line := range m.renderFiles(st) {
		b.WriteString(" " + line + "\n")
	}
	return b.String()
}

func (m Model) renderFooter(st styles) string {
	if m.errTxt != "" {
		return st.Danger.Render(" " + m.errTxt)
	}
	if m.status != "" {
		return st.StatusBar.Width(max(m.width, 1)).Render(" " + m.status)
	}
	help := " q quit · ↑/↓ move · enter diff · esc back · r repo · b base · a apply · e explain · t layout"
	return st.StatusBar.Width(max(m.width, 1)).Render(help)
}

func baseLabel(ref, branch string) string {
	switch {
	case ref != "" && branch != "":
		return fmt.Sprintf("%s (%s)", shortSHA(ref), branch)
	case ref != "":
		return shortSHA(ref)
	default:
		return branch
	}
}

func shortSHA(sha string) string {
	if len(sha) > 12 && !strings.ContainsAny(sha, "ghijklmnopqrstuvwxyz~^/") {
		return sha[:12]
	}
	return sha
}

func (m Model) diffWidth() int {
	return max(m.width, 1)
}

func (m Model) bodyHeight() int {
	return max(m.height-4, 1)
}
