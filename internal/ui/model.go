package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/patchdeck/patchdeck/internal/prefs"
	"github.com/patchdeck/patchdeck/internal/scm"
	"github.com/patchdeck/patchdeck/internal/view"
)

type promptKind int

const (
	promptRepo promptKind = iota
	promptBase
)

type promptReply struct {
	value string
	err   error
}

// Messages flowing into the program.
type (
	snapshotMsg      view.Snapshot
	errMsg           struct{ err error }
	promptRequestMsg struct {
		kind  promptKind
		reply chan promptReply
	}
	fileDiffMsg struct {
		path    string
		content string
	}
	actionDoneMsg struct{ err error }
)

type promptState struct {
	kind  promptKind
	input textinput.Model
	reply chan promptReply
}

// Model is the bubbletea model for the patch view.
type Model struct {
	ctx  context.Context
	cmds *view.Commands

	snapshot     view.Snapshot
	haveSnapshot bool

	width  int
	height int

	cursor   int
	diffPath string
	diffView viewport.Model
	showDiff bool

	prompt *promptState

	spin spinner.Model
	keys keyMap

	status string
	errTxt string
}

func newModel(ctx context.Context, cmds *view.Commands) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	return Model{
		ctx:  ctx,
		cmds: cmds,
		spin: sp,
		keys: defaultKeyMap(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.diffView.Width = m.diffWidth()
		m.diffView.Height = m.bodyHeight()
		return m, nil

	case snapshotMsg:
		m.snapshot = view.Snapshot(msg)
		m.haveSnapshot = true
		m.errTxt = ""
		m.clampCursor()
		if m.showDiff && !m.fileStillPresent(m.diffPath) {
			m.showDiff = false
		}
		return m, nil

	case errMsg:
		m.errTxt = msg.err.Error()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.errTxt = msg.err.Error()
		} else {
			m.errTxt = ""
		}
		m.status = ""
		return m, nil

	case fileDiffMsg:
		m.diffPath = msg.path
		m.showDiff = true
		m.diffView = viewport.New(m.diffWidth(), m.bodyHeight())
		m.diffView.SetContent(highlightDiff(msg.content))
		return m, nil

	case promptRequestMsg:
		input := textinput.New()
		switch msg.kind {
		case promptRepo:
			input.Placeholder = "repository path"
		case promptBase:
			input.Placeholder = "base commit or branch"
		}
		input.Focus()
		m.prompt = &promptState{kind: msg.kind, input: input, reply: msg.reply}
		return m, textinput.Blink

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.prompt != nil {
		var cmd tea.Cmd
		m.prompt.input, cmd = m.prompt.input.Update(msg)
		return m, cmd
	}
	if m.showDiff {
		var cmd tea.Cmd
		m.diffView, cmd = m.diffView.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompt != nil {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		m.showDiff = false
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.showDiff {
			var cmd tea.Cmd
			m.diffView, cmd = m.diffView.Update(msg)
			return m, cmd
		}
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.showDiff {
			var cmd tea.Cmd
			m.diffView, cmd = m.diffView.Update(msg)
			return m, cmd
		}
		if m.cursor < len(m.files())-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Compare):
		files := m.files()
		if len(files) == 0 {
			return m, nil
		}
		fc := files[m.cursor]
		return m, func() tea.Msg {
			content, err := m.cmds.FileDiff(m.ctx, fc)
			if err != nil {
				return errMsg{err}
			}
			return fileDiffMsg{path: fc.Path, content: content}
		}

	case key.Matches(msg, m.keys.SelectRepo):
		m.status = "selecting repository..."
		return m, func() tea.Msg {
			_, err := m.cmds.SelectRepo(m.ctx)
			return actionDoneMsg{err}
		}

	case key.Matches(msg, m.keys.SelectBase):
		m.status = "selecting base..."
		return m, func() tea.Msg {
			return actionDoneMsg{m.cmds.SelectBase(m.ctx)}
		}

	case key.Matches(msg, m.keys.Apply):
		m.status = "applying patch..."
		return m, func() tea.Msg {
			return actionDoneMsg{m.cmds.ApplyPatch(m.ctx, scm.ApplyOptions{Target: scm.ApplyToWorktree})}
		}

	case key.Matches(msg, m.keys.Explain):
		m.cmds.Explain(m.ctx)
		return m, nil

	case key.Matches(msg, m.keys.Layout):
		p := m.snapshot.Preferences
		if p.FilesLayout == prefs.LayoutTree {
			p.FilesLayout = prefs.LayoutList
		} else {
			p.FilesLayout = prefs.LayoutTree
		}
		m.cmds.UpdatePreferences(p)
		return m, nil
	}
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.prompt.reply <- promptReply{value: m.prompt.input.Value()}
		m.prompt = nil
		return m, nil
	case tea.KeyEsc:
		m.prompt.reply <- promptReply{err: ErrDismissed}
		m.prompt = nil
		return m, nil
	}
	var cmd tea.Cmd
	m.prompt.input, cmd = m.prompt.input.Update(msg)
	return m, cmd
}

func (m *Model) clampCursor() {
	if n := len(m.files()); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func (m Model) fileStillPresent(path string) bool {
	for _, f := range m.files() {
		if f.Path == path {
			return true
		}
	}
	return false
}
