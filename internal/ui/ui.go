// Package ui is the terminal consumer of view snapshots: a bubbletea
// program that renders the committed patch, drives the command surface, and
// answers the picker prompts commands raise.
package ui

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/patchdeck/patchdeck/internal/view"
)

// ErrNotRunning is returned by prompts raised before the program started.
var ErrNotRunning = errors.New("view is not running")

// ErrDismissed is returned when the user cancels a prompt.
var ErrDismissed = errors.New("prompt dismissed")

// UI owns the bubbletea program. It implements view.Interactor so commands
// can prompt through the running view; construct it first, hand it to
// view.NewCommands, then call Run.
type UI struct {
	mu      sync.Mutex
	program *tea.Program
	initial *view.Snapshot
}

func New() *UI {
	return &UI{}
}

// Notify delivers a snapshot to the running program. Snapshots arriving
// before Run are kept as the initial paint.
func (u *UI) Notify(s view.Snapshot) {
	u.mu.Lock()
	p := u.program
	if p == nil {
		u.initial = &s
	}
	u.mu.Unlock()
	if p != nil {
		p.Send(snapshotMsg(s))
	}
}

// ShowError surfaces an error in the view's status line.
func (u *UI) ShowError(err error) {
	u.mu.Lock()
	p := u.program
	u.mu.Unlock()
	if p != nil {
		p.Send(errMsg{err})
	}
}

// PickRepo prompts for a repository path.
func (u *UI) PickRepo(ctx context.Context) (string, error) {
	return u.prompt(ctx, promptRepo)
}

// PickBase prompts for a base commit-ish.
func (u *UI) PickBase(ctx context.Context) (string, error) {
	return u.prompt(ctx, promptBase)
}

func (u *UI) prompt(ctx context.Context, kind promptKind) (string, error) {
	u.mu.Lock()
	p := u.program
	u.mu.Unlock()
	if p == nil {
		return "", ErrNotRunning
	}

	reply := make(chan promptReply, 1)
	p.Send(promptRequestMsg{kind: kind, reply: reply})
	select {
	case r := <-reply:
		return r.value, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Run starts the program and blocks until it exits or ctx is cancelled.
func (u *UI) Run(ctx context.Context, cmds *view.Commands) error {
	m := newModel(ctx, cmds)

	u.mu.Lock()
	if u.initial != nil {
		m.snapshot = *u.initial
		m.haveSnapshot = true
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	u.program = p
	u.mu.Unlock()

	_, err := p.Run()

	u.mu.Lock()
	u.program = nil
	u.mu.Unlock()

	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
