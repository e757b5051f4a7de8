// Package scm is the boundary to the source-control engine. The view and
// cloud layers depend only on the Engine interface; the go-git backed
// implementation lives in this package alongside it.
package scm

import (
	"context"
	"errors"
)

// Errors callers branch on when deciding whether to prompt for input.
var (
	ErrNoRepository = errors.New("no repository selected")
	ErrNoProvider   = errors.New("no remote provider found for repository")
)

// ApplyTarget selects where patch contents land.
type ApplyTarget int

const (
	ApplyToWorktree ApplyTarget = iota
	ApplyToHead                 // apply and stage
	ApplyToBranch               // switch to ApplyOptions.Branch first
)

// ApplyOptions configure Engine.Apply.
type ApplyOptions struct {
	Target ApplyTarget
	Branch string // required for ApplyToBranch
}

// Remote is a configured remote of the repository.
type Remote struct {
	Name string
	URL  string
}

// Engine exposes the repository facts and operations the patch engine needs.
// All methods take a context because implementations may shell out or read
// large object stores.
type Engine interface {
	// Root returns the repository's top-level directory.
	Root() string
	// WorktreeDiff returns unified-diff text for uncommitted changes.
	WorktreeDiff(ctx context.Context, staged bool) (string, error)
	HeadCommit(ctx context.Context) (string, error)
	CurrentBranch(ctx context.Context) (string, error)
	Remotes(ctx context.Context) ([]Remote, error)
	// FirstCommit returns the repository's root commit id, or "" when the
	// repository has no commits yet.
	FirstCommit(ctx context.Context) (string, error)
	// CommitFromPatch materializes patch contents as an unreachable commit
	// on top of baseCommit and returns its id. The worktree and index are
	// left untouched.
	CommitFromPatch(ctx context.Context, baseCommit, contents string) (string, error)
	Apply(ctx context.Context, contents string, opts ApplyOptions) error
}
