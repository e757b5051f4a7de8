package view

import (
	"time"

	"github.com/patchdeck/patchdeck/internal/patch"
	"github.com/patchdeck/patchdeck/internal/prefs"
)

// PatchDetails is the UI-ready projection of the context's patch.
type PatchDetails struct {
	Kind        string    `json:"kind"` // "local" or "cloud"
	ID          string    `json:"id,omitempty"`
	DeepLink    string    `json:"deepLink,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	RepoPath    string    `json:"repoPath,omitempty"`
	BaseRef     string    `json:"baseRef,omitempty"`
	BaseBranch  string    `json:"baseBranch,omitempty"`

	// Files is nil until the lazy diff-file enrichment has run;
	// FilesResolved distinguishes "not yet computed" from "no changes".
	Files         []patch.FileChange `json:"files,omitempty"`
	FilesResolved bool               `json:"filesResolved"`

	Links   []Autolink     `json:"links,omitempty"`
	Explain *ExplainResult `json:"explain,omitempty"`
}

// Autolink is a derived link into the repository's provider.
type Autolink struct {
	Text string `json:"text"`
	URL  string `json:"url"`
	Kind string `json:"kind"` // "commit" or "issue"
}

// ExplainResult carries an AI summary or its structured failure. Errors
// travel through the same notification channel as successes so the consumer
// can render them inline.
type ExplainResult struct {
	Summary string `json:"summary,omitempty"`
	Err     string `json:"error,omitempty"`
}

// Snapshot is the complete, self-sufficient payload delivered to the
// consumer on every flush. Consumers never patch a prior snapshot.
type Snapshot struct {
	WebviewID   string        `json:"webviewId"`
	Timestamp   time.Time     `json:"timestamp"`
	Patch       *PatchDetails `json:"patch,omitempty"`
	Preferences prefs.Prefs   `json:"preferences"`
}
