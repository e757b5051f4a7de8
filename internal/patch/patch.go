// Package patch defines the data model shared by the cloud client and the
// view layer: local diffs, published cloud patches, and their changesets.
package patch

import (
	"errors"
	"time"
)

// ErrNoCurrentPatch is returned when a cloud patch has no dereferenceable
// current changeset/patch pair. Operations that need repository or base
// commit context treat this as a precondition failure, never as a default.
var ErrNoCurrentPatch = errors.New("cloud patch has no current changeset")

// Patch is the tagged sum of the two patch variants. Consumers must switch
// on the concrete type before touching variant-specific fields.
type Patch interface {
	isPatch()
}

// LocalPatch is a diff that exists only on this machine. Contents is the
// immutable diff text; RepoPath, BaseRef, Files and ResolvedCommit are
// enrichment fields that stay zero until explicitly populated, then are
// cached for the lifetime of the owning view context.
type LocalPatch struct {
	Contents string

	RepoPath       string
	BaseRef        string
	Files          []FileChange
	ResolvedCommit string
}

func (*LocalPatch) isPatch() {}

// CloudPatch mirrors a published draft on the collaboration service.
type CloudPatch struct {
	ID             string
	DeepLink       string
	Title          string
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CreatedBy      string
	IsPublic       bool
	OrganizationID string

	// Changesets are ordered by creation, most recent last.
	Changesets []Changeset
}

func (*CloudPatch) isPatch() {}

// Current dereferences the changeset/patch pair operations act on.
func (p *CloudPatch) Current() (*RemotePatch, error) {
	if len(p.Changesets) == 0 || len(p.Changesets[0].Patches) == 0 {
		return nil, ErrNoCurrentPatch
	}
	return &p.Changesets[0].Patches[0], nil
}

// Changeset is a versioned group of per-repository patches under a draft.
// ParentChangesetID links changesets into a history; today every publish
// creates exactly one changeset.
type Changeset struct {
	ID                string
	DraftID           string
	ParentChangesetID string
	GitProfileID      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Patches           []RemotePatch
}

// RemotePatch is one repository's diff stored server-side. SecureUpload is
// present only until the content blob has been stored; afterwards fetches
// carry SecureDownload instead. The two are never both set.
type RemotePatch struct {
	ID              string
	BaseBranchName  string
	BaseCommitSHA   string
	ChangesetID     string
	Filename        string
	GitRepositoryID string

	SecureUpload   *SecureLocation
	SecureDownload *SecureLocation
}

// SecureLocation is a pre-signed blob-storage endpoint: a time-limited
// URL/method/headers triple that authorizes one direct read or write.
type SecureLocation struct {
	URL     string
	Method  string
	Headers map[string][]string
}
