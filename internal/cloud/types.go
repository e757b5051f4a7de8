package cloud

import (
	"time"

	"github.com/patchdeck/patchdeck/internal/patch"
)

// The service wraps every response body in a {"data": ...} envelope.
type envelope[T any] struct {
	Data T `json:"data"`
}

type draftData struct {
	ID             string `json:"id"`
	DeepLink       string `json:"deepLink"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
	CreatedBy      string `json:"createdBy"`
	IsPublic       bool   `json:"isPublic"`
	OrganizationID string `json:"organizationId"`
}

type changesetData struct {
	ID                string      `json:"id"`
	DraftID           string      `json:"draftId"`
	ParentChangesetID string      `json:"parentChangesetId"`
	GitProfileID      string      `json:"gitProfileId"`
	CreatedAt         string      `json:"createdAt"`
	UpdatedAt         string      `json:"updatedAt"`
	Patches           []patchData `json:"patches"`
}

type patchData struct {
	ID                 string              `json:"id"`
	BaseCommitSHA      string              `json:"baseCommitSha"`
	BaseBranchName     string              `json:"baseBranchName"`
	ChangesetID        string              `json:"changesetId"`
	Filename           string              `json:"filename"`
	GitRepositoryID    string              `json:"gitRepositoryId"`
	SecureUploadData   *secureLocationData `json:"secureUploadData,omitempty"`
	SecureDownloadData *secureLocationData `json:"secureDownloadData,omitempty"`
}

type secureLocationData struct {
	URL     string              `json:"url"`
	Method  string              `json:"method"`
	Headers map[string][]string `json:"headers"`
}

type createDraftRequest struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	IsPublic    bool   `json:"isPublic"`
}

type gitRepoData struct {
	InitialCommitSHA string `json:"initialCommitSha,omitempty"`
}

type createChangesetPatch struct {
	BaseCommitSHA  string       `json:"baseCommitSha"`
	BaseBranchName string       `json:"baseBranchName"`
	GitRepoData    *gitRepoData `json:"gitRepoData,omitempty"`
}

type createChangesetRequest struct {
	GitProfileID string                 `json:"gitProfileId"`
	Patches      []createChangesetPatch `json:"patches"`
}

type finalizePatchRequest struct {
	BaseCommitSHA      string `json:"baseCommitSha"`
	GitProfileID       string `json:"gitProfileId"`
	GitProvider        string `json:"gitProvider"`
	GitRepositoryName  string `json:"gitRepositoryName"`
	GitRepositoryOwner string `json:"gitRepositoryOwner"`
	GitBranchName      string `json:"gitBranchName"`
}

func (d draftData) toModel() *patch.CloudPatch {
	return &patch.CloudPatch{
		ID:             d.ID,
		DeepLink:       d.DeepLink,
		Title:          d.Title,
		Description:    d.Description,
		CreatedAt:      parseTime(d.CreatedAt),
		UpdatedAt:      parseTime(d.UpdatedAt),
		CreatedBy:      d.CreatedBy,
		IsPublic:       d.IsPublic,
		OrganizationID: d.OrganizationID,
	}
}

func (c changesetData) toModel() patch.Changeset {
	cs := patch.Changeset{
		ID:                c.ID,
		DraftID:           c.DraftID,
		ParentChangesetID: c.ParentChangesetID,
		GitProfileID:      c.GitProfileID,
		CreatedAt:         parseTime(c.CreatedAt),
		UpdatedAt:         parseTime(c.UpdatedAt),
	}
	for _, p := range c.Patches {
		cs.Patches = append(cs.Patches, p.toModel())
	}
	return cs
}

func (p patchData) toModel() patch.RemotePatch {
	return patch.RemotePatch{
		ID:              p.ID,
		BaseCommitSHA:   p.BaseCommitSHA,
		BaseBranchName:  p.BaseBranchName,
		ChangesetID:     p.ChangesetID,
		Filename:        p.Filename,
		GitRepositoryID: p.GitRepositoryID,
		SecureUpload:    p.SecureUploadData.toModel(),
		SecureDownload:  p.SecureDownloadData.toModel(),
	}
}

func (s *secureLocationData) toModel() *patch.SecureLocation {
	if s == nil {
		return nil
	}
	return &patch.SecureLocation{URL: s.URL, Method: s.Method, Headers: s.Headers}
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
