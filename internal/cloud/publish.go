package cloud

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/patchdeck/patchdeck/internal/patch"
	"github.com/patchdeck/patchdeck/internal/scm"
)

// PublishSource carries everything Create needs besides the diff itself.
type PublishSource struct {
	Repo scm.Engine

	// ProfileID is the fallback user identity. Identity, when set, is
	// resolved concurrently with the other publish facts; a resolution
	// failure degrades to ProfileID rather than failing the publish.
	ProfileID string
	Identity  func(ctx context.Context) (string, error)

	Title       string
	Description string
	IsPublic    bool
}

// PublishError reports which protocol stage failed. The server-side draft
// created by earlier stages is not cleaned up; DraftID names the orphan so
// it stays inspectable.
type PublishError struct {
	Stage   string
	DraftID string
	Err     error
}

func (e *PublishError) Error() string {
	if e.DraftID != "" {
		return fmt.Sprintf("publish %s (draft %s): %v", e.Stage, e.DraftID, e.Err)
	}
	return fmt.Sprintf("publish %s: %v", e.Stage, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// resolvedFacts is the output of the concurrent pre-publish fan-out.
type resolvedFacts struct {
	provider    scm.Provider
	providerErr error
	profileID   string
	branch      string
}

// Create publishes patch contents as a new cloud patch: create a draft,
// create one changeset under it, upload the content blob to the pre-signed
// endpoint the changeset returns, then finalize the patch row. Each step
// commits independently on the server; there is no rollback of earlier
// steps when a later one fails.
func (c *Client) Create(ctx context.Context, src PublishSource, baseCommit, contents string) (*patch.CloudPatch, error) {
	if src.Repo == nil {
		return nil, &PublishError{Stage: "resolve", Err: scm.ErrNoRepository}
	}
	if strings.TrimSpace(baseCommit) == "" {
		return nil, &PublishError{Stage: "resolve", Err: fmt.Errorf("base commit required")}
	}

	facts := resolvePublishFacts(ctx, src)
	if facts.providerErr != nil {
		return nil, &PublishError{Stage: "resolve", Err: facts.providerErr}
	}

	// Stage 1: create the draft, then fetch it back by id. The creation
	// response is not assumed authoritative for the full draft shape.
	var created envelope[draftData]
	err := c.do(ctx, http.MethodPost, "/v1/drafts", createDraftRequest{
		Title:       src.Title,
		Description: src.Description,
		IsPublic:    src.IsPublic,
	}, &created)
	if err != nil {
		return nil, &PublishError{Stage: "create draft", Err: err}
	}
	draftID := created.Data.ID

	var fetched envelope[draftData]
	if err := c.do(ctx, http.MethodGet, "/v1/drafts/"+draftID, nil, &fetched); err != nil {
		return nil, &PublishError{Stage: "fetch draft", DraftID: draftID, Err: err}
	}
	draft := fetched.Data.toModel()

	// Stage 2: create exactly one changeset carrying the base facts.
	csReq := createChangesetRequest{
		GitProfileID: facts.profileID,
		Patches: []createChangesetPatch{{
			BaseCommitSHA:  baseCommit,
			BaseBranchName: facts.branch,
			GitRepoData:    repoOriginData(ctx, src.Repo),
		}},
	}
	var csResp envelope[changesetData]
	if err := c.do(ctx, http.MethodPost, "/v1/drafts/"+draftID+"/changesets", csReq, &csResp); err != nil {
		return nil, &PublishError{Stage: "create changeset", DraftID: draftID, Err: err}
	}
	changeset := csResp.Data.toModel()
	if len(changeset.Patches) == 0 || changeset.Patches[0].SecureUpload == nil {
		return nil, &PublishError{Stage: "create changeset", DraftID: draftID,
			Err: fmt.Errorf("changeset response carries no upload location")}
	}
	row := &changeset.Patches[0]

	// Stage 3: upload the raw diff to the pre-signed endpoint.
	if err := c.uploadBlob(ctx, row.SecureUpload, contents); err != nil {
		return nil, &PublishError{Stage: "upload content", DraftID: draftID, Err: err}
	}

	// Stage 4: finalize the patch row with provider identifiers.
	fin := finalizePatchRequest{
		BaseCommitSHA:      baseCommit,
		GitProfileID:       facts.profileID,
		GitProvider:        facts.provider.ID,
		GitRepositoryName:  facts.provider.Name,
		GitRepositoryOwner: facts.provider.Owner,
		GitBranchName:      facts.branch,
	}
	if err := c.do(ctx, http.MethodPatch, "/v1/patches/"+row.ID, fin, nil); err != nil {
		return nil, &PublishError{Stage: "finalize patch", DraftID: draftID, Err: err}
	}

	// Content is durably stored now, so the upload handoff is spent.
	row.SecureUpload = nil

	draft.Changesets = []patch.Changeset{changeset}
	return draft, nil
}

// resolvePublishFacts resolves provider, identity and branch concurrently.
// The resolutions are independent; a failure in one never aborts the others.
// Only the provider is a hard requirement; identity and branch degrade to
// empty values.
func resolvePublishFacts(ctx context.Context, src PublishSource) resolvedFacts {
	facts := resolvedFacts{profileID: src.ProfileID}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		remotes, err := src.Repo.Remotes(ctx)
		if err != nil {
			facts.providerErr = err
			return
		}
		facts.provider, facts.providerErr = scm.BestProvider(remotes)
	}()

	go func() {
		defer wg.Done()
		if src.Identity == nil {
			return
		}
		id, err := src.Identity(ctx)
		if err != nil {
			log.Printf("identity resolution failed, using fallback profile: %v", err)
			return
		}
		facts.profileID = id
	}()

	var branch string
	go func() {
		defer wg.Done()
		b, err := src.Repo.CurrentBranch(ctx)
		if err != nil {
			log.Printf("branch resolution failed: %v", err)
			return
		}
		branch = b
	}()

	wg.Wait()
	facts.branch = branch
	return facts
}

// repoOriginData returns the repository-origin metadata for changeset
// creation, best effort: an unresolvable or sentinel first commit is simply
// omitted.
func repoOriginData(ctx context.Context, repo scm.Engine) *gitRepoData {
	first, err := repo.FirstCommit(ctx)
	if err != nil {
		log.Printf("first commit resolution failed: %v", err)
		return nil
	}
	if first == "" || strings.Trim(first, "0") == "" {
		return nil
	}
	return &gitRepoData{InitialCommitSHA: first}
}
