// Package cloud implements the client for the patch collaboration service:
// draft/changeset metadata over JSON and patch content over pre-signed
// blob-storage endpoints. Every call is a single attempt; callers decide
// whether to re-invoke after a failure.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/patchdeck/patchdeck/internal/patch"
)

// ErrNotFound marks a 404 from the service.
var ErrNotFound = errors.New("not found")

// Client talks to the patch service HTTP API. It holds no per-request state
// and is safe for concurrent use; construct one and pass it explicitly.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     string
	userAgent string
}

const (
	defaultUserAgent = "patchdeck/0.1"
	requestTimeout   = 30 * time.Second
)

// NewClient builds a Client for the given service base URL.
func NewClient(serviceURL, token string) (*Client, error) {
	base, err := parseBaseURL(serviceURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		token:     token,
		userAgent: defaultUserAgent,
	}, nil
}

// Get fetches draft metadata and its changesets. A missing draft returns
// (nil, nil); missing changesets degrade to an empty list rather than
// failing the whole read.
func (c *Client) Get(ctx context.Context, id string) (*patch.CloudPatch, error) {
	var payload envelope[draftData]
	err := c.do(ctx, http.MethodGet, "/v1/drafts/"+id, nil, &payload)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cp := payload.Data.toModel()

	changesets, err := c.GetChangesets(ctx, id)
	if err != nil {
		return nil, err
	}
	cp.Changesets = changesets
	return cp, nil
}

// GetChangesets lists a draft's changesets. A missing draft or an absent
// changeset collection yields (nil, nil).
func (c *Client) GetChangesets(ctx context.Context, draftID string) ([]patch.Changeset, error) {
	var payload envelope[[]changesetData]
	err := c.do(ctx, http.MethodGet, "/v1/drafts/"+draftID+"/changesets", nil, &payload)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	changesets := make([]patch.Changeset, 0, len(payload.Data))
	for _, cs := range payload.Data {
		changesets = append(changesets, cs.toModel())
	}
	return changesets, nil
}

// PatchResult is one entry of a GetPatches listing. When contents were
// requested, a failed download is captured in Err without affecting the
// sibling entries.
type PatchResult struct {
	Patch    patch.RemotePatch
	Contents string
	Err      error
}

// GetPatches lists the patch rows under a draft. With includeContents each
// patch's content is downloaded from its pre-signed endpoint; downloads run
// concurrently and fail independently.
func (c *Client) GetPatches(ctx context.Context, draftID string, includeContents bool) ([]PatchResult, error) {
	var payload envelope[[]patchData]
	if err := c.do(ctx, http.MethodGet, "/v1/drafts/"+draftID+"/patches", nil, &payload); err != nil {
		return nil, err
	}

	results := make([]PatchResult, len(payload.Data))
	for i, row := range payload.Data {
		results[i].Patch = row.toModel()
	}
	if !includeContents {
		return results, nil
	}

	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(r *PatchResult) {
			defer wg.Done()
			if r.Patch.SecureDownload == nil {
				r.Err = fmt.Errorf("patch %s has no download location", r.Patch.ID)
				return
			}
			r.Contents, r.Err = c.downloadBlob(ctx, r.Patch.SecureDownload)
		}(&results[i])
	}
	wg.Wait()
	return results, nil
}

// GetPatch fetches a single patch row.
func (c *Client) GetPatch(ctx context.Context, id string) (*patch.RemotePatch, error) {
	var payload envelope[patchData]
	if err := c.do(ctx, http.MethodGet, "/v1/patches/"+id, nil, &payload); err != nil {
		return nil, err
	}
	rp := payload.Data.toModel()
	return &rp, nil
}

// GetPatchContents fetches a patch row and downloads its content as plain
// text from the pre-signed endpoint.
func (c *Client) GetPatchContents(ctx context.Context, id string) (string, error) {
	rp, err := c.GetPatch(ctx, id)
	if err != nil {
		return "", err
	}
	if rp.SecureDownload == nil {
		return "", fmt.Errorf("patch %s has no download location", id)
	}
	return c.downloadBlob(ctx, rp.SecureDownload)
}

// applySignedHeaders copies the pre-signed headers onto the request. Host is
// not carried in req.Header; the transport only sends req.Host, so a signed
// Host must be set there or it silently never reaches the blob store.
func applySignedHeaders(req *http.Request, headers map[string][]string) {
	for key, values := range headers {
		if strings.EqualFold(key, "Host") {
			if len(values) > 0 {
				req.Host = values[0]
			}
			continue
		}
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
}

// uploadBlob sends patch content to a pre-signed endpoint as a plain-text
// body, using exactly the method and headers the endpoint specifies.
func (c *Client) uploadBlob(ctx context.Context, loc *patch.SecureLocation, contents string) error {
	req, err := http.NewRequestWithContext(ctx, loc.Method, loc.URL, strings.NewReader(contents))
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	applySignedHeaders(req, loc.Headers)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute upload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("blob upload returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) downloadBlob(ctx context.Context, loc *patch.SecureLocation) (string, error) {
	method := loc.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, loc.URL, nil)
	if err != nil {
		return "", fmt.Errorf("create download request: %w", err)
	}
	applySignedHeaders(req, loc.Headers)
	req.Header.Set("Accept", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("blob download returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read download body: %w", err)
	}
	return string(data), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("api %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("api %s returned status %d", path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(serviceURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(serviceURL)
	if trimmed == "" {
		return nil, fmt.Errorf("service url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse service url %q: %w", serviceURL, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
