package scm

import (
	"fmt"
	"strings"
)

// Provider identifies the hosting service behind a remote, with the owner
// and repository name parsed out of the remote path.
type Provider struct {
	ID     string // "github", "gitlab", "bitbucket", or the bare host
	Host   string
	Owner  string
	Name   string
	WebURL string
}

var knownHosts = map[string]string{
	"github.com":    "github",
	"gitlab.com":    "gitlab",
	"bitbucket.org": "bitbucket",
}

// BestProvider picks the provider for a repository from its remotes. The
// "origin" remote wins when parseable; otherwise the first parseable remote
// is used. No parseable remote is a hard failure (ErrNoProvider).
func BestProvider(remotes []Remote) (Provider, error) {
	var fallback *Provider
	for _, r := range remotes {
		p, err := ParseProvider(r.URL)
		if err != nil {
			continue
		}
		if r.Name == "origin" {
			return p, nil
		}
		if fallback == nil {
			fallback = &p
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return Provider{}, ErrNoProvider
}

// ParseProvider extracts host, owner and repository name from a remote URL.
// Both scp-like (git@host:owner/repo.git) and URL forms are accepted.
func ParseProvider(remoteURL string) (Provider, error) {
	raw := strings.TrimSpace(remoteURL)
	if raw == "" {
		return Provider{}, fmt.Errorf("empty remote url")
	}

	var host, path string
	switch {
	case strings.Contains(raw, "://"):
		rest := raw[strings.Index(raw, "://")+3:]
		slash := strings.IndexByte(rest, '/')
		if slash < 0 {
			return Provider{}, fmt.Errorf("remote url %q has no path", remoteURL)
		}
		host, path = rest[:slash], rest[slash+1:]
		if at := strings.IndexByte(host, '@'); at >= 0 {
			host = host[at+1:]
		}
	case strings.Contains(raw, "@") && strings.Contains(raw, ":"):
		at := strings.IndexByte(raw, '@')
		colon := strings.IndexByte(raw, ':')
		if colon < at {
			return Provider{}, fmt.Errorf("unrecognized remote url %q", remoteURL)
		}
		host, path = raw[at+1:colon], raw[colon+1:]
	default:
		return Provider{}, fmt.Errorf("unrecognized remote url %q", remoteURL)
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Provider{}, fmt.Errorf("remote url %q has no owner/name path", remoteURL)
	}
	owner := parts[0]
	name := parts[len(parts)-1]

	id := knownHosts[host]
	if id == "" {
		id = host
	}
	return Provider{
		ID:     id,
		Host:   host,
		Owner:  owner,
		Name:   name,
		WebURL: fmt.Sprintf("https://%s/%s/%s", host, owner, name),
	}, nil
}
