package scm

import "testing"

func TestParseProvider(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    Provider
		wantErr bool
	}{
		{
			name: "https github",
			url:  "https://github.com/acme/widgets.git",
			want: Provider{ID: "github", Host: "github.com", Owner: "acme", Name: "widgets", WebURL: "https://github.com/acme/widgets"},
		},
		{
			name: "scp-like gitlab",
			url:  "git@gitlab.com:acme/widgets.git",
			want: Provider{ID: "gitlab", Host: "gitlab.com", Owner: "acme", Name: "widgets", WebURL: "https://gitlab.com/acme/widgets"},
		},
		{
			name: "self-hosted keeps host as id",
			url:  "ssh://git@git.internal.example/team/tool",
			want: Provider{ID: "git.internal.example", Host: "git.internal.example", Owner: "team", Name: "tool", WebURL: "https://git.internal.example/team/tool"},
		},
		{
			name: "nested group path uses last segment",
			url:  "https://gitlab.com/acme/platform/widgets.git",
			want: Provider{ID: "gitlab", Host: "gitlab.com", Owner: "acme", Name: "widgets", WebURL: "https://gitlab.com/acme/widgets"},
		},
		{name: "empty", url: "", wantErr: true},
		{name: "no path", url: "https://github.com", wantErr: true},
		{name: "local path", url: "/srv/git/widgets.git", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProvider(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseProvider(%q) = %#v, want error", tt.url, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProvider(%q) returned error: %v", tt.url, err)
			}
			if got != tt.want {
				t.Fatalf("ParseProvider(%q) = %#v, want %#v", tt.url, got, tt.want)
			}
		})
	}
}

func TestBestProviderPrefersOrigin(t *testing.T) {
	remotes := []Remote{
		{Name: "fork", URL: "https://github.com/me/widgets.git"},
		{Name: "origin", URL: "https://github.com/acme/widgets.git"},
	}
	p, err := BestProvider(remotes)
	if err != nil {
		t.Fatalf("BestProvider returned error: %v", err)
	}
	if p.Owner != "acme" {
		t.Fatalf("owner = %q, want acme (origin preferred)", p.Owner)
	}
}

func TestBestProviderFallsBackToFirstParseable(t *testing.T) {
	remotes := []Remote{
		{Name: "backup", URL: "/mnt/backup/widgets.git"},
		{Name: "upstream", URL: "git@github.com:acme/widgets.git"},
	}
	p, err := BestProvider(remotes)
	if err != nil {
		t.Fatalf("BestProvider returned error: %v", err)
	}
	if p.Owner != "acme" || p.ID != "github" {
		t.Fatalf("provider = %#v, want acme on github", p)
	}
}

func TestBestProviderNoneFound(t *testing.T) {
	if _, err := BestProvider([]Remote{{Name: "backup", URL: "/mnt/backup.git"}}); err != ErrNoProvider {
		t.Fatalf("error = %v, want ErrNoProvider", err)
	}
	if _, err := BestProvider(nil); err != ErrNoProvider {
		t.Fatalf("error = %v, want ErrNoProvider", err)
	}
}
