package view

import (
	"testing"

	"github.com/patchdeck/patchdeck/internal/scm"
)

func TestDeriveAutolinks(t *testing.T) {
	github := scm.Provider{ID: "github", WebURL: "https://github.com/acme/widgets"}
	gitlab := scm.Provider{ID: "gitlab", WebURL: "https://gitlab.com/acme/widgets"}

	tests := []struct {
		name     string
		provider scm.Provider
		text     string
		want     []Autolink
	}{
		{
			name:     "issue reference",
			provider: github,
			text:     "fixes #17",
			want: []Autolink{
				{Text: "#17", URL: "https://github.com/acme/widgets/issues/17", Kind: "issue"},
			},
		},
		{
			name:     "duplicate references collapse",
			provider: github,
			text:     "see #17, also #17",
			want: []Autolink{
				{Text: "#17", URL: "https://github.com/acme/widgets/issues/17", Kind: "issue"},
			},
		},
		{
			name:     "commit id",
			provider: github,
			text:     "regressed in deadbeef123",
			want: []Autolink{
				{Text: "deadbeef123", URL: "https://github.com/acme/widgets/commit/deadbeef123", Kind: "commit"},
			},
		},
		{
			name:     "gitlab paths",
			provider: gitlab,
			text:     "closes #3 after 0123abc",
			want: []Autolink{
				{Text: "#3", URL: "https://gitlab.com/acme/widgets/-/issues/3", Kind: "issue"},
				{Text: "0123abc", URL: "https://gitlab.com/acme/widgets/-/commit/0123abc", Kind: "commit"},
			},
		},
		{
			name:     "short hex words ignored",
			provider: github,
			text:     "bad cafe",
			want:     nil,
		},
		{
			name:     "hex-shaped english word ignored",
			provider: github,
			text:     "the page was defaced badly",
			want:     nil,
		},
		{
			name:     "all-digit run ignored",
			provider: github,
			text:     "build 1234567 is green",
			want:     nil,
		},
		{
			name:     "plain text yields nothing",
			provider: github,
			text:     "tidy up error wrapping",
			want:     nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := deriveAutolinks(tc.provider, tc.text)
			if len(got) != len(tc.want) {
				t.Fatalf("links = %+v, want %+v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("link %d = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}
