package view

import (
	"regexp"

	"github.com/patchdeck/patchdeck/internal/scm"
)

var (
	issueRefPattern  = regexp.MustCompile(`#(\d+)`)
	commitRefPattern = regexp.MustCompile(`\b[0-9a-f]{7,40}\b`)
)

// deriveAutolinks scans text for issue references (#123) and commit ids and
// turns them into provider web links. Duplicate references collapse to one
// link; order follows first appearance, issues before commits.
func deriveAutolinks(p scm.Provider, text string) []Autolink {
	var links []Autolink
	seen := make(map[string]bool)

	for _, m := range issueRefPattern.FindAllStringSubmatch(text, -1) {
		if seen[m[0]] {
			continue
		}
		seen[m[0]] = true
		links = append(links, Autolink{
			Text: m[0],
			URL:  p.WebURL + issuePath(p.ID) + m[1],
			Kind: "issue",
		})
	}

	for _, sha := range commitRefPattern.FindAllString(text, -1) {
		if seen[sha] || !plausibleCommitSHA(sha) {
			continue
		}
		seen[sha] = true
		links = append(links, Autolink{
			Text: sha,
			URL:  p.WebURL + commitPath(p.ID) + sha,
			Kind: "commit",
		})
	}
	return links
}

// plausibleCommitSHA filters hex-shaped ordinary words: a candidate needs at
// least one digit and one letter, which drops words like "defaced" and bare
// numbers that are more likely issue or version references.
func plausibleCommitSHA(s string) bool {
	var digit, letter bool
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digit = true
		} else {
			letter = true
		}
	}
	return digit && letter
}

func issuePath(providerID string) string {
	switch providerID {
	case "gitlab":
		return "/-/issues/"
	default:
		return "/issues/"
	}
}

func commitPath(providerID string) string {
	switch providerID {
	case "gitlab":
		return "/-/commit/"
	case "bitbucket":
		return "/commits/"
	default:
		return "/commit/"
	}
}
