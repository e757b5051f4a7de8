package patch

import "strings"

// FileStatus classifies a file-level change in a diff.
type FileStatus string

const (
	StatusAdded    FileStatus = "added"
	StatusModified FileStatus = "modified"
	StatusDeleted  FileStatus = "deleted"
	StatusRenamed  FileStatus = "renamed"
)

// FileChange summarizes one file's change within a unified diff.
type FileChange struct {
	Path         string
	OriginalPath string // set for renames
	Status       FileStatus
	Additions    int
	Deletions    int
}

// ParseFileChanges extracts the per-file change list from unified-diff text.
// It understands the "diff --git" header form emitted by git and by the
// go-git/difflib diff path. Unknown or malformed sections are skipped rather
// than failing the whole parse.
func ParseFileChanges(diff string) []FileChange {
	var changes []FileChange
	var cur *FileChange

	for _, line := range strings.SplitAfter(diff, "\n") {
		line = strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(line, "diff --git "):
			if cur != nil {
				changes = append(changes, *cur)
			}
			a, b := splitGitHeader(strings.TrimPrefix(line, "diff --git "))
			cur = &FileChange{Path: b, Status: StatusModified}
			if a != b && a != "" && b != "" {
				cur.OriginalPath = a
				cur.Status = StatusRenamed
			}
		case cur == nil:
			// Preamble before the first file header.
		case strings.HasPrefix(line, "new file mode"):
			cur.Status = StatusAdded
		case strings.HasPrefix(line, "deleted file mode"):
			cur.Status = StatusDeleted
		case strings.HasPrefix(line, "rename from "):
			cur.OriginalPath = strings.TrimPrefix(line, "rename from ")
			cur.Status = StatusRenamed
		case strings.HasPrefix(line, "rename to "):
			cur.Path = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, "--- "), strings.HasPrefix(line, "+++ "):
			// File markers, not content.
		case strings.HasPrefix(line, "+"):
			cur.Additions++
		case strings.HasPrefix(line, "-"):
			cur.Deletions++
		}
	}
	if cur != nil {
		changes = append(changes, *cur)
	}
	return changes
}

// ExtractFileDiff returns the section of a unified diff that belongs to
// path, header line included, or "" when the diff has no section for it.
func ExtractFileDiff(diff, path string) string {
	var section strings.Builder
	collecting := false

	for _, line := range strings.SplitAfter(diff, "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			if collecting {
				break
			}
			_, b := splitGitHeader(strings.TrimPrefix(strings.TrimSuffix(line, "\n"), "diff --git "))
			collecting = b == path
		}
		if collecting {
			section.WriteString(line)
		}
	}
	return section.String()
}

// splitGitHeader splits the `a/path b/path` tail of a diff --git line.
// Paths containing spaces are handled by scanning for the ` b/` separator.
func splitGitHeader(rest string) (string, string) {
	if i := strings.LastIndex(rest, " b/"); i >= 0 {
		return strings.TrimPrefix(rest[:i], "a/"), rest[i+3:]
	}
	fields := strings.Fields(rest)
	if len(fields) == 2 {
		return strings.TrimPrefix(fields[0], "a/"), strings.TrimPrefix(fields[1], "b/")
	}
	return "", ""
}
