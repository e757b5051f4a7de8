package scm

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	gitindex "github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"
)

// GitEngine implements Engine over a local git repository. Reads go through
// go-git; patch application shells out to the git CLI (see apply.go), which
// is the only tool that applies arbitrary patch text reliably.
type GitEngine struct {
	root string
	repo *gitlib.Repository
}

var _ Engine = (*GitEngine)(nil)

// Open opens the repository containing path.
func Open(path string) (*GitEngine, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	return &GitEngine{root: wt.Filesystem.Root(), repo: repo}, nil
}

func (e *GitEngine) Root() string { return e.root }

func (e *GitEngine) HeadCommit(ctx context.Context) (string, error) {
	head, err := e.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve head: %w", err)
	}
	return head.Hash().String(), nil
}

func (e *GitEngine) CurrentBranch(ctx context.Context) (string, error) {
	head, err := e.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve head: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", nil // detached head
	}
	return head.Name().Short(), nil
}

func (e *GitEngine) Remotes(ctx context.Context) ([]Remote, error) {
	raw, err := e.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("list remotes: %w", err)
	}
	remotes := make([]Remote, 0, len(raw))
	for _, r := range raw {
		cfg := r.Config()
		if len(cfg.URLs) == 0 {
			continue
		}
		remotes = append(remotes, Remote{Name: cfg.Name, URL: cfg.URLs[0]})
	}
	return remotes, nil
}

func (e *GitEngine) FirstCommit(ctx context.Context) (string, error) {
	head, err := e.repo.Head()
	if err == plumbing.ErrReferenceNotFound {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve head: %w", err)
	}
	iter, err := e.repo.Log(&gitlib.LogOptions{From: head.Hash()})
	if err != nil {
		return "", fmt.Errorf("walk history: %w", err)
	}
	defer iter.Close()

	var root plumbing.Hash
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.NumParents() == 0 {
			root = c.Hash
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk history: %w", err)
	}
	if root.IsZero() {
		return "", nil
	}
	return root.String(), nil
}

// WorktreeDiff builds unified-diff text for uncommitted changes: staged
// selects index-vs-head, otherwise worktree-vs-head. Untracked files are
// excluded, matching `git diff` semantics.
func (e *GitEngine) WorktreeDiff(ctx context.Context, staged bool) (string, error) {
	wt, err := e.repo.Worktree()
	if err != nil {
		return "", err
	}
	status, err := wt.Status()
	if err != nil {
		return "", err
	}
	headTree, err := e.headTree()
	if err != nil && err != plumbing.ErrReferenceNotFound {
		return "", err
	}
	var idx *gitindex.Index
	if staged {
		if idx, err = e.repo.Storer.Index(); err != nil {
			return "", err
		}
	}

	var paths []string
	for path, st := range status {
		if staged {
			if st.Staging != gitlib.Unmodified && st.Staging != gitlib.Untracked {
				paths = append(paths, path)
			}
		} else if st.Worktree != gitlib.Unmodified && st.Worktree != gitlib.Untracked {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		from, err := fileFromTree(headTree, path)
		if err != nil {
			return "", err
		}
		var to *object.File
		if staged {
			to, err = e.fileFromIndex(idx, path)
		} else {
			to, err = fileFromDisk(e.root, path)
		}
		if err != nil {
			return "", err
		}
		if from == nil && to == nil {
			continue
		}
		if err := writeFileDiff(&b, path, from, to); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

func (e *GitEngine) headTree() (*object.Tree, error) {
	head, err := e.repo.Head()
	if err != nil {
		return nil, err
	}
	commit, err := e.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, err
	}
	return commit.Tree()
}

func fileFromTree(tree *object.Tree, path string) (*object.File, error) {
	if tree == nil {
		return nil, nil
	}
	f, err := tree.File(path)
	if err == object.ErrFileNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (e *GitEngine) fileFromIndex(idx *gitindex.Index, path string) (*object.File, error) {
	if idx == nil {
		return nil, nil
	}
	entry, err := idx.Entry(path)
	if err == gitindex.ErrEntryNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	blob, err := object.GetBlob(e.repo.Storer, entry.Hash)
	if err != nil {
		return nil, err
	}
	return object.NewFile(entry.Name, entry.Mode, blob), nil
}

func fileFromDisk(root, path string) (*object.File, error) {
	file, err := os.Open(filepath.Join(root, path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	mem := &plumbing.MemoryObject{}
	mem.SetType(plumbing.BlobObject)
	if _, err := mem.Write(data); err != nil {
		return nil, err
	}
	blob, err := object.DecodeBlob(mem)
	if err != nil {
		return nil, err
	}
	mode := filemode.Regular
	if info, err := file.Stat(); err == nil {
		if m, err := filemode.NewFromOSFileMode(info.Mode()); err == nil {
			mode = m
		}
	}
	return object.NewFile(path, mode, blob), nil
}

func writeFileDiff(b *strings.Builder, path string, from, to *object.File) error {
	fmt.Fprintf(b, "diff --git a/%s b/%s\n", path, path)

	if bin, err := binaryChange(from, to); err != nil {
		return err
	} else if bin {
		b.WriteString("Binary files differ\n")
		return nil
	}
	if from == nil {
		b.WriteString("new file mode 100644\n")
	}
	if to == nil {
		b.WriteString("deleted file mode 100644\n")
	}

	fromLines, err := fileLines(from)
	if err != nil {
		return err
	}
	toLines, err := fileLines(to)
	if err != nil {
		return err
	}

	diffText, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        fromLines,
		B:        toLines,
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
	if err != nil {
		return err
	}
	b.WriteString(diffText)
	if diffText != "" && !strings.HasSuffix(diffText, "\n") {
		b.WriteString("\n")
	}
	return nil
}

func binaryChange(from, to *object.File) (bool, error) {
	for _, f := range []*object.File{from, to} {
		if f == nil {
			continue
		}
		bin, err := f.IsBinary()
		if err != nil {
			return false, err
		}
		if bin {
			return true, nil
		}
	}
	return false, nil
}

func fileLines(f *object.File) ([]string, error) {
	if f == nil {
		return []string{}, nil
	}
	content, err := f.Contents()
	if err != nil {
		return nil, err
	}
	return difflib.SplitLines(content), nil
}
