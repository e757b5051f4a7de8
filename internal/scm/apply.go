package scm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CommitFromPatch materializes patch contents as a commit on top of
// baseCommit without touching the worktree or the real index: the patch is
// applied against a throwaway index file and committed with commit-tree.
// The resulting commit is unreachable from any ref.
func (e *GitEngine) CommitFromPatch(ctx context.Context, baseCommit, contents string) (string, error) {
	if strings.TrimSpace(baseCommit) == "" {
		return "", fmt.Errorf("base commit required")
	}

	idx, err := os.CreateTemp("", "patchdeck-index-*")
	if err != nil {
		return "", fmt.Errorf("temp index: %w", err)
	}
	idxPath := idx.Name()
	_ = idx.Close()
	_ = os.Remove(idxPath) // read-tree recreates it
	defer os.Remove(idxPath)

	env := []string{"GIT_INDEX_FILE=" + idxPath}

	if _, err := e.runGit(ctx, env, nil, "read-tree", baseCommit); err != nil {
		return "", fmt.Errorf("read base tree: %w", err)
	}
	if _, err := e.runGit(ctx, env, strings.NewReader(contents), "apply", "--cached", "-"); err != nil {
		return "", fmt.Errorf("apply patch: %w", err)
	}
	tree, err := e.runGit(ctx, env, nil, "write-tree")
	if err != nil {
		return "", fmt.Errorf("write tree: %w", err)
	}
	commit, err := e.runGit(ctx, env, nil,
		"-c", "user.name=patchdeck", "-c", "user.email=patchdeck@localhost",
		"commit-tree", strings.TrimSpace(tree), "-p", baseCommit, "-m", "materialized patch")
	if err != nil {
		return "", fmt.Errorf("commit tree: %w", err)
	}
	return strings.TrimSpace(commit), nil
}

// Apply applies patch contents to the repository per opts.
func (e *GitEngine) Apply(ctx context.Context, contents string, opts ApplyOptions) error {
	switch opts.Target {
	case ApplyToWorktree:
		_, err := e.runGit(ctx, nil, strings.NewReader(contents), "apply", "-")
		return err
	case ApplyToHead:
		_, err := e.runGit(ctx, nil, strings.NewReader(contents), "apply", "--index", "-")
		return err
	case ApplyToBranch:
		if strings.TrimSpace(opts.Branch) == "" {
			return errors.New("branch name required for branch target")
		}
		if _, err := e.runGit(ctx, nil, nil, "switch", "--create", opts.Branch); err != nil {
			// Branch may already exist; try a plain switch.
			if _, err2 := e.runGit(ctx, nil, nil, "switch", opts.Branch); err2 != nil {
				return err
			}
		}
		_, err := e.runGit(ctx, nil, strings.NewReader(contents), "apply", "--index", "-")
		return err
	default:
		return fmt.Errorf("unknown apply target %d", opts.Target)
	}
}

func (e *GitEngine) runGit(ctx context.Context, extraEnv []string, stdin *strings.Reader, args ...string) (string, error) {
	cmdArgs := append([]string{"-C", e.root}, args...)
	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	cmd.Env = append(os.Environ(), extraEnv...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		name := gitSubcommand(args)
		if stderr.Len() > 0 {
			return "", fmt.Errorf("git %s: %v: %s", name, err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("git %s: %w", name, err)
	}
	return stdout.String(), nil
}

// gitSubcommand finds the subcommand in an argument list for error messages,
// skipping -c key=value option pairs.
func gitSubcommand(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "-c" {
			i++
			continue
		}
		if !strings.HasPrefix(args[i], "-") {
			return args[i]
		}
	}
	return "git"
}
