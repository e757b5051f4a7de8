package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/patchdeck/patchdeck/internal/cloud"
	"github.com/patchdeck/patchdeck/internal/scm"
)

var (
	publishTitle       string
	publishDescription string
	publishPublic      bool
	publishRepo        string
	publishBase        string
	publishStaged      bool
)

var publishCmd = &cobra.Command{
	Use:   "publish [<diff-file>]",
	Short: "Publish a diff as a cloud patch",
	Long: `Create a cloud patch from a diff and print its id and deep link.

The diff comes from the named file, from stdin when the argument is "-",
or from the repository's uncommitted changes when omitted.

Examples:
  patchdeck publish --title "fix retries"            Publish worktree changes
  patchdeck publish changes.patch --public           Publish a diff file
  git diff | patchdeck publish - --base HEAD         Publish piped output`,
	Args: cobra.MaximumNArgs(1),
	Run:  runPublish,
}

func init() {
	publishCmd.Flags().StringVarP(&publishTitle, "title", "t", "", "patch title")
	publishCmd.Flags().StringVarP(&publishDescription, "description", "d", "", "patch description")
	publishCmd.Flags().BoolVar(&publishPublic, "public", false, "make the patch publicly visible")
	publishCmd.Flags().StringVar(&publishRepo, "repo", "", "repository the diff belongs to (default: current directory)")
	publishCmd.Flags().StringVar(&publishBase, "base", "", "base commit the diff applies to (default: HEAD)")
	publishCmd.Flags().BoolVar(&publishStaged, "staged", false, "publish staged changes instead of the worktree")
}

func runPublish(cmd *cobra.Command, args []string) {
	cfg, client := initClient()
	ctx := context.Background()

	repoPath := publishRepo
	if repoPath == "" {
		repoPath = "."
	}
	engine, err := scm.Open(repoPath)
	if err != nil {
		exitError("open repository: %v", err)
	}

	contents, err := readDiff(ctx, engine, args)
	if err != nil {
		exitError("%v", err)
	}
	if contents == "" {
		exitError("nothing to publish: the diff is empty")
	}

	baseCommit := publishBase
	if baseCommit == "" {
		baseCommit, err = engine.HeadCommit(ctx)
		if err != nil {
			exitError("resolve base commit: %v", err)
		}
	}

	src := cloud.PublishSource{
		Repo:        engine,
		ProfileID:   cfg.GitProfileID,
		Title:       publishTitle,
		Description: publishDescription,
		IsPublic:    publishPublic,
	}

	cp, err := client.Create(ctx, src, baseCommit, contents)
	if err != nil {
		var perr *cloud.PublishError
		if errors.As(err, &perr) && perr.DraftID != "" {
			color.New(color.FgYellow).Fprintf(os.Stderr, "draft %s was created but not finalized\n", perr.DraftID)
		}
		exitError("%v", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("published %s", shortID(cp.ID))
	if cp.Title != "" {
		fmt.Printf("  %q", cp.Title)
	}
	fmt.Println()
	if cp.DeepLink != "" {
		fmt.Printf("  %s\n", cp.DeepLink)
	}
}

// readDiff resolves the diff text per the argument rules.
func readDiff(ctx context.Context, engine scm.Engine, args []string) (string, error) {
	if len(args) == 0 {
		return engine.WorktreeDiff(ctx, publishStaged)
	}
	if args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read diff file: %w", err)
	}
	return string(data), nil
}
