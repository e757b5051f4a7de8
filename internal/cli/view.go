package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/patchdeck/patchdeck/internal/app"
)

var (
	viewRepo  string
	viewPrefs string
)

var viewCmd = &cobra.Command{
	Use:   "view [<diff-file> | <draft-id>]",
	Short: "Open the interactive patch view",
	Long: `Open the terminal view on a patch.

An argument naming an existing file is shown as a local diff; any other
argument is treated as a cloud draft id and fetched. With no argument the
view starts empty.

Examples:
  patchdeck view changes.patch      View a local diff
  patchdeck view drft_9f2c81        View a published patch
  patchdeck view --repo ~/src/app   Pre-select the repository`,
	Args: cobra.MaximumNArgs(1),
	Run:  runView,
}

func init() {
	viewCmd.Flags().StringVar(&viewRepo, "repo", "", "repository to resolve and apply against")
	viewCmd.Flags().StringVar(&viewPrefs, "prefs", "", "override preferences path")
}

func runView(cmd *cobra.Command, args []string) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: configPath,
		PrefsPath:  viewPrefs,
		RepoPath:   viewRepo,
	}
	if len(args) == 1 {
		arg := args[0]
		if _, err := os.Stat(arg); err == nil {
			opts.DiffFile = arg
		} else {
			opts.DraftID = strings.TrimSpace(arg)
		}
	}

	if err := app.Run(ctx, opts); err != nil {
		exitError("%v", err)
	}
}
