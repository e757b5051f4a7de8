package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/patchdeck/patchdeck/internal/patch"
)

var getContents bool

var getCmd = &cobra.Command{
	Use:   "get <draft-id>",
	Short: "Fetch a cloud patch",
	Long: `Fetch a cloud patch's metadata, or its raw diff with --contents.

Examples:
  patchdeck get drft_9f2c81                       Show metadata
  patchdeck get drft_9f2c81 --contents > x.patch  Save the diff`,
	Args: cobra.ExactArgs(1),
	Run:  runGet,
}

func init() {
	getCmd.Flags().BoolVarP(&getContents, "contents", "c", false, "print the raw diff instead of metadata")
}

func runGet(cmd *cobra.Command, args []string) {
	_, client := initClient()
	ctx := context.Background()

	cp, err := client.Get(ctx, args[0])
	if err != nil {
		exitError("%v", err)
	}
	if cp == nil {
		exitError("draft %s does not exist", args[0])
	}

	if getContents {
		row, err := cp.Current()
		if err != nil {
			exitError("%v", err)
		}
		contents, err := client.GetPatchContents(ctx, row.ID)
		if err != nil {
			exitError("download contents: %v", err)
		}
		fmt.Print(contents)
		return
	}

	printPatch(cp)
}

func printPatch(cp *patch.CloudPatch) {
	bold := color.New(color.Bold)
	muted := color.New(color.Faint)

	bold.Printf("%s", cp.ID)
	if cp.Title != "" {
		fmt.Printf("  %q", cp.Title)
	}
	if cp.IsPublic {
		color.New(color.FgYellow).Print("  public")
	}
	fmt.Println()

	if cp.Description != "" {
		fmt.Printf("  %s\n", cp.Description)
	}
	if cp.CreatedBy != "" {
		muted.Printf("  by %s", cp.CreatedBy)
		if !cp.CreatedAt.IsZero() {
			muted.Printf(" at %s", cp.CreatedAt.Format("2006-01-02 15:04"))
		}
		fmt.Println()
	}
	if cp.DeepLink != "" {
		fmt.Printf("  %s\n", cp.DeepLink)
	}

	for _, cs := range cp.Changesets {
		muted.Printf("  changeset %s\n", shortID(cs.ID))
		for _, row := range cs.Patches {
			fmt.Printf("    patch %s", shortID(row.ID))
			if row.BaseBranchName != "" {
				fmt.Printf("  base %s", row.BaseBranchName)
			}
			if row.BaseCommitSHA != "" {
				fmt.Printf(" @ %s", shortID(row.BaseCommitSHA))
			}
			fmt.Println()
		}
	}

	if len(cp.Changesets) == 0 {
		fmt.Fprintln(os.Stderr, "  (no changesets)")
	}
}
