// Package cli implements the command-line interface for patchdeck.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/patchdeck/patchdeck/internal/cloud"
	"github.com/patchdeck/patchdeck/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "patchdeck",
	Short: "Share and review patches through the patchdeck cloud",
	Long: `patchdeck publishes local diffs as cloud patches, fetches patches
others shared, and shows either kind in an interactive terminal view.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "override config path (default ~/.config/patchdeck/config.toml)")
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(getCmd)
}

// initClient loads config and builds the cloud client.
func initClient() (config.Config, *cloud.Client) {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitError("%v", err)
	}
	client, err := cloud.NewClient(cfg.ServiceURL, cfg.Token)
	if err != nil {
		exitError("%v", err)
	}
	return cfg, client
}

// exitError prints an error and exits.
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns the first 8 characters of an id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
