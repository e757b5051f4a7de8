// Package app wires the patchdeck pieces together and runs the interactive
// view: config, preferences (with hot reload), the cloud client, the git
// engine, the reconciler and the terminal consumer.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/patchdeck/patchdeck/internal/cloud"
	"github.com/patchdeck/patchdeck/internal/config"
	"github.com/patchdeck/patchdeck/internal/prefs"
	"github.com/patchdeck/patchdeck/internal/scm"
	"github.com/patchdeck/patchdeck/internal/ui"
	"github.com/patchdeck/patchdeck/internal/view"
)

// Options configure the interactive view.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/patchdeck/prefs.toml
	RepoPath   string // overrides the configured repository path

	// Exactly one of these may seed the view; both empty starts blank.
	DiffFile string // local diff to show
	DraftID  string // cloud patch to fetch and show
}

// Run boots the patchdeck view until the context is cancelled or the user
// quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client, err := cloud.NewClient(cfg.ServiceURL, cfg.Token)
	if err != nil {
		return fmt.Errorf("init cloud client: %w", err)
	}

	term := ui.New()
	projector := view.NewProjector(client)
	delay := time.Duration(cfg.DebounceMS) * time.Millisecond
	rec := view.NewReconciler(projector, delay, term.Notify)
	defer rec.Close()

	cmds := view.NewCommands(rec, projector, term, client, nil, openEngine)

	userPrefs := prefs.Load(opts.PrefsPath)
	rec.UpdatePending(view.Update{Preferences: &userPrefs}, false)

	watcher, err := prefs.Watch(opts.PrefsPath, func(p prefs.Prefs) {
		cmds.UpdatePreferences(p)
	})
	if err != nil {
		log.Printf("prefs watch unavailable: %v", err)
	} else {
		defer func() { _ = watcher.Close() }()
	}

	repoPath := opts.RepoPath
	if repoPath == "" {
		repoPath = cfg.RepoPath
	}
	if repoPath != "" {
		engine, err := scm.Open(repoPath)
		if err != nil {
			return fmt.Errorf("open repository %s: %w", repoPath, err)
		}
		projector.SetEngine(engine)
	}

	if err := seed(ctx, cmds, client, opts); err != nil {
		return err
	}
	visible := true
	rec.UpdatePending(view.Update{Visible: &visible}, false)
	rec.Flush(false)

	return term.Run(ctx, cmds)
}

// seed loads the initial patch named on the command line, if any.
func seed(ctx context.Context, cmds *view.Commands, client *cloud.Client, opts Options) error {
	switch {
	case opts.DiffFile != "":
		contents, err := os.ReadFile(opts.DiffFile)
		if err != nil {
			return fmt.Errorf("read diff file: %w", err)
		}
		cmds.ShowLocal(string(contents))
	case opts.DraftID != "":
		cp, err := client.Get(ctx, opts.DraftID)
		if err != nil {
			return fmt.Errorf("fetch draft %s: %w", opts.DraftID, err)
		}
		if cp == nil {
			return fmt.Errorf("draft %s does not exist", opts.DraftID)
		}
		cmds.ShowCloud(cp)
	}
	return nil
}

func openEngine(path string) (scm.Engine, error) {
	return scm.Open(path)
}
