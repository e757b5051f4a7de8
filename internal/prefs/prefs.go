// Package prefs handles patchdeck user preferences persistence.
// Preferences are stored in ~/.config/patchdeck/prefs.toml and travel with
// every view snapshot, so the view layer reacts when they change on disk.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Layouts for the changed-files panel.
const (
	LayoutList = "list"
	LayoutTree = "tree"
)

// Prefs holds user preferences for the patch view.
type Prefs struct {
	FilesLayout      string `toml:"files_layout"` // LayoutList or LayoutTree
	DeleteAfterApply bool   `toml:"delete_after_apply"`
	Autolinks        bool   `toml:"autolinks"`
}

const (
	defaultPrefsPath   = "~/.config/patchdeck/prefs.toml"
	defaultFilesLayout = LayoutList
)

// Default returns the preferences used when no file exists.
func Default() Prefs {
	return Prefs{FilesLayout: defaultFilesLayout, Autolinks: true}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from the given path, falling back to defaults if
// the file is missing or unreadable. Preferences never block startup.
func Load(path string) Prefs {
	resolved, err := resolvePath(path)
	if err != nil {
		return Default()
	}

	p := Default()

	file, err := os.Open(resolved)
	if err != nil {
		return p
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return p
	}

	if err := toml.Unmarshal(bytes, &p); err != nil {
		return Default()
	}

	if p.FilesLayout != LayoutList && p.FilesLayout != LayoutTree {
		p.FilesLayout = defaultFilesLayout
	}

	return p
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
