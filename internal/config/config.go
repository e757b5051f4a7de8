package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the fields patchdeck needs to reach the patch service and
// the local repository.
type Config struct {
	ServiceURL   string
	Token        string
	GitProfileID string
	RepoPath     string
	DebounceMS   int
}

const (
	defaultConfigPath = "~/.config/patchdeck/config.toml"
	defaultServiceURL = "https://api.patchdeck.dev"
	defaultDebounceMS = 250
)

// Load locates and parses the patchdeck config, falling back to defaults
// when the file is missing. A present but malformed file is an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{ServiceURL: defaultServiceURL, DebounceMS: defaultDebounceMS}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		ServiceURL   string `toml:"service_url"`
		Token        string `toml:"token"`
		GitProfileID string `toml:"git_profile_id"`
		RepoPath     string `toml:"repo_path"`
		DebounceMS   int    `toml:"debounce_ms"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.ServiceURL = strings.TrimSpace(raw.ServiceURL)
	if cfg.ServiceURL == "" {
		cfg.ServiceURL = defaultServiceURL
	}
	cfg.Token = strings.TrimSpace(raw.Token)
	cfg.GitProfileID = strings.TrimSpace(raw.GitProfileID)
	if raw.RepoPath != "" {
		cfg.RepoPath = mustExpand(raw.RepoPath)
	}
	if raw.DebounceMS > 0 {
		cfg.DebounceMS = raw.DebounceMS
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
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
