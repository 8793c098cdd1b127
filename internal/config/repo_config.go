// Package config provides repository configuration management,
// including reading and writing the sage configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const configFileName = ".sage_config"

// RepoConfig represents the repository configuration
type RepoConfig struct {
	Trunk  *string `json:"trunk,omitempty"`
	Remote *string `json:"remote,omitempty"`
}

func configPath(repoRoot string) string {
	return filepath.Join(repoRoot, ".git", configFileName)
}

// GetRepoConfig reads the repository configuration.
// A missing file yields the default config.
func GetRepoConfig(repoRoot string) (*RepoConfig, error) {
	data, err := os.ReadFile(configPath(repoRoot))
	if err != nil {
		return &RepoConfig{}, nil
	}

	var config RepoConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse repo config: %w", err)
	}
	return &config, nil
}

// WriteRepoConfig writes the repository configuration
func WriteRepoConfig(repoRoot string, config *RepoConfig) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal repo config: %w", err)
	}
	if err := os.WriteFile(configPath(repoRoot), data, 0o600); err != nil {
		return fmt.Errorf("failed to write repo config: %w", err)
	}
	return nil
}

// IsInitialized reports whether sage has been initialized in this repository
func IsInitialized(repoRoot string) bool {
	_, err := os.Stat(configPath(repoRoot))
	return err == nil
}

// GetTrunk returns the configured trunk branch name, or "main" as default
func GetTrunk(repoRoot string) (string, error) {
	config, err := GetRepoConfig(repoRoot)
	if err != nil {
		return "", err
	}
	if config.Trunk != nil && *config.Trunk != "" {
		return *config.Trunk, nil
	}
	return "main", nil
}

// GetRemote returns the configured remote name, or "origin" as default
func GetRemote(repoRoot string) (string, error) {
	config, err := GetRepoConfig(repoRoot)
	if err != nil {
		return "", err
	}
	if config.Remote != nil && *config.Remote != "" {
		return *config.Remote, nil
	}
	return "origin", nil
}
