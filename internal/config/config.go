// Package config loads nimplane.toml, which names the fleet: one entry
// per environment, each mapping short host names to SSH connection
// details, plus history-journal and wait-strategy settings.
package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is discovered by walking up from the working directory
// to the project root.
const ConfigFileName = "nimplane.toml"

// HostConfig is one fleet machine.
type HostConfig struct {
	Address      string `toml:"address"`
	User         string `toml:"user"`
	IdentityFile string `toml:"identity_file"`
}

// WaitConfig selects the post-reboot wait strategy.
type WaitConfig struct {
	Strategy         string `toml:"strategy"` // "fixed" (default) or "poll"
	Seconds          int    `toml:"seconds"`
	PollAttempts     int    `toml:"poll_attempts"`
	PollDelaySeconds int    `toml:"poll_delay_seconds"`
	PollCommand      string `toml:"poll_command"`
}

// EnvironmentConfig describes a single named environment.
type EnvironmentConfig struct {
	Description string                `toml:"description"`
	HistoryURL  string                `toml:"history_url"`
	Hosts       map[string]HostConfig `toml:"hosts"`
}

type Config struct {
	DefaultEnvironment string                       `toml:"default_environment"`
	HistoryURL         string                       `toml:"history_url"`
	Wait               WaitConfig                   `toml:"wait"`
	Environments       map[string]EnvironmentConfig `toml:"environments"`
	ConfigFilePath     string                       `toml:"-"`
}

// LoadConfig walks up from the working directory looking for
// nimplane.toml, stopping at a project boundary. A missing file is not
// an error; the zero Config still resolves ad-hoc hosts.
func LoadConfig() (*Config, error) {
	startDir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return loadConfigFrom(startDir)
}

func loadConfigFrom(startDir string) (*Config, error) {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, err
			}

			var config Config
			if err := toml.Unmarshal(data, &config); err != nil {
				return nil, err
			}

			config.ConfigFilePath = configPath
			return &config, nil
		}

		if isProjectRoot(dir) {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return &Config{}, nil
}

// ConfigDir returns the directory holding the config file, or "" when
// no file was found.
func (c *Config) ConfigDir() string {
	if c.ConfigFilePath == "" {
		return ""
	}
	return filepath.Dir(c.ConfigFilePath)
}

// isProjectRoot checks if the directory is a project root based on common markers
func isProjectRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	return false
}
