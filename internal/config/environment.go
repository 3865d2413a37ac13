package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nimplane/nimplane/internal/remote"
)

const defaultEnvironmentName = "default"

// ResolvedEnvironment is a fully-resolved environment with concrete
// connection details for every named host.
type ResolvedEnvironment struct {
	Name       string
	Hosts      remote.HostSet
	HistoryURL string
	Wait       WaitConfig
	DotenvPath string
	FromConfig bool
	FromDotenv bool
}

// ResolveEnvironment resolves a named environment from the config,
// layering a `.env.<name>` dotenv file over it when present. Dotenv
// keys: NIMPLANE_HISTORY_URL, NIMPLANE_SSH_USER, NIMPLANE_IDENTITY_FILE.
func ResolveEnvironment(config *Config, name string) (*ResolvedEnvironment, error) {
	envName := strings.TrimSpace(name)
	if envName == "" {
		if config != nil && config.DefaultEnvironment != "" {
			envName = config.DefaultEnvironment
		} else {
			envName = defaultEnvironmentName
		}
	}

	resolved := &ResolvedEnvironment{
		Name:  envName,
		Hosts: remote.HostSet{},
	}

	var envConfig EnvironmentConfig
	var envExists bool
	if config != nil {
		resolved.HistoryURL = config.HistoryURL
		resolved.Wait = config.Wait
		if cfg, ok := config.Environments[envName]; ok {
			envConfig = cfg
			envExists = true
		}
	}
	if envConfig.HistoryURL != "" {
		resolved.HistoryURL = envConfig.HistoryURL
	}
	resolved.FromConfig = envExists

	for hostName, hc := range envConfig.Hosts {
		address := hc.Address
		if address == "" {
			address = hostName
		}
		resolved.Hosts[hostName] = remote.Host{
			Name:         hostName,
			Address:      address,
			User:         hc.User,
			IdentityFile: expandHome(hc.IdentityFile),
		}
	}

	baseDir := ""
	if config != nil {
		baseDir = config.ConfigDir()
	}
	if baseDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			baseDir = cwd
		}
	}
	resolved.DotenvPath = filepath.Join(baseDir, ".env."+envName)

	if info, err := os.Stat(resolved.DotenvPath); err == nil && !info.IsDir() {
		values, err := godotenv.Read(resolved.DotenvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", resolved.DotenvPath, err)
		}
		resolved.FromDotenv = true

		if value := values["NIMPLANE_HISTORY_URL"]; value != "" {
			resolved.HistoryURL = value
		}
		user := values["NIMPLANE_SSH_USER"]
		identity := expandHome(values["NIMPLANE_IDENTITY_FILE"])
		if user != "" || identity != "" {
			for name, h := range resolved.Hosts {
				if user != "" && h.User == "" {
					h.User = user
				}
				if identity != "" && h.IdentityFile == "" {
					h.IdentityFile = identity
				}
				resolved.Hosts[name] = h
			}
		}
	}

	if config != nil && len(config.Environments) > 0 && !envExists && !resolved.FromDotenv {
		return nil, fmt.Errorf("environment %q not defined in %s and %s not found",
			envName, ConfigFileName, resolved.DotenvPath)
	}

	return resolved, nil
}

// WaitDuration returns the configured fixed delay, defaulting to the
// five minutes the original workflow slept after the reboot.
func (w WaitConfig) WaitDuration() time.Duration {
	if w.Seconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(w.Seconds) * time.Second
}

// PollDelay returns the delay between readiness probes.
func (w WaitConfig) PollDelay() time.Duration {
	if w.PollDelaySeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(w.PollDelaySeconds) * time.Second
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
