package wizard

import (
	"encoding/json"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pelletier/go-toml/v2"
)

type fileCreationResultMsg struct {
	result *InitResult
	err    error
}

const planFileName = "migration-plan.json"

// createFiles writes nimplane.toml and the starter plan as a tea.Cmd so
// the UI stays responsive.
func createFiles(env EnvironmentInput, force bool) tea.Cmd {
	return func() tea.Msg {
		result, err := writeFiles(env, force)
		return fileCreationResultMsg{result: result, err: err}
	}
}

func writeFiles(env EnvironmentInput, force bool) (*InitResult, error) {
	result := &InitResult{ConfigPath: "nimplane.toml", PlanPath: planFileName}

	if !force {
		if _, err := os.Stat(result.ConfigPath); err == nil {
			return nil, fmt.Errorf("%s already exists", result.ConfigPath)
		}
		if _, err := os.Stat(result.PlanPath); err == nil {
			return nil, fmt.Errorf("%s already exists", result.PlanPath)
		}
	}

	type hostEntry struct {
		Address      string `toml:"address"`
		User         string `toml:"user,omitempty"`
		IdentityFile string `toml:"identity_file,omitempty"`
	}
	type envEntry struct {
		Hosts map[string]hostEntry `toml:"hosts"`
	}
	type configFile struct {
		DefaultEnvironment string              `toml:"default_environment"`
		Environments       map[string]envEntry `toml:"environments"`
	}

	cfg := configFile{
		DefaultEnvironment: env.Name,
		Environments: map[string]envEntry{
			env.Name: {
				Hosts: map[string]hostEntry{
					env.MasterA: {Address: env.MasterAAddr, User: env.SSHUser, IdentityFile: env.IdentityFile},
					env.MasterB: {Address: env.MasterBAddr, User: env.SSHUser, IdentityFile: env.IdentityFile},
				},
			},
		},
	}

	configData, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", result.ConfigPath, err)
	}
	if err := os.WriteFile(result.ConfigPath, configData, 0644); err != nil {
		return nil, err
	}
	result.ConfigCreated = true

	planDoc := map[string]any{
		"environment": env.Name,
		"description": fmt.Sprintf("Migrate NIM master %s via %s", env.MasterB, env.MasterA),
		"parameters": map[string]string{
			"master_a":    env.MasterA,
			"master_b":    env.MasterB,
			"alt_disk":    env.AltDisk,
			"lpp_source":  env.LppSource,
			"spot":        env.Spot,
			"fileset_src": env.FilesetSrc,
		},
	}
	if env.BackupFile != "" {
		planDoc["parameters"].(map[string]string)["backup_file"] = env.BackupFile
	}

	planData, err := json.MarshalIndent(planDoc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", result.PlanPath, err)
	}
	planData = append(planData, '\n')
	if err := os.WriteFile(result.PlanPath, planData, 0644); err != nil {
		return nil, err
	}
	result.PlanCreated = true

	return result, nil
}
