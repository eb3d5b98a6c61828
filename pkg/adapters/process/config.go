package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CommandSpec describes one executable view hook.
type CommandSpec struct {
	Command string   `yaml:"command" json:"command"`
	Args    []string `yaml:"args" json:"args"`
}

// ViewConfig binds a state to the commands run when it enters and
// exits. Either side may be omitted.
type ViewConfig struct {
	State string       `yaml:"state" json:"state"`
	Enter *CommandSpec `yaml:"enter" json:"enter"`
	Exit  *CommandSpec `yaml:"exit" json:"exit"`
}

// ConfigFile is the structure of views.yaml.
type ConfigFile struct {
	Views []ViewConfig `yaml:"views" json:"views"`
}

// LoadViews reads a view configuration file (YAML or JSON) and returns
// a map of state names to view configs. A missing file means no views
// are configured.
func LoadViews(path string) (map[string]ViewConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ViewConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read views config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse views config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse views config: %w", err)
		}
	}

	views := make(map[string]ViewConfig)
	for _, v := range cfg.Views {
		if v.State == "" {
			continue
		}
		views[v.State] = v
	}
	return views, nil
}
