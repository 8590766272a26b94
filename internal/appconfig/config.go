package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int              `mapstructure:"config_version" yaml:"config_version"`
	HTTP          HTTPConfig       `mapstructure:"http" yaml:"http"`
	Hub           HubConfig        `mapstructure:"hub" yaml:"hub"`
	Supervisor    SupervisorConfig `mapstructure:"supervisor" yaml:"supervisor"`
	STT           STTConfig        `mapstructure:"stt" yaml:"stt"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// HTTPConfig configures the relay's HTTP listener.
type HTTPConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// Addr returns the listen address for the configured port.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// HubConfig controls relay fan-out behavior.
type HubConfig struct {
	// QueueDepth is the per-connection outbound queue. A recipient whose
	// queue is full loses the message; there is no retry.
	QueueDepth int `mapstructure:"queue_depth" yaml:"queue_depth"`
}

// SupervisorConfig controls how the desktop supervisor spawns the relay.
type SupervisorConfig struct {
	Binary   string   `mapstructure:"binary" yaml:"binary"`
	Args     []string `mapstructure:"args" yaml:"args"`
	WorkDir  string   `mapstructure:"work_dir" yaml:"work_dir"`
	LogLines int      `mapstructure:"log_lines" yaml:"log_lines"`
}

// STTConfig configures the speech-to-text adapter collaborator.
type STTConfig struct {
	// Debug forwards verbose adapter logging into the relay child process.
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".voxsync", "config.yaml"), nil
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		HTTP:          HTTPConfig{Port: 3001},
		Hub:           HubConfig{QueueDepth: 64},
		Supervisor: SupervisorConfig{
			Binary:   "voxsync",
			Args:     []string{"serve"},
			LogLines: 500,
		},
	}
}
