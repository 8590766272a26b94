package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses
// DefaultConfigPath. A missing file is not an error; defaults and environment
// variables still apply. PORT and VOXSYNC_STT_DEBUG mirror the variables the
// original deployment used.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("http.port", cfg.HTTP.Port)
	v.SetDefault("hub.queue_depth", cfg.Hub.QueueDepth)
	v.SetDefault("supervisor.binary", cfg.Supervisor.Binary)
	v.SetDefault("supervisor.args", cfg.Supervisor.Args)
	v.SetDefault("supervisor.work_dir", cfg.Supervisor.WorkDir)
	v.SetDefault("supervisor.log_lines", cfg.Supervisor.LogLines)
	v.SetDefault("stt.debug", cfg.STT.Debug)

	_ = v.BindEnv("http.port", "VOXSYNC_PORT", "PORT")
	_ = v.BindEnv("stt.debug", "VOXSYNC_STT_DEBUG")
	_ = v.BindEnv("supervisor.binary", "VOXSYNC_SUPERVISOR_BINARY")
	_ = v.BindEnv("supervisor.work_dir", "VOXSYNC_SUPERVISOR_WORKDIR")

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !isNotExist(err) {
				return Config{}, err
			}
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	var loaded Config
	if err := v.Unmarshal(&loaded); err != nil {
		return Config{}, err
	}
	if loaded.HTTP.Port <= 0 || loaded.HTTP.Port > 65535 {
		return Config{}, fmt.Errorf("invalid http.port %d", loaded.HTTP.Port)
	}
	if loaded.Hub.QueueDepth <= 0 {
		loaded.Hub.QueueDepth = cfg.Hub.QueueDepth
	}
	if loaded.Supervisor.LogLines <= 0 {
		loaded.Supervisor.LogLines = cfg.Supervisor.LogLines
	}
	return loaded, nil
}

// WriteDefault writes the default config to the target path. If path is
// empty, DefaultConfigPath is used. Returns the path written.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// isNotExist reports whether the error means the config file is absent.
// viper returns a path error rather than ConfigFileNotFoundError when the
// file is named explicitly via SetConfigFile.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
