package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".thoughthub"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("THOUGHTHUB_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := resolveHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("THOUGHTHUB_HOME")); h != "" {
		if strings.HasPrefix(h, "~") {
			base, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(base, h[1:]), nil
		}
		return h, nil
	}
	return os.UserHomeDir()
}

// Load loads the configuration from file and environment variables.
// Priority: environment > file > defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Load process env vars from ~/.config/thoughthub/env (and fallbacks) first.
	LoadEnvFileCandidates()

	path, err := ConfigPath()
	if err != nil {
		return cfg, nil // Use defaults if we can't find config path
	}
	if home, err := resolveHomeDir(); err == nil {
		cfg.Paths.DataDir = filepath.Join(home, ConfigDir, "data")
	}

	data, err := os.ReadFile(path)
	if err == nil {
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		resolved, _ := json.Marshal(substituteEnvValues(raw))
		if err := json.Unmarshal(resolved, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Override with environment variables for each group
	envconfig.Process("THOUGHTHUB_PATHS", &cfg.Paths)
	envconfig.Process("THOUGHTHUB_STORAGE", &cfg.Storage)
	envconfig.Process("THOUGHTHUB_HUB", &cfg.Hub)
	envconfig.Process("THOUGHTHUB", &cfg.Identity)
	envconfig.Process("THOUGHTHUB_KAFKA", &cfg.Kafka)
	envconfig.Process("THOUGHTHUB_SLACK", &cfg.Slack)

	if strings.HasPrefix(cfg.Paths.DataDir, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Paths.DataDir = filepath.Join(home, cfg.Paths.DataDir[1:])
		}
	}
	normalize(cfg)
	return cfg, nil
}

func normalize(cfg *Config) {
	def := DefaultConfig()
	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Backend)) {
	case BackendSQLite:
		cfg.Storage.Backend = BackendSQLite
	default:
		cfg.Storage.Backend = BackendFile
	}
	if strings.TrimSpace(cfg.Storage.SQLitePath) == "" {
		cfg.Storage.SQLitePath = filepath.Join(cfg.Paths.DataDir, "hub.db")
	}
	if strings.TrimSpace(cfg.Storage.Driver) == "" {
		cfg.Storage.Driver = def.Storage.Driver
	}
	if cfg.Hub.WaitMaxSeconds <= 0 || cfg.Hub.WaitMaxSeconds > def.Hub.WaitMaxSeconds {
		cfg.Hub.WaitMaxSeconds = def.Hub.WaitMaxSeconds
	}
	if cfg.Hub.WaitDefaultSeconds <= 0 || cfg.Hub.WaitDefaultSeconds > cfg.Hub.WaitMaxSeconds {
		cfg.Hub.WaitDefaultSeconds = min(def.Hub.WaitDefaultSeconds, cfg.Hub.WaitMaxSeconds)
	}
	if cfg.Hub.CoalesceMillis <= 0 {
		cfg.Hub.CoalesceMillis = def.Hub.CoalesceMillis
	}
	if cfg.Hub.PresenceStaleMinutes <= 0 {
		cfg.Hub.PresenceStaleMinutes = def.Hub.PresenceStaleMinutes
	}
	if strings.TrimSpace(cfg.Hub.PresenceSweep) == "" {
		cfg.Hub.PresenceSweep = def.Hub.PresenceSweep
	}
	if strings.TrimSpace(cfg.Kafka.TopicPrefix) == "" {
		cfg.Kafka.TopicPrefix = def.Kafka.TopicPrefix
	}
}

// Save writes the configuration to the config file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureDir ensures a directory exists with proper permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// substituteEnvValues replaces ${VAR} tokens in string values with the
// process environment. Unknown variables are left untouched.
func substituteEnvValues(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = substituteEnvValues(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = substituteEnvValues(item)
		}
		return t
	case string:
		return envPattern.ReplaceAllStringFunc(t, func(match string) string {
			name := envPattern.FindStringSubmatch(match)[1]
			if value, ok := os.LookupEnv(name); ok {
				return value
			}
			return match
		})
	default:
		return v
	}
}
