package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/subosito/gotenv"
)

// envFileCandidates lists env files in load order. THOUGHTHUB_ENV_FILE comes
// first so its values win over the per-user files.
func envFileCandidates() []string {
	var out []string
	if explicit := strings.TrimSpace(os.Getenv("THOUGHTHUB_ENV_FILE")); explicit != "" {
		out = append(out, explicit)
	}
	if home, err := os.UserHomeDir(); err == nil {
		out = append(out, filepath.Join(home, ".config", "thoughthub", "env"))
	}
	if home, err := resolveHomeDir(); err == nil {
		out = append(out,
			filepath.Join(home, ConfigDir, "env"),
			filepath.Join(home, ConfigDir, ".env"),
		)
	}
	return out
}

// LoadEnvFileCandidates loads KEY=value files into the process environment.
// Variables already set are never overridden.
func LoadEnvFileCandidates() {
	seen := map[string]bool{}
	for _, p := range envFileCandidates() {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		if err := gotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Skipping env file", "path", p, "error", err)
		}
	}
}
