// Package config provides configuration types and loading for thoughthub.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration struct.
// Top-level groups: Paths, Storage, Hub, Identity, Kafka, Slack.
type Config struct {
	Paths    PathsConfig    `json:"paths"`
	Storage  StorageConfig  `json:"storage"`
	Hub      HubConfig      `json:"hub"`
	Identity IdentityConfig `json:"identity"`
	Kafka    KafkaConfig    `json:"kafka"`
	Slack    SlackConfig    `json:"slack"`
}

// ---------------------------------------------------------------------------
// Paths – filesystem locations
// ---------------------------------------------------------------------------

// PathsConfig groups all filesystem path settings.
type PathsConfig struct {
	DataDir string `json:"dataDir" envconfig:"DATA_DIR"`
}

// ---------------------------------------------------------------------------
// Storage – persistence backend
// ---------------------------------------------------------------------------

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// StorageConfig selects and configures the entity store.
type StorageConfig struct {
	Backend    string `json:"backend" envconfig:"BACKEND"`         // "file" or "sqlite"
	SQLitePath string `json:"sqlitePath" envconfig:"SQLITE_PATH"` // defaults to <dataDir>/hub.db
	Driver     string `json:"driver,omitempty" envconfig:"DRIVER"`
}

// ---------------------------------------------------------------------------
// Hub – coordination behaviour
// ---------------------------------------------------------------------------

// HubConfig tunes long-poll and presence behaviour.
type HubConfig struct {
	WaitDefaultSeconds   int    `json:"waitDefaultSeconds" envconfig:"WAIT_DEFAULT_SECONDS"`
	WaitMaxSeconds       int    `json:"waitMaxSeconds" envconfig:"WAIT_MAX_SECONDS"`
	CoalesceMillis       int    `json:"coalesceMillis" envconfig:"COALESCE_MILLIS"`
	PresenceStaleMinutes int    `json:"presenceStaleMinutes" envconfig:"PRESENCE_STALE_MINUTES"`
	PresenceSweep        string `json:"presenceSweep" envconfig:"PRESENCE_SWEEP"` // cron schedule
}

// WaitDefault returns the default long-poll timeout.
func (h HubConfig) WaitDefault() time.Duration {
	return time.Duration(h.WaitDefaultSeconds) * time.Second
}

// WaitMax returns the server-side long-poll ceiling.
func (h HubConfig) WaitMax() time.Duration {
	return time.Duration(h.WaitMaxSeconds) * time.Second
}

// Coalesce returns the burst coalescing window.
func (h HubConfig) Coalesce() time.Duration {
	return time.Duration(h.CoalesceMillis) * time.Millisecond
}

// PresenceStale returns the idle duration after which a member is marked offline.
func (h HubConfig) PresenceStale() time.Duration {
	return time.Duration(h.PresenceStaleMinutes) * time.Minute
}

// ---------------------------------------------------------------------------
// Identity – fixed agent identity for long-lived clients
// ---------------------------------------------------------------------------

// IdentityConfig carries the environment-driven identity of a long-lived
// client process. AgentID requires AgentName; AgentName alone means
// look-up-or-create by name.
type IdentityConfig struct {
	AgentID   string `json:"agentId,omitempty" envconfig:"AGENT_ID"`
	AgentName string `json:"agentName,omitempty" envconfig:"AGENT_NAME"`
	Profile   string `json:"profile,omitempty" envconfig:"AGENT_PROFILE"`
}

// ---------------------------------------------------------------------------
// Relays – external event sinks
// ---------------------------------------------------------------------------

// KafkaConfig configures the Kafka event mirror.
type KafkaConfig struct {
	Enabled     bool   `json:"enabled" envconfig:"ENABLED"`
	Brokers     string `json:"brokers" envconfig:"BROKERS"` // comma-separated
	TopicPrefix string `json:"topicPrefix" envconfig:"TOPIC_PREFIX"`
}

// SlackConfig configures the Slack notifier.
type SlackConfig struct {
	Enabled    bool     `json:"enabled" envconfig:"ENABLED"`
	BotToken   string   `json:"botToken" envconfig:"BOT_TOKEN"`
	ChannelID  string   `json:"channelId" envconfig:"CHANNEL_ID"`
	APIURL     string   `json:"apiUrl,omitempty" envconfig:"API_URL"`
	EventTypes []string `json:"eventTypes,omitempty" envconfig:"EVENT_TYPES"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Paths: PathsConfig{
			DataDir: filepath.Join(home, ConfigDir, "data"),
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Driver:  "sqlite",
		},
		Hub: HubConfig{
			WaitDefaultSeconds:   30,
			WaitMaxSeconds:       55,
			CoalesceMillis:       100,
			PresenceStaleMinutes: 10,
			PresenceSweep:        "@every 1m",
		},
		Kafka: KafkaConfig{
			Brokers:     "localhost:9092",
			TopicPrefix: "hub",
		},
		Slack: SlackConfig{
			EventTypes: []string{"proposal_merged", "consensus_marked", "problem_claimed"},
		},
	}
}
