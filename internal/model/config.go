package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// LettaConfig holds settings for the agent backend.
type LettaConfig struct {
	// BaseURL is the Letta API root.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// APIKey authenticates against the Letta API. Leave blank to
	// resolve it from the system keyring instead.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	// AgentID identifies the agent that handles notifications.
	AgentID string `mapstructure:"agent_id" yaml:"agent_id"`

	// MaxSteps bounds agent execution per invocation.
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
}

// BlueskyConfig holds connection settings for the Bluesky PDS.
type BlueskyConfig struct {
	// Username is the bot account handle (e.g., gauge.bsky.social).
	Username string `mapstructure:"username" yaml:"username"`

	// Password is the app password. Leave blank to resolve it from
	// the system keyring instead.
	Password string `mapstructure:"password" yaml:"password"`

	// PDSURI is the personal data server root.
	PDSURI string `mapstructure:"pds_uri" yaml:"pds_uri"`

	// Autofollow controls whether new followers are followed back.
	Autofollow bool `mapstructure:"autofollow" yaml:"autofollow"`
}

// BotConfig holds queue and pipeline tuning.
type BotConfig struct {
	// DataDir is where the pending queue, outcome sinks, tracking
	// database, feed cursor, and post log live.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// PollPageSize bounds how many feed events one cycle ingests.
	PollPageSize int `mapstructure:"poll_page_size" yaml:"poll_page_size"`

	// RetryCeiling is the attempt count at which a transiently
	// failing notification escalates to the errored sink.
	RetryCeiling int `mapstructure:"retry_ceiling" yaml:"retry_ceiling"`

	// RetryBackoffSec is how long a transiently failed item is held
	// back before it becomes eligible for dequeue again.
	RetryBackoffSec int `mapstructure:"retry_backoff_sec" yaml:"retry_backoff_sec"`

	// ResponderTimeoutSec is the deadline for one responder invocation.
	ResponderTimeoutSec int `mapstructure:"responder_timeout_sec" yaml:"responder_timeout_sec"`

	// MaxThreadPosts limits replies within a single thread; zero
	// means unlimited.
	MaxThreadPosts int `mapstructure:"max_thread_posts" yaml:"max_thread_posts"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Letta   LettaConfig   `mapstructure:"letta" yaml:"letta"`
	Bluesky BlueskyConfig `mapstructure:"bluesky" yaml:"bluesky"`
	Bot     BotConfig     `mapstructure:"bot" yaml:"bot"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/bskyagent/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "bskyagent", "config.yaml")
}

// DefaultDataDir returns the default data directory,
// ~/.local/share/bskyagent.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "data")
	}
	return filepath.Join(home, ".local", "share", "bskyagent")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Letta: LettaConfig{
			BaseURL:  "https://api.letta.com",
			MaxSteps: 50,
		},
		Bluesky: BlueskyConfig{
			PDSURI: "https://bsky.social",
		},
		Bot: BotConfig{
			DataDir:             DefaultDataDir(),
			PollPageSize:        50,
			RetryCeiling:        3,
			RetryBackoffSec:     30,
			ResponderTimeoutSec: 600,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("letta.base_url", "https://api.letta.com")
	v.SetDefault("letta.max_steps", 50)
	v.SetDefault("bluesky.pds_uri", "https://bsky.social")
	v.SetDefault("bot.data_dir", DefaultDataDir())
	v.SetDefault("bot.poll_page_size", 50)
	v.SetDefault("bot.retry_ceiling", 3)
	v.SetDefault("bot.retry_backoff_sec", 30)
	v.SetDefault("bot.responder_timeout_sec", 600)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("letta", cfg.Letta)
	v.Set("bluesky", cfg.Bluesky)
	v.Set("bot", cfg.Bot)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
