package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// State backends.
const (
	StateBackendMemory = "memory"
	StateBackendSQLite = "sqlite"
)

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	// Token is the bot token. When empty it is read from the OS keyring.
	Token string `mapstructure:"token" yaml:"token"`

	// BotUsername is the bot's handle without "@". Resolved via getMe
	// at startup when empty.
	BotUsername string `mapstructure:"bot_username" yaml:"bot_username"`

	// APIRoot is the Bot API base URL.
	APIRoot string `mapstructure:"api_root" yaml:"api_root"`

	// PublicURL is the externally reachable base URL of this service,
	// used to build the webhook address.
	PublicURL string `mapstructure:"public_url" yaml:"public_url"`

	// WebhookSecret is sent to Telegram on set-webhook and checked on
	// every inbound delivery when non-empty.
	WebhookSecret string `mapstructure:"webhook_secret" yaml:"webhook_secret"`

	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout" yaml:"handler_timeout"`
}

// DatabaseConfig holds the SQLite location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// StateConfig controls the conversation state store.
type StateConfig struct {
	Backend       string        `mapstructure:"backend" yaml:"backend"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// AttachmentsConfig controls where downloaded files are stored and served.
type AttachmentsConfig struct {
	Dir       string `mapstructure:"dir" yaml:"dir"`
	PublicURL string `mapstructure:"public_url" yaml:"public_url"`
	MaxBytes  int64  `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// TasksConfig holds listing limits and the attachment budget.
type TasksConfig struct {
	ListLimit      int `mapstructure:"list_limit" yaml:"list_limit"`
	GroupListLimit int `mapstructure:"group_list_limit" yaml:"group_list_limit"`

	// AttachTimeout bounds downloading an attachment. It must leave room
	// inside server.handler_timeout to store the record.
	AttachTimeout time.Duration `mapstructure:"attach_timeout" yaml:"attach_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Telegram    TelegramConfig    `mapstructure:"telegram" yaml:"telegram"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Database    DatabaseConfig    `mapstructure:"database" yaml:"database"`
	State       StateConfig       `mapstructure:"state" yaml:"state"`
	Attachments AttachmentsConfig `mapstructure:"attachments" yaml:"attachments"`
	Tasks       TasksConfig       `mapstructure:"tasks" yaml:"tasks"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskbot/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskbot", "config.yaml")
}

// defaultDataDir returns the directory holding the database and attachments.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "taskbot")
}

// setDefaults registers every default on v so missing keys resolve to
// sensible values.
func setDefaults(v *viper.Viper) {
	data := defaultDataDir()

	v.SetDefault("telegram.api_root", "https://api.telegram.org")
	v.SetDefault("telegram.request_timeout", 10*time.Second)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.handler_timeout", 25*time.Second)
	v.SetDefault("database.path", filepath.Join(data, "taskbot.db"))
	v.SetDefault("state.backend", StateBackendSQLite)
	v.SetDefault("state.ttl", 10*time.Minute)
	v.SetDefault("state.sweep_interval", time.Minute)
	v.SetDefault("attachments.dir", filepath.Join(data, "attachments"))
	v.SetDefault("attachments.public_url", "")
	v.SetDefault("attachments.max_bytes", int64(20*1024*1024))
	v.SetDefault("tasks.list_limit", 20)
	v.SetDefault("tasks.group_list_limit", 10)
	v.SetDefault("tasks.attach_timeout", 15*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	// Keys without a default must still be bound for env overrides to
	// reach Unmarshal.
	for _, key := range []string{
		"telegram.token",
		"telegram.bot_username",
		"telegram.public_url",
		"telegram.webhook_secret",
	} {
		v.SetDefault(key, "")
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TASKBOT_ override file values
// (e.g. TASKBOT_TELEGRAM_TOKEN). A missing file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TASKBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Telegram.BotUsername = strings.TrimPrefix(strings.TrimSpace(cfg.Telegram.BotUsername), "@")
	cfg.Telegram.PublicURL = strings.TrimRight(cfg.Telegram.PublicURL, "/")
	if cfg.Attachments.PublicURL == "" && cfg.Telegram.PublicURL != "" {
		cfg.Attachments.PublicURL = cfg.Telegram.PublicURL + "/attachments"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values that have no safe fallback.
func (c *AppConfig) Validate() error {
	switch c.State.Backend {
	case StateBackendMemory, StateBackendSQLite:
	default:
		return fmt.Errorf("state.backend must be %q or %q, got %q",
			StateBackendMemory, StateBackendSQLite, c.State.Backend)
	}
	if c.State.TTL <= 0 {
		return fmt.Errorf("state.ttl must be positive")
	}
	if c.Tasks.ListLimit <= 0 || c.Tasks.GroupListLimit <= 0 {
		return fmt.Errorf("tasks list limits must be positive")
	}
	if c.Tasks.AttachTimeout <= 0 || c.Tasks.AttachTimeout >= c.Server.HandlerTimeout {
		return fmt.Errorf("tasks.attach_timeout (%s) must be positive and below server.handler_timeout (%s)",
			c.Tasks.AttachTimeout, c.Server.HandlerTimeout)
	}
	return nil
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

	// The token lives in the keyring, never in the file.
	tg := cfg.Telegram
	tg.Token = ""

	v.Set("telegram", tg)
	v.Set("server", cfg.Server)
	v.Set("database", cfg.Database)
	v.Set("state", cfg.State)
	v.Set("attachments", cfg.Attachments)
	v.Set("tasks", cfg.Tasks)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
