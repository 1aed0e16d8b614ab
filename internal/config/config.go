package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingEnvironmentVariables = errors.New("missing required environment variables")
	ErrInvalidConfig               = errors.New("invalid config")
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env              string   `mapstructure:"env"`      // current application environment (local, dev, production etc)
	TelegramAPIToken string   `mapstructure:"-"`        // Telegram API token loaded from environment
	Store            Store    `mapstructure:"store"`    // real-time store backend
	DB               DB       `mapstructure:"database"` // database configuration section
	Monitor          Monitor  `mapstructure:"monitor"`  // feeding monitor tuning
	Telegram         Telegram `mapstructure:"telegram"` // notification chat
	Clock            Clock    `mapstructure:"clock"`    // wall clock publisher
}

// Store selects where the schedule nodes live.
type Store struct {
	Backend    string `mapstructure:"backend"`     // memory, postgres or sqlite
	SQLitePath string `mapstructure:"sqlite_path"` // database file for the sqlite backend
}

// DB contains database-related configuration parameters.
type DB struct {
	URL             string        `mapstructure:"-"`                 // database connection string loaded from environment
	MaxConnections  int           `mapstructure:"max_connections"`   // maximum number of open connections in the pool
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"` // maximum lifetime of a single connection
}

// Monitor tunes the feeding monitor loop.
type Monitor struct {
	Timezone         string          `mapstructure:"timezone"`          // zone the schedule is expressed in
	MaxSleep         time.Duration   `mapstructure:"max_sleep"`         // upper bound between two checks and between two schedule re-reads
	IdleRetry        time.Duration   `mapstructure:"idle_retry"`        // delay between loads while no schedule exists
	StoreTimeout     time.Duration   `mapstructure:"store_timeout"`     // per store call and dispatch
	VibrationPattern []time.Duration `mapstructure:"vibration_pattern"` // played on every feeding
}

// Telegram configures where feeding notifications go.
type Telegram struct {
	ChatID    int64         `mapstructure:"chat_id"`    // chat receiving notifications and allowed to send commands
	RateEvery time.Duration `mapstructure:"rate_every"` // minimum spacing between two notifications
	Commands  bool          `mapstructure:"commands"`   // serve /set, /interval, /schedule and /amount
}

// Clock configures the published device clock.
type Clock struct {
	Enabled  bool   `mapstructure:"enabled"`
	Timezone string `mapstructure:"timezone"`
	Path     string `mapstructure:"path"`
}

// DSN returns the database connection string if it is configured.
func (db DB) DSN() (string, error) {
	if db.URL == "" {
		return "", ErrMissingEnvironmentVariables
	}
	return db.URL, nil
}

// Load reads configuration from ./config and environment variables.
func Load() (*Config, error) {
	return LoadFrom("./config")
}

// LoadFrom reads configuration from dir and environment variables.
func LoadFrom(dir string) (*Config, error) {
	// Initialize Viper instance and base config options.
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v)

	// Configure environment variable handling and key mapping.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // map nested keys to ENV style names
	v.AutomaticEnv()

	// Bind explicit environment variables to configuration keys.
	_ = v.BindEnv("telegram_api_token", "TELEGRAM_API_TOKEN")
	_ = v.BindEnv("database_url", "DATABASE_URL")
	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("store.backend", "FEEDER_STORE")
	_ = v.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")

	// Try to read configuration file if present.
	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	// Unmarshal configuration into strongly typed struct.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// Load sensitive values from environment variables.
	cfg.TelegramAPIToken = v.GetString("telegram_api_token")
	cfg.DB.URL = v.GetString("database_url")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.sqlite_path", "data/feeder.db")

	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_conn_lifetime", "30s")

	v.SetDefault("monitor.timezone", "Local")
	v.SetDefault("monitor.max_sleep", "30s")
	v.SetDefault("monitor.idle_retry", "5s")
	v.SetDefault("monitor.store_timeout", "10s")
	v.SetDefault("monitor.vibration_pattern", []string{"1s", "1s", "1s"})

	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("telegram.rate_every", "1s")
	v.SetDefault("telegram.commands", true)

	v.SetDefault("clock.enabled", true)
	v.SetDefault("clock.timezone", "Asia/Manila")
	v.SetDefault("clock.path", "HISTORY/philippineTime")
}

// Validate checks the combination of settings and secrets.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.DB.URL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres store", ErrMissingEnvironmentVariables)
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("%w: store.sqlite_path is empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	if c.TelegramAPIToken != "" && c.Telegram.ChatID == 0 && !c.Telegram.Commands {
		return fmt.Errorf("%w: telegram.chat_id is required to send notifications", ErrInvalidConfig)
	}
	if c.Monitor.MaxSleep < 0 || c.Monitor.IdleRetry < 0 || c.Monitor.StoreTimeout < 0 {
		return fmt.Errorf("%w: monitor durations must not be negative", ErrInvalidConfig)
	}

	return nil
}
