/*
Package config loads runtime settings for the ledger binary.

SOURCES (lowest to highest precedence):
  - built-in defaults (see SetDefaults)
  - optional YAML file passed with --config
  - environment variables prefixed LEDGER_, dots become underscores
    (LEDGER_DB_PATH, LEDGER_SERVER_PORT, LEDGER_SCHEDULER_INTERVAL)
  - command-line flags bound by cmd/server
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SchedulerConfig controls the background recurring runner. A zero Interval
// runs due templates once at startup only.
type SchedulerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type LedgerConfig struct {
	Currency string `mapstructure:"currency"`
}

type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	Server    ServerConfig    `mapstructure:"server"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
}

// New returns a viper instance with defaults and environment overrides set.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("db.path", "ledger.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("scheduler.interval", "0s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("ledger.currency", "USD")
}

// Load reads path (if non-empty) into v and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Ledger.Currency = strings.ToUpper(c.Ledger.Currency)
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.DB.Path == "" {
		return fmt.Errorf("config: db.path is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Scheduler.Interval < 0 {
		return fmt.Errorf("config: scheduler.interval must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}
	if len(c.Ledger.Currency) != 3 {
		return fmt.Errorf("config: ledger.currency must be an ISO 4217 code, got %q", c.Ledger.Currency)
	}
	return nil
}
