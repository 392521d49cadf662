// Package config handles application configuration using Viper.
// Viper supports YAML files, environment variables, and defaults, merged in priority order.
// A .env file, when present, is loaded into the process environment first (godotenv),
// which mirrors how the hosted deployment injects API_KEY.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration struct. Nested structs organize related settings.
// `mapstructure` tags tell Viper how to map YAML/env keys to struct fields.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Export    ExportConfig    `mapstructure:"export"`
	Session   SessionConfig   `mapstructure:"session"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	UI        UIConfig        `mapstructure:"ui"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RemoteConfig selects and configures the external image API.
type RemoteConfig struct {
	// Adapter is "background_removal" (remove.bg) or "generative_replace".
	Adapter string `mapstructure:"adapter"`
	// APIKey is the single operator credential. Read from API_KEY by default.
	APIKey        string           `mapstructure:"api_key"`
	Timeout       time.Duration    `mapstructure:"timeout"`
	RatePerMinute int              `mapstructure:"rate_per_minute"`
	RemoveBG      RemoveBGConfig   `mapstructure:"removebg"`
	Generative    GenerativeConfig `mapstructure:"generative"`
}

type RemoveBGConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Size     string `mapstructure:"size"`
}

type GenerativeConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Size    string `mapstructure:"size"`
}

type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

type ExportConfig struct {
	Prefix string `mapstructure:"prefix"`
	Dir    string `mapstructure:"dir"`
}

type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type StorageConfig struct {
	// DatabasePath is the SQLite call ledger. Empty disables the ledger.
	DatabasePath string `mapstructure:"database_path"`
}

type AuthConfig struct {
	AdminKeys []string `mapstructure:"admin_keys"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type UIConfig struct {
	// Locale picks the message catalog: "en" or "pt-BR".
	Locale string `mapstructure:"locale"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from a YAML file and environment variables.
// Precedence, highest first: environment, config file, defaults.
func Load(configPath string) (*Config, error) {
	// .env is optional; a missing file is the normal production case.
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	// Set defaults: these apply when neither file nor env provides a value
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("remote.adapter", "background_removal")
	v.SetDefault("remote.api_key", "")
	v.SetDefault("remote.timeout", "60s")
	v.SetDefault("remote.rate_per_minute", 30)
	// Empty endpoint and model select the adapters' own defaults; the keys are
	// still registered so AutomaticEnv can override them.
	v.SetDefault("remote.removebg.endpoint", "")
	v.SetDefault("remote.removebg.size", "auto")
	v.SetDefault("remote.generative.base_url", "")
	v.SetDefault("remote.generative.model", "")
	v.SetDefault("remote.generative.size", "auto")
	v.SetDefault("upload.max_bytes", 12<<20)
	v.SetDefault("export.prefix", "no-background")
	v.SetDefault("export.dir", "./exports")
	v.SetDefault("session.ttl", "30m")
	v.SetDefault("session.sweep_interval", "1m")
	v.SetDefault("storage.database_path", "./storage/removebg.db")
	v.SetDefault("auth.admin_keys", []string{})
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("rate_limit.requests_per_second", 2)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("ui.locale", "en")
	v.SetDefault("log.level", "info")

	// Read from YAML config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Read config file (ignore "not found", defaults + env are enough)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Environment variables override everything.
	// REMOVEBG_ prefix + nested keys: REMOVEBG_SERVER_PORT=9090 → server.port=9090
	v.SetEnvPrefix("REMOVEBG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The credential keeps its canonical, unprefixed name. The prefixed form
	// wins when both are set.
	if err := v.BindEnv("remote.api_key", "REMOVEBG_REMOTE_API_KEY", "API_KEY"); err != nil {
		return nil, fmt.Errorf("binding API_KEY: %w", err)
	}

	// Unmarshal into our Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Remote.APIKey = strings.TrimSpace(cfg.Remote.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the service can't run with. A missing API key is
// deliberately not one of them: it surfaces as Unconfigured at request time.
func (c *Config) Validate() error {
	switch c.Remote.Adapter {
	case "background_removal", "generative_replace":
	default:
		return fmt.Errorf("invalid remote.adapter %q: must be background_removal or generative_replace", c.Remote.Adapter)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("invalid remote.timeout %s: must be positive", c.Remote.Timeout)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("invalid upload.max_bytes %d: must be positive", c.Upload.MaxBytes)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("invalid session.ttl %s: must be positive", c.Session.TTL)
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("invalid session.sweep_interval %s: must be positive", c.Session.SweepInterval)
	}
	return nil
}

// Address returns the listen address string like "0.0.0.0:8080".
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
