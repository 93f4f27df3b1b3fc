// Package config loads rentdesk settings with Viper.
//
// Precedence: explicit overrides (flags) > RENTDESK_* environment > config
// file > defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory = "memory"
	BackendREST   = "rest"
)

// Config holds every setting of the rentdesk binary.
type Config struct {
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	ListenAddr  string `mapstructure:"listen_addr" yaml:"listen_addr"`
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`

	Backend    string        `mapstructure:"backend" yaml:"backend"`
	APIBaseURL string        `mapstructure:"api_base_url" yaml:"api_base_url"`
	APIToken   string        `mapstructure:"api_token" yaml:"api_token"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`

	RedisAddr      string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword  string        `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB        int           `mapstructure:"redis_db" yaml:"redis_db"`
	OptionCacheTTL time.Duration `mapstructure:"option_cache_ttl" yaml:"option_cache_ttl"`

	SessionIdleTTL time.Duration `mapstructure:"session_idle_ttl" yaml:"session_idle_ttl"`

	// Location is the IANA zone used to compute "today" for date rules.
	Location string `mapstructure:"location" yaml:"location"`
}

var defaults = map[string]any{
	"log_level":        "info",
	"listen_addr":      ":8080",
	"metrics_addr":     "",
	"backend":          BackendMemory,
	"api_base_url":     "",
	"api_token":        "",
	"api_timeout":      10 * time.Second,
	"redis_addr":       "",
	"redis_password":   "",
	"redis_db":         0,
	"option_cache_ttl": 10 * time.Minute,
	"session_idle_ttl": 30 * time.Minute,
	"location":         "Local",
}

// Load reads configuration from path (optional) and the environment.
// overrides are applied last, typically from changed CLI flags.
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("RENTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key := range defaults {
		if err := v.BindEnv(key, "RENTDESK_"+strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-key constraints.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendREST:
		if c.APIBaseURL == "" {
			return fmt.Errorf("backend %q requires api_base_url", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendMemory, BackendREST)
	}
	if _, err := c.Zone(); err != nil {
		return err
	}
	return nil
}

// Zone resolves Location.
func (c *Config) Zone() (*time.Location, error) {
	if c.Location == "" || c.Location == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid location %q: %w", c.Location, err)
	}
	return loc, nil
}

// YAML renders the effective configuration with secrets masked.
func (c *Config) YAML() ([]byte, error) {
	masked := *c
	if masked.APIToken != "" {
		masked.APIToken = "***"
	}
	if masked.RedisPassword != "" {
		masked.RedisPassword = "***"
	}
	data, err := yaml.Marshal(masked)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}
