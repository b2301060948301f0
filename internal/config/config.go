package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeffersonwarrior/fetchkit/fetch"
)

// ErrUnknownProfile is returned when a named profile is not configured.
var ErrUnknownProfile = errors.New("unknown profile")

// Config represents the CLI configuration file
type Config struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
	Journal        JournalConfig      `yaml:"journal"`
	Log            LogConfig          `yaml:"log"`

	// Warnings describes problems Load recovered from by falling back to
	// defaults. Callers should surface them.
	Warnings []string `yaml:"-"`
}

// Profile is a named set of request defaults
type Profile struct {
	BaseURL     string            `yaml:"base_url"`
	Headers     map[string]string `yaml:"headers"`
	Params      map[string]string `yaml:"params"`
	Timeout     time.Duration     `yaml:"timeout"`     // e.g. "30s"
	Token       string            `yaml:"token"`       // sent as a bearer token
	Credentials string            `yaml:"credentials"` // omit, same-origin, include
}

// JournalConfig holds request journal settings
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"` // logrus level name
}

// DefaultPath returns the config file location used when none is given:
// $FETCHKIT_CONFIG, else <user config dir>/fetchkit/config.yaml.
func DefaultPath() string {
	if v := os.Getenv("FETCHKIT_CONFIG"); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "fetchkit.yaml"
	}
	return filepath.Join(dir, "fetchkit", "config.yaml")
}

// Load reads config from YAML file with graceful fallback
// Returns default config if file doesn't exist or is malformed
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		cfg := DefaultConfig()
		if !errors.Is(err, os.ErrNotExist) {
			cfg.Warnings = append(cfg.Warnings, fmt.Sprintf("ignoring unreadable config %s: %v", path, err))
		}
		return cfg, nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		fallback := DefaultConfig()
		fallback.Warnings = append(fallback.Warnings, fmt.Sprintf("ignoring malformed config %s: %v", path, err))
		return fallback, nil
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	return &cfg, nil
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DefaultProfile: os.Getenv("FETCHKIT_PROFILE"),
		Profiles:       make(map[string]Profile),
		Journal: JournalConfig{
			Enabled: getEnvBool("FETCHKIT_JOURNAL", false),
			Path:    getEnv("FETCHKIT_JOURNAL_PATH", "fetchkit.db"),
		},
		Log: LogConfig{
			Level: getEnv("FETCHKIT_LOG_LEVEL", "warning"),
		},
	}
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FETCHKIT_PROFILE"); v != "" {
		c.DefaultProfile = v
	}
	if v := os.Getenv("FETCHKIT_JOURNAL"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Journal.Enabled = enabled
		}
	}
	if v := os.Getenv("FETCHKIT_JOURNAL_PATH"); v != "" {
		c.Journal.Path = v
	}
	if v := os.Getenv("FETCHKIT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Profiles == nil {
		c.Profiles = make(map[string]Profile)
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "fetchkit.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "warning"
	}
}

// Profile resolves a profile by name. An empty name selects the default
// profile, and an empty profile when none is configured. FETCHKIT_BASE_URL,
// FETCHKIT_TOKEN and FETCHKIT_TIMEOUT override the resolved values.
func (c *Config) Profile(name string) (Profile, error) {
	var p Profile
	if name == "" {
		name = c.DefaultProfile
	}
	if name != "" {
		found, ok := c.Profiles[name]
		if !ok {
			return Profile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
		}
		p = found
	}

	if v := os.Getenv("FETCHKIT_BASE_URL"); v != "" {
		p.BaseURL = v
	}
	if v := os.Getenv("FETCHKIT_TOKEN"); v != "" {
		p.Token = v
	}
	if v := os.Getenv("FETCHKIT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Profile{}, fmt.Errorf("invalid FETCHKIT_TIMEOUT: %w", err)
		}
		p.Timeout = d
	}

	if p.BaseURL != "" {
		if _, err := url.Parse(p.BaseURL); err != nil {
			return Profile{}, fmt.Errorf("invalid base_url for profile %q: %w", name, err)
		}
	}

	return p, nil
}

// RequestOptions converts the profile into client defaults. The token is not
// included; callers install it as an interceptor.
func (p Profile) RequestOptions() fetch.RequestOptions {
	opts := fetch.RequestOptions{
		BaseURL:     p.BaseURL,
		Timeout:     p.Timeout,
		Credentials: fetch.ParseCredentialsMode(p.Credentials),
	}
	if len(p.Headers) > 0 {
		opts.Headers = make(http.Header, len(p.Headers))
		for k, v := range p.Headers {
			opts.Headers.Set(k, v)
		}
	}
	if len(p.Params) > 0 {
		values := make(url.Values, len(p.Params))
		for k, v := range p.Params {
			values.Set(k, v)
		}
		opts.Params = fetch.ParamsFromValues(values)
	}
	return opts
}

// getEnv gets environment variable or returns default
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvBool gets environment variable as bool or returns default
func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
