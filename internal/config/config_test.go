package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeffersonwarrior/fetchkit/fetch"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "fetchkit.db", cfg.Journal.Path)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, "warning", cfg.Log.Level)
	assert.NotNil(t, cfg.Profiles)
	assert.Empty(t, cfg.DefaultProfile)
}

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadValidYAML(t *testing.T) {
	path := writeConfig(t, `
default_profile: api
profiles:
  api:
    base_url: https://api.example.com/v1/
    timeout: 15s
    token: sk-test
    credentials: include
    headers:
      accept: application/json
    params:
      version: "2"
  local:
    base_url: http://localhost:8080
journal:
  enabled: true
  path: /tmp/journal.db
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.DefaultProfile)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.Len(t, cfg.Profiles, 2)

	api := cfg.Profiles["api"]
	assert.Equal(t, 15*time.Second, api.Timeout)
	assert.Equal(t, "sk-test", api.Token)
	assert.Equal(t, "application/json", api.Headers["accept"])
}

func TestLoadBadlyFormattedYAML(t *testing.T) {
	path := writeConfig(t, `
profiles:
	api:
  base_url: [unterminated
`)

	cfg, err := Load(path)
	require.NoError(t, err, "malformed files fall back to defaults")
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "ignoring malformed config "+path)

	cfg.Warnings = nil
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFillsMissingValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, "default_profile: x\n"))
	require.NoError(t, err)

	assert.Equal(t, "fetchkit.db", cfg.Journal.Path)
	assert.Equal(t, "warning", cfg.Log.Level)
	assert.NotNil(t, cfg.Profiles)
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
default_profile: api
journal:
  path: /tmp/journal.db
log:
  level: info
`)

	t.Setenv("FETCHKIT_PROFILE", "other")
	t.Setenv("FETCHKIT_JOURNAL", "true")
	t.Setenv("FETCHKIT_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "other", cfg.DefaultProfile)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal.Path, "unset env keeps YAML value")
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("FETCHKIT_CONFIG", "/etc/fetchkit.yaml")
	assert.Equal(t, "/etc/fetchkit.yaml", DefaultPath())

	t.Setenv("FETCHKIT_CONFIG", "")
	assert.Contains(t, []string{"config.yaml", "fetchkit.yaml"}, filepath.Base(DefaultPath()))
}

func TestProfileResolution(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Profiles["api"] = Profile{BaseURL: "https://api.example.com", Token: "file-token"}
	cfg.Profiles["local"] = Profile{BaseURL: "http://localhost:8080"}

	p, err := cfg.Profile("")
	require.NoError(t, err)
	assert.Equal(t, Profile{}, p, "no default profile resolves to an empty profile")

	cfg.DefaultProfile = "api"
	p, err = cfg.Profile("")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", p.BaseURL)

	p, err = cfg.Profile("local")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", p.BaseURL)

	_, err = cfg.Profile("missing")
	assert.True(t, errors.Is(err, ErrUnknownProfile))
}

func TestProfileEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Profiles["api"] = Profile{BaseURL: "https://api.example.com", Token: "file-token", Timeout: time.Second}

	t.Setenv("FETCHKIT_BASE_URL", "http://127.0.0.1:9000")
	t.Setenv("FETCHKIT_TOKEN", "env-token")
	t.Setenv("FETCHKIT_TIMEOUT", "3s")

	p, err := cfg.Profile("api")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", p.BaseURL)
	assert.Equal(t, "env-token", p.Token)
	assert.Equal(t, 3*time.Second, p.Timeout)

	t.Setenv("FETCHKIT_TIMEOUT", "soon")
	_, err = cfg.Profile("api")
	assert.ErrorContains(t, err, "FETCHKIT_TIMEOUT")
}

func TestProfileRequestOptions(t *testing.T) {
	p := Profile{
		BaseURL:     "https://api.example.com",
		Headers:     map[string]string{"accept": "application/json", "x-team": "core"},
		Params:      map[string]string{"b": "2", "a": "1"},
		Timeout:     5 * time.Second,
		Credentials: "omit",
		Token:       "never-copied",
	}

	opts := p.RequestOptions()

	assert.Equal(t, "https://api.example.com", opts.BaseURL)
	assert.Equal(t, 5*time.Second, opts.Timeout)
	assert.Equal(t, fetch.CredentialsOmit, opts.Credentials)
	assert.Equal(t, "application/json", opts.Headers.Get("Accept"))
	assert.Equal(t, "core", opts.Headers.Get("X-Team"))
	assert.Empty(t, opts.Headers.Get("Authorization"))
	assert.Equal(t, "a=1&b=2", opts.Params.Encode())

	empty := Profile{}.RequestOptions()
	assert.Nil(t, empty.Headers)
	assert.Nil(t, empty.Params)
}
