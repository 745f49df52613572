package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadWithEnv("", noEnv)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, filepath.Join(DefaultDir, "forms.db"), cfg.StoragePath())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
backend: badger
path: /tmp/forms
simulate: true
failure_rate: 0.5
latency:
  write_min: 10ms
  write_max: 20ms
timing:
  debounce: 250ms
`)
	cfg, err := LoadWithEnv(path, noEnv)
	require.NoError(t, err)

	assert.Equal(t, BackendBadger, cfg.Backend)
	assert.Equal(t, "/tmp/forms", cfg.StoragePath())
	assert.True(t, cfg.Simulate)
	assert.Equal(t, 0.5, cfg.FailureRate)
	assert.Equal(t, 10*time.Millisecond, cfg.Latency.WriteMin)
	assert.Equal(t, 20*time.Millisecond, cfg.Latency.WriteMax)
	assert.Equal(t, 250*time.Millisecond, cfg.Timing.Debounce)
	// Unset fields keep their defaults.
	assert.Equal(t, 300*time.Millisecond, cfg.Timing.SavingGrace)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := LoadWithEnv(writeConfig(t, ""), noEnv)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := LoadWithEnv(writeConfig(t, "backnd: memory\n"), noEnv)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backnd")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "nope.yaml"), noEnv)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "backend: sqlite\nfailure_rate: 0.2\n")
	cfg, err := LoadWithEnv(path, envMap(map[string]string{
		EnvBackend:     "REDIS",
		EnvRedisAddr:   "localhost:6379",
		EnvFailureRate: "0",
		EnvSimulate:    "true",
		EnvPath:        "/data",
	}))
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 0.0, cfg.FailureRate)
	assert.True(t, cfg.Simulate)
	assert.Equal(t, "/data", cfg.Path)
}

func TestLoad_BadEnv(t *testing.T) {
	_, err := LoadWithEnv("", envMap(map[string]string{EnvFailureRate: "lots"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvFailureRate)

	_, err = LoadWithEnv("", envMap(map[string]string{EnvSimulate: "maybe"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvSimulate)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Backend = "postgres" }, "Backend must be one of"},
		{"redis without addr", func(c *Config) { c.Backend = BackendRedis }, "RedisAddr is required"},
		{"failure rate above one", func(c *Config) { c.FailureRate = 1.5 }, "FailureRate"},
		{"negative failure rate", func(c *Config) { c.FailureRate = -0.1 }, "FailureRate"},
		{"inverted write latency", func(c *Config) {
			c.Latency.WriteMin = 2 * time.Second
			c.Latency.WriteMax = time.Second
		}, "Latency.WriteMax must not be less than WriteMin"},
		{"negative debounce", func(c *Config) { c.Timing.Debounce = -time.Second }, "Timing.Debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStoragePath_Badger(t *testing.T) {
	cfg := Default()
	cfg.Backend = BackendBadger
	assert.Equal(t, filepath.Join(DefaultDir, "badger"), cfg.StoragePath())
}
