// Package config loads formsync settings from a YAML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, FORMSYNC_*
// environment variables. Command-line flags are applied by the caller
// after Load returns.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// DefaultDir is where durable backends keep their files unless a path is set.
const DefaultDir = ".formsync"

// Environment variables consulted by Load.
const (
	EnvBackend     = "FORMSYNC_BACKEND"
	EnvPath        = "FORMSYNC_PATH"
	EnvRedisAddr   = "FORMSYNC_REDIS_ADDR"
	EnvFailureRate = "FORMSYNC_FAILURE_RATE"
	EnvSimulate    = "FORMSYNC_SIMULATE"
)

// Config is the full set of runtime settings.
type Config struct {
	Backend   string `yaml:"backend" validate:"oneof=memory sqlite badger redis"`
	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr" validate:"required_if=Backend redis"`

	// Simulate wraps the backend in the latency and failure simulator.
	Simulate    bool    `yaml:"simulate"`
	FailureRate float64 `yaml:"failure_rate" validate:"gte=0,lte=1"`
	Seed        uint64  `yaml:"seed"`
	Latency     Latency `yaml:"latency"`

	Timing Timing `yaml:"timing"`
}

// Latency bounds the simulated storage delays.
type Latency struct {
	WriteMin time.Duration `yaml:"write_min" validate:"gte=0"`
	WriteMax time.Duration `yaml:"write_max" validate:"gtefield=WriteMin"`
	ReadMin  time.Duration `yaml:"read_min" validate:"gte=0"`
	ReadMax  time.Duration `yaml:"read_max" validate:"gtefield=ReadMin"`
}

// Timing holds the builder and responder delays.
type Timing struct {
	Debounce    time.Duration `yaml:"debounce" validate:"gte=0"`
	SavingGrace time.Duration `yaml:"saving_grace" validate:"gte=0"`
	SettleDelay time.Duration `yaml:"settle_delay" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend:     BackendSQLite,
		FailureRate: 0.10,
		Latency: Latency{
			WriteMin: time.Second,
			WriteMax: 3 * time.Second,
			ReadMin:  500 * time.Millisecond,
			ReadMax:  1500 * time.Millisecond,
		},
		Timing: Timing{
			Debounce:    500 * time.Millisecond,
			SavingGrace: 300 * time.Millisecond,
			SettleDelay: time.Second,
		},
	}
}

// Load builds a Config from defaults, the file at path, and the process
// environment. An empty path skips the file.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(EnvBackend); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if v := getenv(EnvPath); v != "" {
		cfg.Path = v
	}
	if v := getenv(EnvRedisAddr); v != "" {
		cfg.RedisAddr = v
	}
	if v := getenv(EnvFailureRate); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFailureRate, err)
		}
		cfg.FailureRate = rate
	}
	if v := getenv(EnvSimulate); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSimulate, err)
		}
		cfg.Simulate = on
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "required_if":
		return fmt.Sprintf("%s is required when %s", field, strings.Replace(fe.Param(), " ", " is ", 1))
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s (value %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
}

// StoragePath returns the configured path, or the backend's default
// location under DefaultDir.
func (c Config) StoragePath() string {
	if c.Path != "" {
		return c.Path
	}
	switch c.Backend {
	case BackendBadger:
		return filepath.Join(DefaultDir, "badger")
	default:
		return filepath.Join(DefaultDir, "forms.db")
	}
}
