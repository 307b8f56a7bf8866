package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the central typed configuration struct.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Log       LogConfig       `yaml:"log"`
	Inspector InspectorConfig `yaml:"inspector"`
	Binding   BindingConfig   `yaml:"binding"`
}

type AppConfig struct {
	Name  string `yaml:"name" validate:"required"`
	Env   string `yaml:"env" validate:"oneof=local production testing"`
	Debug bool   `yaml:"debug"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type InspectorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" validate:"omitempty,hostname_port"`
}

type BindingConfig struct {
	// ProxyStrategy turns on proxy observation for collection elements.
	ProxyStrategy bool `yaml:"proxy_strategy"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		App:       AppConfig{Name: "GoBinding", Env: "local", Debug: true},
		Log:       LogConfig{Level: "info", Format: "text"},
		Inspector: InspectorConfig{Enabled: false, Addr: "127.0.0.1:7070"},
	}
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	loadEnv(envFiles)
	cfg := Defaults()
	applyEnv(cfg)
	return cfg
}

// LoadFile reads a YAML file on top of the defaults, then applies .env and
// process environment overrides, then validates the result. A missing file
// is not an error.
//
//	cfg, err := config.LoadFile("go-binding.yaml")
func LoadFile(path string, envFiles ...string) (*Config, error) {
	loadEnv(envFiles)
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func loadEnv(files []string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	// .env is optional
	_ = godotenv.Load(files...)
}

func applyEnv(cfg *Config) {
	cfg.App.Name = env("APP_NAME", cfg.App.Name)
	cfg.App.Env = env("APP_ENV", cfg.App.Env)
	cfg.App.Debug = envBool("APP_DEBUG", cfg.App.Debug)
	cfg.Log.Level = env("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = env("LOG_FORMAT", cfg.Log.Format)
	cfg.Inspector.Addr = env("INSPECTOR_ADDR", cfg.Inspector.Addr)
	cfg.Inspector.Enabled = envBool("INSPECTOR_ENABLED", cfg.Inspector.Enabled)
	cfg.Binding.ProxyStrategy = envBool("BINDING_PROXY_STRATEGY", cfg.Binding.ProxyStrategy)
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
