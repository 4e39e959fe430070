package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "STOREFRONT_"

	defaultHTTPHost           = "0.0.0.0"
	defaultHTTPPort           = 8080
	defaultSSHHost            = "0.0.0.0"
	defaultSSHPort            = 2222
	defaultHostKeyPath        = ".data/host_ed25519"
	defaultIdleTimeout        = 120 * time.Second
	defaultMaxSessions        = 32
	defaultRateLimitPerMinute = 120
	defaultRateBurst          = 20
	defaultProductsURL        = "https://fakestoreapi.com/products"
	defaultFetchTimeout       = 20 * time.Second
	defaultPreferencesPath    = ".data/preferences.json"
	defaultLogLevel           = "info"
	defaultLogFormat          = "json"
	maximumConfiguredSessions = 1024
)

// Config captures startup settings for the storefront process.
type Config struct {
	HTTP            HTTPConfig      `yaml:"http"`
	SSH             SSHConfig       `yaml:"ssh"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	Products        ProductsConfig  `yaml:"products"`
	PreferencesPath string          `yaml:"preferences_path" validate:"required"`
	Log             LogConfig       `yaml:"log"`
}

type HTTPConfig struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`

	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Enable it only behind a reverse proxy that overwrites those headers.
	TrustProxy bool `yaml:"trust_proxy"`
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type SSHConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Host        string        `yaml:"host" validate:"required"`
	Port        int           `yaml:"port" validate:"min=1,max=65535"`
	HostKeyPath string        `yaml:"host_key_path" validate:"required"`
	IdleTimeout time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	MaxSessions int           `yaml:"max_sessions" validate:"min=1,max=1024"`
}

// Addr returns the listen address.
func (c SSHConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// RateLimitConfig applies per client IP to both surfaces.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute" validate:"min=1,max=100000"`
	Burst     int `yaml:"burst" validate:"min=1,max=10000"`
}

type ProductsConfig struct {
	URL          string        `yaml:"url" validate:"required,url"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{Host: defaultHTTPHost, Port: defaultHTTPPort},
		SSH: SSHConfig{
			Enabled:     true,
			Host:        defaultSSHHost,
			Port:        defaultSSHPort,
			HostKeyPath: defaultHostKeyPath,
			IdleTimeout: defaultIdleTimeout,
			MaxSessions: defaultMaxSessions,
		},
		RateLimit:       RateLimitConfig{PerMinute: defaultRateLimitPerMinute, Burst: defaultRateBurst},
		Products:        ProductsConfig{URL: defaultProductsURL, FetchTimeout: defaultFetchTimeout},
		PreferencesPath: defaultPreferencesPath,
		Log:             LogConfig{Level: defaultLogLevel, Format: defaultLogFormat},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and STOREFRONT_* environment variables, in that order.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromEnv loads runtime configuration from environment variables only.
func LoadFromEnv() (Config, error) {
	return Load("")
}

func readFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var err error

	if cfg.HTTP.Host, err = readRequiredOrDefault(envPrefix+"HTTP_HOST", cfg.HTTP.Host); err != nil {
		return err
	}
	if cfg.HTTP.Port, err = readInt(envPrefix+"HTTP_PORT", cfg.HTTP.Port, 1, 65535); err != nil {
		return err
	}
	if cfg.HTTP.TrustProxy, err = readBool(envPrefix+"HTTP_TRUST_PROXY", cfg.HTTP.TrustProxy); err != nil {
		return err
	}

	if cfg.SSH.Enabled, err = readBool(envPrefix+"SSH_ENABLED", cfg.SSH.Enabled); err != nil {
		return err
	}
	if cfg.SSH.Host, err = readRequiredOrDefault(envPrefix+"SSH_HOST", cfg.SSH.Host); err != nil {
		return err
	}
	if cfg.SSH.Port, err = readInt(envPrefix+"SSH_PORT", cfg.SSH.Port, 1, 65535); err != nil {
		return err
	}
	if cfg.SSH.HostKeyPath, err = readRequiredOrDefault(envPrefix+"SSH_HOST_KEY_PATH", cfg.SSH.HostKeyPath); err != nil {
		return err
	}
	if cfg.SSH.IdleTimeout, err = readDuration(envPrefix+"SSH_IDLE_TIMEOUT", cfg.SSH.IdleTimeout); err != nil {
		return err
	}
	if cfg.SSH.MaxSessions, err = readInt(envPrefix+"SSH_MAX_SESSIONS", cfg.SSH.MaxSessions, 1, maximumConfiguredSessions); err != nil {
		return err
	}

	if cfg.RateLimit.PerMinute, err = readInt(envPrefix+"RATE_LIMIT_PER_MINUTE", cfg.RateLimit.PerMinute, 1, 100000); err != nil {
		return err
	}
	if cfg.RateLimit.Burst, err = readInt(envPrefix+"RATE_BURST", cfg.RateLimit.Burst, 1, 10000); err != nil {
		return err
	}

	if cfg.Products.URL, err = readRequiredOrDefault(envPrefix+"PRODUCTS_URL", cfg.Products.URL); err != nil {
		return err
	}
	if cfg.Products.FetchTimeout, err = readDuration(envPrefix+"FETCH_TIMEOUT", cfg.Products.FetchTimeout); err != nil {
		return err
	}

	if cfg.PreferencesPath, err = readRequiredOrDefault(envPrefix+"PREFERENCES_PATH", cfg.PreferencesPath); err != nil {
		return err
	}

	if cfg.Log.Level, err = readRequiredOrDefault(envPrefix+"LOG_LEVEL", cfg.Log.Level); err != nil {
		return err
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Format, err = readRequiredOrDefault(envPrefix+"LOG_FORMAT", cfg.Log.Format); err != nil {
		return err
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)

	cfg.SSH.HostKeyPath = filepath.Clean(cfg.SSH.HostKeyPath)
	cfg.PreferencesPath = filepath.Clean(cfg.PreferencesPath)
	return nil
}

func readRequiredOrDefault(key, fallback string) (string, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%s must not be empty", key)
	}

	return raw, nil
}

func readInt(key string, fallback, min, max int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	if parsed < min || parsed > max {
		return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
	}

	return parsed, nil
}

func readBool(key string, fallback bool) (bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return parsed, nil
}

func readDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}

	return parsed, nil
}
