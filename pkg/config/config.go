package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment setting (ISBN_PLUS_ID, ISBN_PLUS_TRANSPORT_TIMEOUT, ...).
const EnvPrefix = "ISBN_PLUS"

// DefaultEndpointURL is the public search endpoint.
const DefaultEndpointURL = "https://api-2445581351187.apicast.io/search"

// Config is the complete client configuration.
type Config struct {
	Credentials `mapstructure:",squash"`

	// Order is the default sort order for new queries.
	Order string `mapstructure:"order"`

	Transport TransportConfig `mapstructure:"transport"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// TransportConfig tunes the HTTP transport.
type TransportConfig struct {
	// Timeout bounds a single page request. Zero means no timeout.
	Timeout time.Duration `mapstructure:"timeout"`

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`

	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`

	// MaxRetries is the number of extra attempts for transport and 5xx failures.
	MaxRetries int `mapstructure:"max_retries"`

	// CircuitBreaker enables the breaker that fails fast after repeated transport failures.
	CircuitBreaker bool `mapstructure:"circuit_breaker"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Default returns the configuration used when nothing else is provided.
func Default() Config {
	return Config{
		Credentials: Credentials{EndpointURL: DefaultEndpointURL},
		Order:       "published",
		Transport: TransportConfig{
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from, in increasing precedence: defaults, the YAML
// file at path (optional), a .env file in the working directory and the
// ISBN_PLUS_* environment. Credentials are not required here; they are
// checked when a page is fetched.
func Load(path string) (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("config file not found: %w", err)
			}
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault(string(FieldID), "")
	v.SetDefault(string(FieldKey), "")
	v.SetDefault(string(FieldURL), d.EndpointURL)
	v.SetDefault("order", d.Order)

	v.SetDefault("transport.timeout", d.Transport.Timeout)
	v.SetDefault("transport.insecure_skip_verify", false)
	v.SetDefault("transport.rate_limit", 0)
	v.SetDefault("transport.max_retries", 0)
	v.SetDefault("transport.circuit_breaker", false)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.pretty", false)
}

// validate checks values that would otherwise fail late and obscurely.
func validate(cfg *Config) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	if cfg.Transport.Timeout < 0 {
		return fmt.Errorf("transport.timeout must be >= 0 (got %s)", cfg.Transport.Timeout)
	}
	if cfg.Transport.RateLimit < 0 {
		return fmt.Errorf("transport.rate_limit must be >= 0 (got %v)", cfg.Transport.RateLimit)
	}
	if cfg.Transport.MaxRetries < 0 {
		return fmt.Errorf("transport.max_retries must be >= 0 (got %d)", cfg.Transport.MaxRetries)
	}

	return nil
}
