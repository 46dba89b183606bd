package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. DATEMATE_SERVER_PORT.
const EnvPrefix = "DATEMATE"

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_delay", 2*time.Second)

	v.SetDefault("tasks.worker_count", 2)
	v.SetDefault("tasks.queue_size", 100)
	v.SetDefault("tasks.timeout", 2*time.Minute)
	v.SetDefault("tasks.ttl", time.Hour)
	v.SetDefault("tasks.sweep_interval", 5*time.Minute)

	v.SetDefault("client.base_url", "http://localhost:8080")
	v.SetDefault("client.token", "")
	v.SetDefault("client.timeout", 10*time.Second)

	v.SetDefault("poller.base_delay", time.Second)
	v.SetDefault("poller.step_delay", 500*time.Millisecond)
	v.SetDefault("poller.max_delay", 5*time.Second)
	v.SetDefault("poller.max_attempts", 0)
	v.SetDefault("poller.request_timeout", 10*time.Second)
}

// Load reads configuration from defaults, an optional config.yaml in the
// working directory and DATEMATE_* environment variables, in increasing
// order of precedence. The result is validated before it is returned.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file path. An empty path searches
// the working directory for config.yaml and tolerates its absence.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
