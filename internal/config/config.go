package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Tasks    TaskConfig     `mapstructure:"tasks" validate:"required"`
	Client   ClientConfig   `mapstructure:"client" validate:"required"`
	Poller   PollerConfig   `mapstructure:"poller" validate:"required"`
}

// ServerConfig contains the HTTP server settings of the task backend.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig selects the task store. An empty URL means in-memory storage.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AuthConfig contains JWT settings. The secret is only required by the
// server and by the token command, which check it themselves.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
}

// LLMConfig contains Gemini settings. Without an API key the backend serves
// canned suggestions.
type LLMConfig struct {
	GeminiAPIKey string        `mapstructure:"gemini_api_key"`
	ModelName    string        `mapstructure:"model_name" validate:"required"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelay   time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
}

// TaskConfig tunes the background task runner.
type TaskConfig struct {
	WorkerCount   int           `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize     int           `mapstructure:"queue_size" validate:"gt=0"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	TTL           time.Duration `mapstructure:"ttl" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
}

// ClientConfig points the CLI at a task backend.
type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// PollerConfig holds the status polling schedule.
type PollerConfig struct {
	BaseDelay      time.Duration `mapstructure:"base_delay" validate:"gt=0"`
	StepDelay      time.Duration `mapstructure:"step_delay" validate:"gte=0"`
	MaxDelay       time.Duration `mapstructure:"max_delay" validate:"gtefield=BaseDelay"`
	MaxAttempts    int           `mapstructure:"max_attempts" validate:"gte=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gte=0"`
}
