package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig selects and configures the storage backend.
// Backend "memory" keeps everything in-process and needs no URL;
// it exists for local development and tests.
type DatabaseConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=postgres memory"`
	URL     string `mapstructure:"url"     validate:"required_if=Backend postgres,omitempty,url"`
}

// AuthConfig contains authentication and token settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// QueueConfig configures the reminder job queue and its worker pool.
type QueueConfig struct {
	// Backend selects the queue implementation: "memory" for the
	// in-process heap queue, "redis" for the broker-backed queue.
	Backend string `mapstructure:"backend" validate:"required,oneof=memory redis"`

	// RedisAddr is the host:port of the Redis broker. Only used when
	// Backend is "redis".
	RedisAddr string `mapstructure:"redis_addr" validate:"required_if=Backend redis"`

	// WorkerCount determines how many delivery workers run concurrently.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`

	// DeliveryAttempts is the maximum number of delivery attempts per job,
	// including the first one. Failed jobs are retried with exponential
	// backoff until the attempts are exhausted, then logged and dropped.
	DeliveryAttempts int `mapstructure:"delivery_attempts" validate:"required,gt=0"`

	// EnqueueTimeoutSeconds bounds how long a single enqueue call may block
	// against the queue backend before being treated as a scheduling failure.
	EnqueueTimeoutSeconds int `mapstructure:"enqueue_timeout_seconds" validate:"required,gt=0"`
}
