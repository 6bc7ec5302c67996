package config

// Publish failure modes. See BrokerConfig.PublishFailureMode.
const (
	// PublishFailureIgnore logs a failed publish and still reports success
	// to the client. This preserves availability at the cost of silently
	// losing the submission if the broker is down.
	PublishFailureIgnore = "ignore"

	// PublishFailureFail propagates a failed publish as a request failure.
	PublishFailureFail = "fail"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Broker   BrokerConfig   `mapstructure:"broker"   validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=0,lte=31"`
}

// BrokerConfig contains the RabbitMQ connection and publish settings.
type BrokerConfig struct {
	URL string `mapstructure:"url" validate:"required"`

	// GlucoseQueue and PressureQueue are the durable queue names the
	// publisher and worker agree on.
	GlucoseQueue  string `mapstructure:"glucose_queue"  validate:"required"`
	PressureQueue string `mapstructure:"pressure_queue" validate:"required"`

	// PublishTimeoutSeconds bounds how long a request may block on the
	// broker. The publish path must never block indefinitely.
	PublishTimeoutSeconds int `mapstructure:"publish_timeout_seconds" validate:"required,gt=0"`

	// PublishFailureMode selects what a failed publish does to the HTTP
	// request: "ignore" (log and report success, the legacy behavior) or
	// "fail" (return an error to the client).
	PublishFailureMode string `mapstructure:"publish_failure_mode" validate:"required,oneof=ignore fail"`
}

// WorkerConfig contains the consumer process settings.
type WorkerConfig struct {
	// RetryMaxAttempts is the number of persistence attempts per delivery
	// before the message is handed back to the broker.
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" validate:"required,gt=0"`

	// RetryBackoffSeconds is the fixed delay between persistence attempts.
	RetryBackoffSeconds int `mapstructure:"retry_backoff_seconds" validate:"required,gt=0"`

	// RequeueOnFailure controls whether exhausted deliveries are requeued
	// (true) or left to the queue's dead-letter policy (false).
	RequeueOnFailure bool `mapstructure:"requeue_on_failure"`
}
