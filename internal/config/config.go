// Package config loads and validates gateway configuration from
// environment variables and an optional YAML file.
//
// Environment variables use the GATEWAY_ prefix with underscores for
// nesting, e.g. GATEWAY_SERVER_PORT=8080 or
// GATEWAY_DOWNSTREAM_TASK_BASE_URL=http://tasks:5002.
package config

import "time"

// Config holds all gateway configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Downstream DownstreamConfig `mapstructure:"downstream" validate:"required"`
	Cache      CacheConfig      `mapstructure:"cache" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	Push       PushConfig       `mapstructure:"push"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogPretty       bool          `mapstructure:"log_pretty"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required"`
}

// DownstreamConfig contains settings for calls to backend services.
type DownstreamConfig struct {
	Auth         ServiceConfig `mapstructure:"auth" validate:"required"`
	Task         ServiceConfig `mapstructure:"task" validate:"required"`
	Notification ServiceConfig `mapstructure:"notification" validate:"required"`

	// Timeout bounds each individual request attempt.
	Timeout time.Duration `mapstructure:"timeout" validate:"required"`

	Retry   RetryConfig   `mapstructure:"retry"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// ServiceConfig identifies a single downstream service.
type ServiceConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

// RetryConfig controls retry behavior for idempotent downstream calls.
type RetryConfig struct {
	MaxRetries  int           `mapstructure:"max_retries" validate:"gte=0"`
	BaseBackoff time.Duration `mapstructure:"base_backoff" validate:"gt=0"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff" validate:"gt=0"`
}

// BreakerConfig controls the per-target circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold" validate:"gt=0"`
	CoolDown         time.Duration `mapstructure:"cool_down" validate:"gt=0"`
}

// CacheConfig holds per-endpoint response cache lifetimes.
type CacheConfig struct {
	TaskListTTL      time.Duration `mapstructure:"task_list_ttl" validate:"gt=0"`
	TaskTTL          time.Duration `mapstructure:"task_ttl" validate:"gt=0"`
	TaskHistoryTTL   time.Duration `mapstructure:"task_history_ttl" validate:"gt=0"`
	NotificationsTTL time.Duration `mapstructure:"notifications_ttl" validate:"gt=0"`
	AuthUserTTL      time.Duration `mapstructure:"auth_user_ttl" validate:"gt=0"`
}

// AuthConfig contains token verification settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// PushConfig controls real-time notification fan-out.
type PushConfig struct {
	// AwaitDispatch makes notification creation block until fan-out
	// completes. Off by default: delivery runs detached.
	AwaitDispatch bool `mapstructure:"await_dispatch"`
}
