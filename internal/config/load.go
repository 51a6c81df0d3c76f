package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and, when path is
// non-empty, a YAML config file. Environment variables take precedence
// over file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("gateway")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
				return nil, fmt.Errorf("config file %s does not exist", path)
			}
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal even when no config file is present.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_pretty", false)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("downstream.auth.base_url", "")
	v.SetDefault("downstream.task.base_url", "")
	v.SetDefault("downstream.notification.base_url", "")
	v.SetDefault("downstream.timeout", 15*time.Second)
	v.SetDefault("downstream.retry.max_retries", 3)
	v.SetDefault("downstream.retry.base_backoff", time.Second)
	v.SetDefault("downstream.retry.max_backoff", 30*time.Second)
	v.SetDefault("downstream.breaker.failure_threshold", 5)
	v.SetDefault("downstream.breaker.cool_down", 30*time.Second)

	v.SetDefault("cache.task_list_ttl", 5*time.Minute)
	v.SetDefault("cache.task_ttl", 15*time.Minute)
	v.SetDefault("cache.task_history_ttl", 10*time.Minute)
	v.SetDefault("cache.notifications_ttl", time.Minute)
	v.SetDefault("cache.auth_user_ttl", 3*time.Minute)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("push.await_dispatch", false)
}

func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
	}
	return fmt.Errorf("validate config: %w", err)
}
