// Command gateway is the task platform API gateway. It fronts the
// auth, task and notification services with request resilience
// (retries and per-target circuit breakers), a versioned response
// cache, and real-time notification fan-out over WebSockets.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/taskfabric/gateway/internal/api"
	"github.com/taskfabric/gateway/internal/api/middleware"
	"github.com/taskfabric/gateway/internal/config"
	"github.com/taskfabric/gateway/pkg/breaker"
	"github.com/taskfabric/gateway/pkg/cache"
	"github.com/taskfabric/gateway/pkg/downstream"
	"github.com/taskfabric/gateway/pkg/logging"
	"github.com/taskfabric/gateway/pkg/push"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Server.LogLevel),
		Pretty: cfg.Server.LogPretty,
	})

	if err := run(cfg); err != nil {
		logger.Fatal().Err(err).Msg("gateway failed")
	}
}

func run(cfg *config.Config) error {
	logger := logging.NewLogger("gateway")

	store := cache.NewStore()
	generations := cache.NewGenerations()

	retry := downstream.RetryPolicy{
		MaxRetries:  cfg.Downstream.Retry.MaxRetries,
		BaseBackoff: cfg.Downstream.Retry.BaseBackoff,
		MaxBackoff:  cfg.Downstream.Retry.MaxBackoff,
	}
	brk := breaker.Config{
		FailureThreshold: cfg.Downstream.Breaker.FailureThreshold,
		CoolDown:         cfg.Downstream.Breaker.CoolDown,
	}

	newClient := func(target, baseURL string) (*downstream.Client, error) {
		return downstream.New(downstream.Config{
			Target:  target,
			BaseURL: baseURL,
			Timeout: cfg.Downstream.Timeout,
			Retry:   retry,
			Breaker: brk,
		}, logger)
	}

	authClient, err := newClient("auth", cfg.Downstream.Auth.BaseURL)
	if err != nil {
		return fmt.Errorf("auth client: %w", err)
	}
	taskClient, err := newClient("task", cfg.Downstream.Task.BaseURL)
	if err != nil {
		return fmt.Errorf("task client: %w", err)
	}
	notificationClient, err := newClient("notification", cfg.Downstream.Notification.BaseURL)
	if err != nil {
		return fmt.Errorf("notification client: %w", err)
	}

	registry := push.NewRegistry()
	dispatcher := push.NewDispatcher(registry, logger)

	authenticator := middleware.NewAuthenticator(cfg.Auth.JWTSecret, logger)

	router := api.NewRouter(api.RouterDeps{
		Auth: api.NewAuthHandler(
			downstream.NewAuthService(authClient),
			store, cfg.Cache.AuthUserTTL, logger),
		Tasks: api.NewTaskHandler(
			downstream.NewTaskService(taskClient),
			store, generations,
			api.TaskTTLs{
				List:    cfg.Cache.TaskListTTL,
				Task:    cfg.Cache.TaskTTL,
				History: cfg.Cache.TaskHistoryTTL,
			}, logger),
		Notifications: api.NewNotificationHandler(
			downstream.NewNotificationService(notificationClient),
			store, dispatcher,
			cfg.Cache.NotificationsTTL, cfg.Push.AwaitDispatch, logger),
		Authenticate: authenticator.Authenticate,
		Push:         push.NewWSHandler(registry, authenticator.Identify, logger),
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("starting gateway")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdownCh:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info().Msg("gateway stopped")
	return nil
}
