package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/planoeducation/planoeducation/internal/adapter/llm"
	"github.com/planoeducation/planoeducation/internal/config"
	"github.com/planoeducation/planoeducation/internal/policy"
	"github.com/planoeducation/planoeducation/internal/relay"
	"github.com/planoeducation/planoeducation/internal/repository"
	"github.com/planoeducation/planoeducation/internal/service"
	transport "github.com/planoeducation/planoeducation/internal/transport/http"
	"github.com/planoeducation/planoeducation/internal/transport/http/chat"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the chat relay HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), loadConfig())
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logrus.WithFields(logrus.Fields{
		"port":     cfg.HTTPPort,
		"database": cfg.DatabaseURL,
		"provider": cfg.ProviderURL,
		"model":    cfg.Model,
		"mode":     cfg.Mode,
	}).Info("starting chat relay")

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy, policy.Limits{
		MaxMessages:     cfg.PolicyMaxMessages,
		MaxContentBytes: cfg.PolicyMaxContentBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	// Relay deadline bounds the upstream call; the HTTP client adds none.
	provider := llm.NewLLMClient(cfg.Mode, cfg.ProviderURL, cfg.Credentials, 0)
	r := relay.New(provider, relay.Options{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokensParam(),
		Temperature: cfg.TemperatureParam(),
		Timeout:     cfg.RelayTimeout,
	})

	svc := service.New(db, r, policyEngine)
	e := transport.NewServer(svc, chat.Options{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logrus.WithField("port", cfg.HTTPPort).Info("chat relay started")

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logrus.Info("shutting down chat relay")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("failed to shutdown server gracefully")
	}

	logrus.Info("chat relay stopped")
	return nil
}
