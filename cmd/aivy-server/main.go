package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"aivy-conversation/internal/aivy/chat"
	"aivy-conversation/internal/app"
	"aivy-conversation/internal/common/camunda"
	"aivy-conversation/internal/common/config"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/common/observability"
	"aivy-conversation/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting AIVY conversation server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	components, err := app.Build(ctx, cfg, zapLog, log)
	if err != nil {
		zapLog.Fatal("failed to initialise components", zap.Error(err))
	}
	defer components.Close()

	deps := chat.Dependencies{
		Memory:        components.Memory,
		Recorder:      components.Recorder,
		Analytics:     components.Analytics,
		Retriever:     components.Retriever,
		Classifier:    components.Classifier,
		Prioritizer:   components.Prioritizer,
		Generator:     components.Generator,
		Observability: obs,
		Logger:        log,
	}

	checks := make([]server.ReadinessCheck, 0, len(components.Checks)+1)
	for _, c := range components.Checks {
		checks = append(checks, server.ReadinessCheck{Name: c.Name, Check: c.Check})
	}

	if cfg.Camunda.Enabled {
		var zc *camunda.Client
		err = app.RetryWithBackoff(func() error {
			var err error
			zc, err = camunda.NewClient(cfg.Camunda)
			return err
		}, 5, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			// Lead follow-up is optional.
			zapLog.Error("zeebe unavailable, lead follow-up disabled", zap.Error(err))
		} else {
			defer zc.Close()
			deps.Processes = zc
			checks = append(checks, server.ReadinessCheck{Name: "zeebe", Check: zc.HealthCheck})
			zapLog.Info("Zeebe client connected successfully")
		}
	}

	svc := chat.NewService(deps, chat.OptionsFromConfig(cfg))
	srv := server.New(cfg.Server, svc, log, checks...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		zapLog.Info("Shutdown signal received, stopping server...")
	case err := <-errCh:
		if err != nil {
			zapLog.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down http server", zap.Error(err))
	}

	zapLog.Info("AIVY conversation server stopped gracefully")
}
