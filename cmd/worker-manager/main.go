// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"aivy-conversation/internal/app"
	awsclient "aivy-conversation/internal/common/aws"
	"aivy-conversation/internal/common/camunda"
	"aivy-conversation/internal/common/config"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/common/observability"

	llms "aivy-conversation/internal/workers/ai-conversation/llm-synthesis"
	pui "aivy-conversation/internal/workers/ai-conversation/parse-user-intent"
	qid "aivy-conversation/internal/workers/ai-conversation/query-internal-data"
	rct "aivy-conversation/internal/workers/ai-conversation/record-conversation-turn"
	cls "aivy-conversation/internal/workers/lead/crm-lead-sync"
	nst "aivy-conversation/internal/workers/lead/notify-sales-team"
)

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	var zc *camunda.Client
	err = app.RetryWithBackoff(func() error {
		var err error
		zc, err = camunda.NewClient(cfg.Camunda)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	components, err := app.Build(ctx, cfg, zapLog, log)
	if err != nil {
		zapLog.Fatal("failed to initialise components", zap.Error(err))
	}
	defer components.Close()

	var mailer nst.Mailer
	var sms nst.SMSSender
	if cfg.Integrations.AWS.SES.Enabled || cfg.Integrations.AWS.SNS.Enabled {
		awsCfg, err := awsclient.LoadConfig(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("failed to load AWS config", zap.Error(err))
		}
		if cfg.Integrations.AWS.SES.Enabled {
			mailer = awsclient.NewMailer(awsclient.NewSESClient(awsCfg), cfg.Integrations.AWS.SES.FromEmail)
		}
		if cfg.Integrations.AWS.SNS.Enabled {
			sms = awsclient.NewSMSSender(awsclient.NewSNSClient(awsCfg), cfg.Integrations.AWS.SNS.DefaultSMSSenderID)
		}
	}

	zapLog.Info("All external service clients initialized")

	client := zc.GetClient()
	var workers []worker.JobWorker
	register := func(taskType string, handler camunda.JobHandler) {
		if w := camunda.StartWorker(client, taskType, cfg.Workers[taskType], handler, obs, log); w != nil {
			workers = append(workers, w)
		}
	}

	register(pui.TaskType, pui.NewHandler(pui.ConfigFromApp(cfg), components.Memory, components.Classifier, log))
	register(qid.TaskType, qid.NewHandler(qid.ConfigFromApp(cfg), qid.Dependencies{
		Memory:      components.Memory,
		Retriever:   components.Retriever,
		Prioritizer: components.Prioritizer,
		Classifier:  components.Classifier,
		Logger:      log,
	}))
	register(llms.TaskType, llms.NewHandler(llms.ConfigFromApp(cfg), components.Memory, components.Generator, log))
	register(rct.TaskType, rct.NewHandler(rct.ConfigFromApp(cfg), components.Memory, components.Recorder, log))
	register(cls.TaskType, cls.NewHandler(cls.HandlerOptions{AppConfig: cfg, Logger: log}))
	register(nst.TaskType, nst.NewHandler(nst.ConfigFromApp(cfg), mailer, sms, log))

	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := zc.HealthCheck(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		for _, c := range components.Checks {
			if err := c.Check(ctx); err != nil {
				writeStatus(w, http.StatusServiceUnavailable, "unavailable")
				return
			}
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	healthSrv := &http.Server{Addr: cfg.Server.MetricsAddress, Handler: mux}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", healthSrv.Addr))
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}

	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	if err := zc.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
