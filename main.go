package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Conceptual-Machines/journey-api/internal/api"
	"github.com/Conceptual-Machines/journey-api/internal/config"
	"github.com/Conceptual-Machines/journey-api/internal/contract"
	"github.com/Conceptual-Machines/journey-api/internal/generation"
	"github.com/Conceptual-Machines/journey-api/internal/llm"
	"github.com/Conceptual-Machines/journey-api/internal/logger"
	"github.com/Conceptual-Machines/journey-api/internal/metrics"
	"github.com/Conceptual-Machines/journey-api/internal/observability"
	"github.com/Conceptual-Machines/journey-api/internal/prompt"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	sentryFlushTimeout = 2 * time.Second
	shutdownTimeout    = 10 * time.Second
	readHeaderTimeout  = 10 * time.Second
)

// releaseVersion is set via ldflags during build
var releaseVersion = "dev"

// GetVersion returns the current release version
func GetVersion() string {
	return releaseVersion
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if _, err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Sentry
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			Release:          "journey-api@" + releaseVersion,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
			Debug:            !cfg.IsProduction(),
			BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
				// Filter out sensitive data
				if event.Request != nil {
					event.Request.Headers = filterSensitiveHeaders(event.Request.Headers)
				}
				return event
			},
		}); err != nil {
			logger.Warn("Failed to initialize Sentry", logger.Fields{"error": err.Error()})
		} else {
			logger.Info("Sentry initialized", logger.Fields{
				"environment": cfg.Environment,
				"release":     releaseVersion,
			})
			defer sentry.Flush(sentryFlushTimeout)
		}
	} else {
		logger.Warn("Sentry not configured (SENTRY_DSN not set)", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prom := metrics.NewPrometheus(nil)
	recorder := metrics.NewMulti(
		metrics.NewSentryMetrics(cfg.SentryDSN != ""),
		prom,
		metrics.NewClient(ctx, cfg.Environment, cfg.CloudWatchEnabled),
	)

	orchestrator := generation.NewOrchestrator(
		llm.NewProviderFactory(),
		cfg.Credential,
		generation.Options{
			Provider:     cfg.LLMProvider,
			Model:        cfg.LLMModel,
			SystemPrompt: prompt.NewPromptLoader().GetSystemPrompt(),
			Temperature:  cfg.LLMTemperature,
			MaxTokens:    cfg.LLMMaxTokens,
			Timeout:      cfg.GenerationTimeout,
		},
		generation.WithRecorder(recorder),
		generation.WithLangfuse(observability.NewLangfuse(ctx, cfg)),
	)

	if cfg.Credential(llm.ResolveProviderName(cfg.LLMProvider, cfg.LLMModel)) == "" {
		// Not fatal: the credential is read on every request
		logger.Warn("No model API key configured; generation requests will fail until one is set", logger.Fields{
			"provider": cfg.LLMProvider,
		})
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(api.Dependencies{
		Config:     cfg,
		Generator:  orchestrator,
		Registry:   contract.DefaultRegistry(),
		Recorder:   recorder,
		Prometheus: prom.Handler(),
		Version:    GetVersion(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		logger.Info("Starting server", logger.Fields{
			"port":    cfg.Port,
			"model":   cfg.LLMModel,
			"timeout": cfg.GenerationTimeout.String(),
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sentry.CaptureException(err)
			logger.Error("Server stopped unexpectedly", err, nil)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", err, nil)
		return
	}
	logger.Info("Server stopped", nil)
}

func filterSensitiveHeaders(headers map[string]string) map[string]string {
	filtered := make(map[string]string)
	sensitiveKeys := map[string]bool{
		"authorization": true,
		"cookie":        true,
		"x-api-key":     true,
	}

	for k, v := range headers {
		if sensitiveKeys[k] {
			filtered[k] = "[REDACTED]"
		} else {
			filtered[k] = v
		}
	}
	return filtered
}
