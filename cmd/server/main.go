package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"symptom-insights/internal/auth"
	"symptom-insights/internal/config"
	"symptom-insights/internal/core"
	"symptom-insights/internal/db"
	httpserver "symptom-insights/internal/http"
	"symptom-insights/internal/llm"
	"symptom-insights/internal/observability"
	"symptom-insights/internal/records"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	if cfg.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set, assistant calls will fail")
	}
	sessions := core.NewSessionManager(
		llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL),
		core.WithPolling(cfg.PollMaxRetries, cfg.PollInterval),
		core.WithLogger(logger),
		core.WithMetrics(metrics),
	)
	extractor := core.NewExtractor(core.ExtractionMode(cfg.ExtractionMode), cfg.BatchSeparator)
	extractor.Metrics = metrics

	service := core.NewInsightService(core.NewBuilder(cfg.RecencyWindow), sessions, extractor, core.DefaultTemplates(), core.Defaults{
		AssistantID:    cfg.AssistantID,
		VectorStoreIDs: cfg.VectorStoreIDs,
		Template:       cfg.InstructionTemplate,
	})
	if _, err := service.Templates.Lookup(cfg.InstructionTemplate); err != nil {
		logger.Fatalf("config error: INSTRUCTION_TEMPLATE: %v", err)
	}
	service.Log = logger
	if cfg.RecordsBaseURL != "" {
		service.Records = records.NewClient(cfg.RecordsBaseURL, cfg.RecordsTimeout)
	} else {
		logger.Info("RECORDS_BASE_URL not set, /aiResponse disabled")
	}

	var history httpserver.InsightHistory
	if cfg.DatabaseURL != "" {
		dbConn, err := openDatabase(cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("database error: %v", err)
		}
		defer dbConn.Close()
		repo := db.NewRepository(dbConn, db.NewNotifier(dbConn, cfg.NotifyChannel), logger)
		service.Store = repo
		history = repo
		logger.Info("insight history enabled")
	} else {
		logger.Info("DATABASE_URL not set, insight history disabled")
	}

	var authn *auth.Authenticator
	if cfg.AuthEnabled {
		authn, err = auth.New(auth.Options{
			Username:  cfg.Username,
			Password:  cfg.Password,
			Secret:    cfg.SecretKey,
			Algorithm: cfg.Algorithm,
			TTL:       cfg.AccessTokenExpires,
		})
		if err != nil {
			logger.Fatalf("auth error: %v", err)
		}
		if cfg.SecretKey == "" {
			logger.Warn("SECRET_KEY not set, tokens will not survive a restart")
		}
	} else {
		logger.Warn("AUTH_ENABLED=false, all routes are open")
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpserver.NewServer(service, history, authn, metrics, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// A reply may take the full polling budget.
		WriteTimeout: time.Duration(cfg.PollMaxRetries)*cfg.PollInterval + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	logger.WithField("addr", cfg.Addr).Info("server listening")
	waitForShutdown(server, cfg.ShutdownTimeout, logger)
}

// openDatabase connects, verifies the connection and applies the schema.
func openDatabase(url string) (*sql.DB, error) {
	dbConn, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		dbConn.Close()
		return nil, err
	}
	if err := db.Migrate(ctx, dbConn); err != nil {
		dbConn.Close()
		return nil, err
	}
	return dbConn, nil
}

func waitForShutdown(server *http.Server, timeout time.Duration, logger *logrus.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
}
