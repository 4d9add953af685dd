package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cscx-ai/toolgate/internal/api"
	"github.com/cscx-ai/toolgate/internal/autonomy"
	"github.com/cscx-ai/toolgate/internal/breaker"
	"github.com/cscx-ai/toolgate/internal/engine"
	"github.com/cscx-ai/toolgate/internal/events"
	"github.com/cscx-ai/toolgate/internal/keys"
	"github.com/cscx-ai/toolgate/internal/ledger"
	"github.com/cscx-ai/toolgate/internal/providers/calendar"
	"github.com/cscx-ai/toolgate/internal/providers/drive"
	"github.com/cscx-ai/toolgate/internal/providers/slack"
	"github.com/cscx-ai/toolgate/internal/providers/zoom"
	"github.com/cscx-ai/toolgate/internal/ratelimit"
	"github.com/cscx-ai/toolgate/internal/tool"
)

func main() {
	// Logger
	logger := mustBuildLogger(envOrDefault("TOOLGATE_LOG_LEVEL", "info"))
	defer logger.Sync() //nolint:errcheck // best-effort flush

	// Config from env
	httpPort := envOrDefault("TOOLGATE_HTTP_PORT", "8080")
	execTimeoutMs := envOrDefaultInt("TOOLGATE_EXEC_TIMEOUT_MS", 30_000)
	approvalTTLHours := envOrDefaultInt("TOOLGATE_APPROVAL_TTL_H", 24)
	breakerThreshold := envOrDefaultInt("TOOLGATE_BREAKER_THRESHOLD", 5)
	breakerCoolDownS := envOrDefaultInt("TOOLGATE_BREAKER_COOLDOWN_S", 30)
	cacheTTLSeconds := envOrDefaultInt("TOOLGATE_AUTH_CACHE_TTL_S", 30)
	presetPath := os.Getenv("TOOLGATE_PRESET_FILE")
	clickhouseDSN := os.Getenv("CLICKHOUSE_DSN")
	postgresDSN := os.Getenv("POSTGRES_DSN")

	logger.Info("starting toolgate server",
		zap.String("http_port", httpPort),
		zap.Int("exec_timeout_ms", execTimeoutMs),
		zap.Int("approval_ttl_h", approvalTTLHours),
	)

	// Event stream — ClickHouse or log emitter, plus the in-process bus
	var sink events.Emitter
	if clickhouseDSN != "" {
		chEmitter, err := events.NewClickHouseEmitter(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log emitter",
				zap.Error(err),
			)
			sink = events.NewLogEmitter(logger)
		} else {
			sink = chEmitter
			logger.Info("clickhouse emitter connected")
		}
	} else {
		sink = events.NewLogEmitter(logger)
		logger.Info("no CLICKHOUSE_DSN set, using log emitter")
	}
	bus := events.NewBus(logger)
	emitter := events.Multi{sink, bus}
	defer emitter.Close()

	// Postgres pool — ledger, autonomy policies and agent keys.
	// Without it everything degrades to in-memory state and static key auth.
	var db *sql.DB
	if postgresDSN != "" {
		var err error
		db, err = sql.Open("pgx", postgresDSN)
		if err != nil {
			logger.Fatal("failed to open postgres", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(context.Background()); err != nil {
			logger.Fatal("failed to ping postgres", zap.Error(err))
		}
		logger.Info("postgres connected")
	} else {
		logger.Warn("no POSTGRES_DSN set, using in-memory ledger and policies")
	}

	var (
		led      ledger.Ledger
		policies autonomy.Store
		auth     keys.Authenticator
	)
	cacheTTL := time.Duration(cacheTTLSeconds) * time.Second
	if db != nil {
		led = ledger.NewPostgresLedger(db)
		policies = autonomy.NewPostgresStore(autonomy.PostgresStoreConfig{
			DB:       db,
			CacheTTL: cacheTTL,
			Logger:   logger,
		})
		auth = keys.NewPostgresAuthenticator(keys.PostgresAuthConfig{
			DB:       db,
			CacheTTL: cacheTTL,
			Logger:   logger,
		})
	} else {
		led = ledger.NewMemoryLedger()
		policies = autonomy.NewMemoryStore()
		auth = keys.NewStaticAuthenticator()
	}

	// Operator-defined autonomy presets
	var presets map[string]autonomy.Policy
	if presetPath != "" {
		var err error
		presets, err = autonomy.LoadPresets(presetPath)
		if err != nil {
			logger.Fatal("failed to load presets", zap.Error(err))
		}
		logger.Info("presets loaded", zap.String("path", presetPath), zap.Int("count", len(presets)))
	}

	// Tool registry — provider descriptor sets. Unconfigured clients keep
	// the tools discoverable; execution fails until credentials are wired.
	registry := tool.NewRegistry()
	for _, descs := range [][]*tool.Descriptor{
		drive.Descriptors(drive.Unconfigured()),
		slack.Descriptors(slack.Unconfigured()),
		zoom.Descriptors(zoom.Unconfigured()),
		calendar.Descriptors(calendar.Unconfigured()),
	} {
		if err := registry.RegisterAll(descs); err != nil {
			logger.Fatal("tool registration failed", zap.Error(err))
		}
	}
	logger.Info("tool registry ready", zap.Int("tools", len(registry.Discover(tool.Filter{}))))

	// Engine
	eng := engine.New(engine.Config{
		Registry:    registry,
		Policies:    policies,
		Ledger:      led,
		Limiter:     ratelimit.NewLimiter(),
		Breaker: breaker.New(breaker.Config{
			Threshold: breakerThreshold,
			CoolDown:  time.Duration(breakerCoolDownS) * time.Second,
		}),
		Emitter:     emitter,
		Logger:      logger,
		ExecTimeout: time.Duration(execTimeoutMs) * time.Millisecond,
		ApprovalTTL: time.Duration(approvalTTLHours) * time.Hour,
	})
	eng.StartExpiry()
	defer eng.StopExpiry()

	// ClickHouse reader (event read model endpoints)
	var chReader *events.Reader
	if clickhouseDSN != "" {
		var err error
		chReader, err = events.NewReader(clickhouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse reader connection failed", zap.Error(err))
		} else {
			defer func() { _ = chReader.Close() }()
			logger.Info("clickhouse reader connected")
		}
	}

	// HTTP server
	deps := &api.Dependencies{
		Engine:   eng,
		Registry: registry,
		Ledger:   led,
		Policies: policies,
		Presets:  presets,
		Auth:     auth,
		Reader:   chReader,
		Logger:   logger,
	}
	httpServer := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("toolgate server stopped")
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
