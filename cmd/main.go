package main

import (
	"chat-presence/contract"
	"chat-presence/infrastructure/http/server"
	"chat-presence/internal"
	"chat-presence/moderation"
	"chat-presence/observability"
	"chat-presence/repositories"
	"chat-presence/runtime"
	"chat-presence/runtime/workers"
	"chat-presence/services"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a shutdown signal.
// Returning instead of exiting lets the deferred cleanups release the database.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(ctx, config, logger))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	messageRepository, err := repositories.NewMessageRepository(db, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		_ = messageRepository.Close()
	}()
	participantRepository := repositories.NewParticipantRepository(db)

	// 3. Moderation & Metrics
	moderator, err := moderation.NewModerator(internal.SplitList(config.CensoredWords), charReplacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("moderator init failed: %w", err)
	}
	sanitizer := moderation.NewSanitizer(moderator)
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	// 4. Engine
	store := runtime.NewMessageStore(logger, messageRepository, sanitizer, metrics, time.Now)
	registry := runtime.NewRegistry(logger, participantRepository, store, sanitizer, metrics, time.Now)
	present, err := registry.Count(ctx)
	if err != nil {
		return exitRuntime, err
	}
	metrics.ActiveParticipants.Set(float64(present))
	logger.Info("Participants restored", "count", present)

	// 5. HTTP gateway
	chatServer := server.NewChatServer(logger, services.NewChatService(registry, store), metrics,
		prometheus.DefaultGatherer, server.SecurityConfig{
			AllowedOrigins: internal.SplitList(config.AllowedOrigins),
			RPS:            config.RateLimitRPS,
			Burst:          config.RateLimitBurst,
		})

	// 6. Supervision
	logger.Info("Starting chat server", "host", config.Host, "port", config.Port,
		"sweep_interval", config.SweepInterval, "stale_after", config.StaleAfter)

	supervise(ctx, workers.NewSupervisor(logger, metrics, config.RestartInterval),
		workers.NewSweeperWorker(logger, registry, metrics, time.Now, config.SweepInterval, config.StaleAfter),
		server.NewHTTPWorker(logger, config.Host, config.Port, chatServer.Handler(), config.ShutdownTimeout),
	)

	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

// supervise blocks until the context is canceled and every worker returned.
func supervise(ctx context.Context, sup contract.ISupervisor, supervised ...contract.Worker) {
	sup.Add(supervised...).Run(ctx)
}

func buildBadgerOpts(ctx context.Context, config internal.Config, logger *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if config.BadgerInMemory {
		options = badger.DefaultOptions("").WithInMemory(true)
	}

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return options
}
