package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"telegram-anon-bot/cmd/bot/config"
	"telegram-anon-bot/internal/bot"
	"telegram-anon-bot/internal/log"
	"telegram-anon-bot/internal/ops"
	"telegram-anon-bot/internal/storage"
)

func main() {
	// Загрузка конфигурации бота
	cfg, err := config.LoadBotConfig("bot_config.yml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load bot config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to validate bot config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера с маскировкой токена
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	logger := log.NewMaskedLogger(handler)
	slog.SetDefault(logger)

	// Второй экземпляр поверх тех же файлов данных недопустим.
	lock, err := storage.AcquireLock(filepath.Join(cfg.DataDir, config.LockFile))
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyRunning) {
			slog.Error("bot is already running", slog.String("data_dir", cfg.DataDir))
		} else {
			slog.Error("failed to acquire lock", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
	defer storage.ReleaseLock(lock)

	// Файловые хранилища: битые данные на старте — фатальная ошибка,
	// молча начинать с пустого реестра нельзя.
	identities, err := storage.OpenIdentityRegistry(filepath.Join(cfg.DataDir, config.UserIDMapFile))
	if err != nil {
		slog.Error("failed to open identity registry", slog.String("error", err.Error()))
		os.Exit(1)
	}

	deps := bot.Deps{
		Identities:   identities,
		PostCounter:  storage.NewSequenceCounter(filepath.Join(cfg.DataDir, config.PostCounterFile)),
		ReplyCounter: storage.NewSequenceCounter(filepath.Join(cfg.DataDir, config.ReplyCounterFile)),
		Accepting:    storage.NewAcceptingFlag(filepath.Join(cfg.DataDir, config.AdminModeFile), logger),
		Pending:      bot.NewPendingStore(),
		Published:    bot.NewPublishedStore(),
	}

	b, err := bot.NewBot(*cfg, deps, logger.With(slog.String("component", "bot")))
	if err != nil {
		slog.Error("failed to create bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("Bot created successfully, starting...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Фоновая чистка очереди модерации: страховка от заявок, по которым
	// решение так и не приняли.
	deps.Pending.StartCleanupTicker(ctx,
		time.Duration(cfg.CleanupIntervalMinutes)*time.Minute,
		cfg.PendingCap,
		logger.With(slog.String("component", "janitor")))

	// Сервисный HTTP-эндпоинт (health/stats), если настроен порт.
	var opsServer *ops.Server
	if cfg.OpsPort > 0 {
		opsServer = ops.New(cfg.OpsPort, func() ops.Snapshot {
			published := 0
			if next, err := deps.PostCounter.Peek(); err == nil {
				published = next - 1
			}
			return ops.Snapshot{
				Users:          identities.Len(),
				PostsPublished: published,
				Pending:        deps.Pending.Len(),
				Accepting:      deps.Accepting.IsAccepting(),
			}
		})
		go func() {
			slog.Info("Starting ops server", slog.Int("port", cfg.OpsPort))
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("ops server error", slog.String("error", err.Error()))
			}
		}()
	}

	go b.Start(ctx)

	<-ctx.Done()

	slog.Info("Shutting down bot...")

	if opsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("ops server forced to shutdown", slog.String("error", err.Error()))
		}
	}

	slog.Info("Bot stopped gracefully")
}
