package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/estate-backend/internal/cache"
	"github.com/shinyyama/estate-backend/internal/changefeed"
	"github.com/shinyyama/estate-backend/internal/config"
	"github.com/shinyyama/estate-backend/internal/db"
	appmw "github.com/shinyyama/estate-backend/internal/middleware"
	"github.com/shinyyama/estate-backend/internal/repository"
	"github.com/shinyyama/estate-backend/internal/server"
	"github.com/shinyyama/estate-backend/internal/service"
)

var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load error", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(conn); err != nil {
			logger.Error("auto migrate error", "error", err)
		}
	}

	var convCache cache.Cache = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		convCache = cache.NewRedis(rdb)
		logger.Info("conversation cache on redis", "addr", cfg.RedisAddr)
	}

	var feed changefeed.Feed = changefeed.NewMemoryFeed()
	if cfg.NATSURL != "" {
		nc, err := changefeed.Connect(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer nc.Drain()
		feed = changefeed.NewNATSFeed(nc)
		logger.Info("change feed on NATS", "url", cfg.NATSURL)
	}

	notifRepo := repository.NewNotificationRepository(conn)
	messaging := service.NewMessaging(service.Deps{
		Conversations: repository.NewConversationRepository(conn),
		Messages:      repository.NewMessageRepository(conn),
		Profiles:      repository.NewProfileRepository(conn),
		Notifications: notifRepo,
		Cache:         convCache,
		CacheTTL:      cfg.ConversationCacheTTL,
		Feed:          feed,
		Logger:        logger,
	})

	authMw, err := appmw.NewAuthMiddleware(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
	if err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Messaging:     messaging,
		Notifications: service.NewNotificationService(notifRepo),
		RequireAuth:   echo.MiddlewareFunc(authMw.RequireAuth),
		SHA:           gitSHA,
		BuildTime:     buildTime,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr)
		errCh <- srv.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
