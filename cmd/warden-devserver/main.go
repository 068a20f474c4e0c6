package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/warden/adapters/events"
	"github.com/layer-3/warden/adapters/signer"
	"github.com/layer-3/warden/adapters/store"
	"github.com/layer-3/warden/adapters/tokenizer"
	"github.com/layer-3/warden/config"
	"github.com/layer-3/warden/internal/logging"
	"github.com/layer-3/warden/ports"
	"github.com/layer-3/warden/service"
	transport "github.com/layer-3/warden/transport/http"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "warden.yaml", "path to the config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Session tokens only need to outlive this process
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate signing key: %w", err)
	}

	replayStore, closeStore, err := newReplayStore(cfg.DevServer.RedisURL)
	if err != nil {
		return err
	}
	defer closeStore()

	eventPub, closeEvents, err := events.NewPublisher(cfg.Events, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeEvents(); err != nil {
			logger.Warn("failed to close event publisher", "error", err)
		}
	}()

	authService := service.NewAuthService(
		tokenizer.NewJWTTokenizer(privateKey),
		replayStore,
		eventPub,
		service.WithChallengeWindow(cfg.DevServer.ChallengeWindow),
		service.WithSessionTTL(cfg.DevServer.SessionTTL),
		service.WithServiceLogger(logger),
	)
	tables := service.NewTables(signer.SealTo)

	router := transport.SetupRouter(authService, tables, logger)

	srv := &http.Server{
		Addr:              cfg.DevServer.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting warden devserver",
			"addr", cfg.DevServer.Addr,
			"challenge_window", cfg.DevServer.ChallengeWindow,
			"session_ttl", cfg.DevServer.SessionTTL,
			"redis", cfg.DevServer.RedisURL != "",
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newReplayStore uses Redis when a URL is configured and memory otherwise
func newReplayStore(redisURL string) (ports.ReplayStore, func(), error) {
	if redisURL == "" {
		return store.NewMemoryStore(), func() {}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(opts)

	return store.NewRedisStore(redisClient), func() { _ = redisClient.Close() }, nil
}
