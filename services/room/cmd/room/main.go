package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"pagepair/internal/ratelimit"
	"pagepair/internal/readertoken"
	"pagepair/internal/util"
	"pagepair/services/room/internal/app"
	"pagepair/services/room/internal/config"
	"pagepair/services/room/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	tokens, err := readertoken.New(readertoken.Options{Secret: cfg.TokenSecret})
	if err != nil {
		log.Fatalf("failed to init reader tokens: %v", err)
	}
	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	appCore, err := app.New(app.Config{
		StoreBackend:   cfg.StoreBackend,
		DatabaseURL:    cfg.DatabaseURL,
		RedisAddr:      cfg.RedisAddr,
		RedisPassword:  cfg.RedisPassword,
		MinioEndpoint:  cfg.MinioEndpoint,
		MinioAccessKey: cfg.MinioAccessKey,
		MinioSecretKey: cfg.MinioSecretKey,
		MinioBucket:    cfg.MinioBucket,
		MinioUseSSL:    cfg.MinioUseSSL,
		PublicBaseURL:  cfg.PublicBaseURL,
		FragmentSize:   cfg.FragmentSize,
		Debounce:       time.Duration(cfg.DebounceMs) * time.Millisecond,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var createLimiter *ratelimit.FixedWindowLimiter
	if appCore.Redis() != nil && cfg.CreateLimit > 0 {
		createLimiter, err = ratelimit.NewFixedWindowLimiter(appCore.Redis(), "pagepair:ratelimit:create", cfg.CreateLimit, time.Minute)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
	}

	httpServer, err := server.New(server.Config{
		App:            appCore,
		Tokens:         tokens,
		CreateLimiter:  createLimiter,
		TrustedProxies: trustedProxies,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("room server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("room server stopped")
}
