package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"labstation-backend/config"
	"labstation-backend/internal/api"
	"labstation-backend/internal/clock"
	"labstation-backend/internal/db"
	"labstation-backend/internal/mw"
	"labstation-backend/internal/notification"
	"labstation-backend/internal/store"
	"labstation-backend/internal/sweep"
)

func main() {
	logger := log.New(os.Stdout, "labstation ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Auth.TokenSecret == "" {
		logger.Fatalf("auth.token_secret must be configured")
	}
	if cfg.Push.Enabled && (cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "") {
		logger.Fatalf("VAPID keys must be configured when push is enabled")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	if err := db.SeedStations(gormDB, cfg.Stations); err != nil {
		logger.Fatalf("failed to seed station registry: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB, clock.Real{})
	logger.Println("data store initialized")

	var pool *notification.WorkerPool
	if cfg.Push.Enabled {
		webpushOptions := &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
		pool.Start(ctx)
		logger.Printf("notification worker pool started (size %d)", cfg.WorkerPool.Size)
	}

	sweeper := sweep.New(appStore, cfg.Sweep.Interval, cfg.Sweep.Enabled)
	go sweeper.Run(ctx)

	signInLimiter := mw.NewSignInLimiter(
		time.Duration(cfg.Auth.OTPWindowSeconds)*time.Second,
		cfg.Auth.OTPMaxPerWindow,
		time.Duration(cfg.Auth.OTPCleanupMinutes)*time.Minute,
	)

	router := api.NewRouter(appStore, cfg, pool, api.LogOTPSender{}, signInLimiter)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
