package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/sipbridge/internal/archivematica"
	"github.com/dukerupert/sipbridge/internal/database"
	"github.com/dukerupert/sipbridge/internal/export"
	"github.com/dukerupert/sipbridge/internal/logging"
	"github.com/dukerupert/sipbridge/internal/model"
	"github.com/dukerupert/sipbridge/internal/server"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func main() {
	newToken := flag.String("new-token", "", "mint an access token with the given name and exit")
	tokenScope := flag.String("scope", model.ScopeWrite, "scope for -new-token (read, write or admin)")
	flag.Parse()

	logger := logging.Setup(envOr("SIPBRIDGE_LOG_LEVEL", "info"))

	dbPath := envOr("SIPBRIDGE_DB_PATH", "sipbridge.db")
	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	amClient := archivematica.NewClient(archivematica.Config{
		DashboardURL: os.Getenv("ARCHIVEMATICA_DASHBOARD_URL"),
		StorageURL:   os.Getenv("ARCHIVEMATICA_STORAGE_URL"),
		Username:     os.Getenv("ARCHIVEMATICA_USER"),
		APIKey:       os.Getenv("ARCHIVEMATICA_API_KEY"),
	})

	exportCfg := export.Config{
		S3: export.S3Config{
			Endpoint:  os.Getenv("SIPBRIDGE_S3_ENDPOINT"),
			Region:    envOr("SIPBRIDGE_S3_REGION", "us-east-1"),
			Bucket:    os.Getenv("SIPBRIDGE_S3_BUCKET"),
			AccessKey: os.Getenv("SIPBRIDGE_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("SIPBRIDGE_S3_SECRET_KEY"),
		},
		DBPath:     dbPath,
		Passphrase: os.Getenv("SIPBRIDGE_EXPORT_PASSPHRASE"),
		Interval:   envDuration("SIPBRIDGE_EXPORT_INTERVAL", 24*time.Hour),
	}

	pollInterval := envDuration("SIPBRIDGE_POLL_INTERVAL", time.Minute)
	srv := server.New(db, amClient, pollInterval, exportCfg, logger)

	if *newToken != "" {
		tok, err := srv.TokenStore().Create(*newToken, *tokenScope)
		if err != nil {
			logger.Error("failed to mint token", "error", err)
			os.Exit(1)
		}
		fmt.Printf("token %q (%s scope): %s\n", tok.Name, tok.Scope, tok.Token)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if amClient.Configured() {
		srv.StatusPoller().Start(ctx)
		defer srv.StatusPoller().Stop()
	} else {
		logger.Warn("archivematica not configured, status polling disabled")
	}

	if srv.ExportManager().Enabled() {
		srv.ExportManager().Start(ctx)
		defer srv.ExportManager().Stop()
	}

	// Periodic rate limiter cleanup
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			}
		}
	}()

	port := envOr("SIPBRIDGE_PORT", "8080")
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("sipbridge listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
