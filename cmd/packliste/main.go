package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"packliste/internal/backup"
	"packliste/internal/database"
	"packliste/internal/email"
	"packliste/internal/logging"
	"packliste/internal/server"
)

func main() {
	logger := logging.Setup(os.Getenv("PACKLISTE_LOG_LEVEL"))

	port := os.Getenv("PACKLISTE_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("PACKLISTE_DB_PATH")
	if dbPath == "" {
		dbPath = "packliste.db"
	}

	jwtSecret := os.Getenv("PACKLISTE_JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("PACKLISTE_JWT_SECRET is required")
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(
		os.Getenv("PACKLISTE_POSTMARK_TOKEN"),
		os.Getenv("PACKLISTE_POSTMARK_FROM"),
	)

	srv := server.New(db, jwtSecret, emailClient, logger)

	backupInterval := 24 * time.Hour
	if v := os.Getenv("PACKLISTE_BACKUP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			logger.Error("invalid PACKLISTE_BACKUP_INTERVAL", "value", v, "error", err)
			os.Exit(1)
		}
		backupInterval = d
	}
	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("PACKLISTE_S3_ENDPOINT"),
			Bucket:    os.Getenv("PACKLISTE_S3_BUCKET"),
			Region:    os.Getenv("PACKLISTE_S3_REGION"),
			AccessKey: os.Getenv("PACKLISTE_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("PACKLISTE_S3_SECRET_KEY"),
		},
		DBPath:   dbPath,
		Interval: backupInterval,
	}, db, logger.With("component", "backup"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backupMgr.Start(ctx)
	defer backupMgr.Stop()

	go cleanupExpired(ctx, srv, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("packliste running", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// cleanupExpired prunes expired reset codes and rate-limit buckets hourly.
func cleanupExpired(ctx context.Context, srv *server.Server, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := srv.LoginCodeStore().DeleteExpired(); err != nil {
				logger.Warn("login code cleanup failed", "error", err)
			}
			srv.RateLimiter().Cleanup()
		}
	}
}
