package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/qbbc/clubadmin/internal/database"
	"github.com/qbbc/clubadmin/internal/logging"
	"github.com/qbbc/clubadmin/internal/seed"
	"github.com/qbbc/clubadmin/internal/server"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(os.Getenv("CLUBADMIN_LOG_LEVEL"))

	port := os.Getenv("CLUBADMIN_PORT")
	if port == "" {
		port = "8080"
	}
	dbPath := os.Getenv("CLUBADMIN_DB_PATH")
	if dbPath == "" {
		dbPath = "clubadmin.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, logger)

	seedSrc := seed.NewSource(os.Getenv("CLUBADMIN_SEED_URL"), logger.With("component", "seed"))
	if err := seed.Apply(seedSrc, srv.MemberStore(), srv.AdminAccountStore()); err != nil {
		logger.Error("seed stores", "error", err)
		os.Exit(1)
	}

	// Periodic cleanup of expired sessions and stale rate-limit entries.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := srv.SessionStore().DeleteExpired(); err != nil {
				logger.Error("delete expired sessions", "error", err)
			} else if n > 0 {
				logger.Debug("deleted expired sessions", "count", n)
			}
			srv.RateLimiter().Cleanup()
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("clubadmin listening", "port", port, "db", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
