/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the cafeteria billing server: configuration,
  dependency wiring, and graceful shutdown.

CONFIGURATION:
  Flags (with environment fallbacks, loaded from .env when present):
    -port            HTTP server port            (PORT, default 8080)
    -db              SQLite database path        (DB_PATH, default comedor.db)
                     Use ":memory:" for an in-memory database
    -close-schedule  Monthly close cron spec     (CLOSE_SCHEDULE)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop the close scheduler, drain active requests
  (30s timeout), close the database, exit.

SEE ALSO:
  - api/server.go: router configuration
  - api/scheduler.go: monthly close runs
*/
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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/comedor/billing-engine/api"
	"github.com/comedor/billing-engine/billing"
	"github.com/comedor/billing-engine/store/sqlite"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "comedor.db"), "SQLite database path")
	closeSchedule := flag.String("close-schedule", envStr("CLOSE_SCHEDULE", api.DefaultCloseSchedule), "monthly close cron schedule")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	handler := api.NewHandler(store, log)
	router := api.NewRouter(handler)

	scheduler := api.NewCloseScheduler(store, billing.NewEngine(store), log, *closeSchedule)
	if err := scheduler.Start(); err != nil {
		log.Fatal("failed to start close scheduler", zap.Error(err))
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.Int("port", *port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}
