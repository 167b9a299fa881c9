// Package main is the entry point for the statapi server.
// It initializes all dependencies and starts the HTTP server.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"statapi/src/app/server"
	"statapi/src/infra/config"
	"statapi/src/infra/db"
	"statapi/src/infra/logger"
	"statapi/src/infra/metrics"
	"statapi/src/infra/repo"
)

const logFlushTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Printf("fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment variables and .env
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger: console, plus Seq and Sentry when configured
	log, shutdownLogs := logger.Setup(cfg, logger.RequestIDExtractor())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), logFlushTimeout)
		defer cancel()
		if err := shutdownLogs(ctx); err != nil {
			os.Stderr.WriteString("log shutdown: " + err.Error() + "\n")
		}
	}()

	log.Info("starting application",
		"port", cfg.Server.Port,
		"log_level", cfg.Log.Level,
		"databases", cfg.Database.Databases.Names(),
		"default_database", cfg.Database.Default,
		"seq", cfg.Seq.Enabled(),
	)

	// Pools are created lazily on first use per database
	dbs := db.NewRegistry(cfg.Database.Databases, logger.WithComponent(log, "db"), db.WithQueryArgs(cfg.Database.LogQueryArgs))
	defer dbs.Close()

	m := metrics.New(dbs)
	leagues := repo.NewLeagueRepository(logger.WithComponent(log, "repo"))

	srv := server.New(cfg, log, dbs, m, leagues)

	// Run blocks until shutdown signal is received
	if err := srv.Run(); err != nil {
		log.Error("server stopped with error", "error", err)
		return err
	}
	return nil
}
