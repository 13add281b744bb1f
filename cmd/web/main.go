package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"f0oster/userreport/config"
	"f0oster/userreport/database"
	"f0oster/userreport/logging"
	"f0oster/userreport/snapshot"
	"f0oster/userreport/web"
)

func main() {
	addr := flag.String("addr", ":8080", "Listen address for web server (e.g., :8080)")
	envFile := flag.String("env", "settings.env", "Settings file loaded into the environment, relative to the executable")
	flag.Parse()

	cfg, err := config.LoadEnvConfig(*envFile, config.WithoutDirectory())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var runs web.RunLister
	if cfg.Archive.DSN != "" {
		pool, err := database.Connect(ctx, cfg.Archive.DSN)
		if err != nil {
			logger.Error("failed to connect to archive", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Error("failed to migrate archive", "error", err)
			os.Exit(1)
		}
		runs = database.NewDBClient(pool, logger)
	} else {
		logger.Warn("ARCHIVE_DSN is not set, run history is unavailable")
	}

	webServer := web.NewServer(runs, snapshot.NewStore(cfg.Snapshot.Dir, logger), *addr, logger)
	if err := webServer.Start(ctx); err != nil {
		logger.Error("web server error", "error", err)
		os.Exit(1)
	}
}
