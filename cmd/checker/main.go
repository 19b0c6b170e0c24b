package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mhemmati/statuswatch/internal/config"
	"github.com/mhemmati/statuswatch/internal/logging"
	"github.com/mhemmati/statuswatch/internal/pending"
	"github.com/mhemmati/statuswatch/internal/scheduler"
	"github.com/mhemmati/statuswatch/internal/store"
)

// checker runs one measurement cycle and exits. Scheduling (cron, CI
// timer, systemd timer) lives outside the binary.
func main() {
	configPath := flag.String("config", "statuswatch.yaml", "path to the YAML config")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("no .env file: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Settings.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	st := store.New(cfg.Settings.DataDir)
	claims := pending.New(st, cfg.Settings.PendingWindow())
	runner := scheduler.NewRunner(logger, st, claims,
		cfg.Settings.Concurrency, cfg.Settings.CheckTimeoutDuration())

	logger.Info("checker_start",
		zap.Int("checks", len(cfg.Checks)),
		zap.Int("concurrency", cfg.Settings.Concurrency),
	)

	if err := runner.RunOnce(context.Background(), cfg.Checks); err != nil {
		logger.Error("checker_failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("checker_done")
}
