package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mhemmati/statuswatch/internal/config"
	"github.com/mhemmati/statuswatch/internal/httpapi"
	"github.com/mhemmati/statuswatch/internal/logging"
	"github.com/mhemmati/statuswatch/internal/store"
)

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
	api := httpapi.NewServer(logger, st, cfg.Checks, cfg.Settings.RetentionDays)

	logger.Info("api_listen", zap.String("addr", cfg.Settings.Addr))
	if err := http.ListenAndServe(cfg.Settings.Addr, api.Router()); err != nil {
		log.Fatal(err)
	}
}
