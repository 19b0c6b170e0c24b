package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mhemmati/statuswatch/internal/aggregate"
	"github.com/mhemmati/statuswatch/internal/config"
	"github.com/mhemmati/statuswatch/internal/domain"
	"github.com/mhemmati/statuswatch/internal/logging"
	"github.com/mhemmati/statuswatch/internal/notify"
	"github.com/mhemmati/statuswatch/internal/store"
	"github.com/mhemmati/statuswatch/internal/transition"
)

// summary recomputes the renderer handoff from raw history, detects an
// overall transition against the persisted state and notifies on it.
// Every failure is loud: a broken summary run must never look like a
// quiet healthy one.
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

	fatal := func(msg string, err error) {
		logger.Error(msg, zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	ctx := context.Background()
	now := time.Now().UTC()
	st := store.New(cfg.Settings.DataDir)

	records, err := st.ReadWindow(ctx, now.AddDate(0, 0, -cfg.Settings.RetentionDays), now.Add(time.Second))
	if err != nil {
		fatal("history_read_failed", err)
	}

	summary := aggregate.BuildSummary(records, cfg.Checks, now, cfg.Settings.RetentionDays)
	if err := writeSummary(cfg.Settings.SiteDir, summary); err != nil {
		fatal("summary_write_failed", err)
	}
	logger.Info("summary_written",
		zap.String("overall", string(summary.Overall)),
		zap.Int("checks", len(summary.Checks)),
		zap.Int("records", len(records)),
	)

	prev, hasPrev, err := transition.Load(cfg.Settings.StateFile)
	if err != nil {
		fatal("state_load_failed", err)
	}
	cur := transition.State{
		Overall:   summary.Overall,
		PerCheck:  aggregate.PerCheckStatuses(summary),
		UpdatedAt: now,
	}

	if ev := transition.Detect(prev, hasPrev, cur); ev != nil {
		logger.Info("transition_detected",
			zap.String("kind", string(ev.Kind)),
			zap.Strings("affected", ev.AffectedChecks),
			zap.String("dedup_key", ev.DedupKey),
		)
		// Notify before persisting state: a crash in between re-sends
		// the event on the next run rather than losing it.
		if err := notifiers(cfg).Send(ctx, *ev); err != nil {
			fatal("notify_failed", err)
		}
	}

	if err := transition.Save(cfg.Settings.StateFile, cur); err != nil {
		fatal("state_save_failed", err)
	}
	logger.Info("summary_done")
}

// writeSummary replaces site/summary.json atomically so a renderer
// reading mid-run never sees a truncated file.
func writeSummary(siteDir string, s domain.Summary) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(siteDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(siteDir, "summary.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func notifiers(cfg *config.Config) notify.Multi {
	n := cfg.Settings.Notification
	var m notify.Multi
	if s := notify.NewSlack(os.Getenv(n.SlackWebhookEnv)); s != nil {
		m = append(m, s)
	}
	if g := notify.NewGitHub(n.GitHubRepo, n.IssueNumber, os.Getenv(n.GitHubTokenEnv)); g != nil {
		m = append(m, g)
	}
	if k := notify.NewKafka(n.KafkaBrokers, n.KafkaTopic); k != nil {
		m = append(m, k)
	}
	return m
}
