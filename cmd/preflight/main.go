// cmd/preflight/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mhemmati/statuswatch/internal/config"
	"github.com/mhemmati/statuswatch/internal/domain"
)

// preflight validates the environment before the cron is enabled: every
// env var a configured check references must exist, otherwise the first
// scheduled run would record spurious outages.
func main() {
	configPath := flag.String("config", "statuswatch.yaml", "path to the YAML config")
	flag.Parse()

	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	if err := godotenv.Load(".env"); err == nil {
		ok(".env loaded")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err.Error())
	}
	ok(fmt.Sprintf("config valid (%d checks)", len(cfg.Checks)))

	failed := false
	for _, def := range cfg.Checks {
		for _, name := range requiredEnv(def) {
			v := strings.TrimSpace(os.Getenv(name))
			if v == "" {
				fmt.Fprintf(os.Stderr, "✖ check %q: %s is empty\n", def.ID, name)
				failed = true
				continue
			}
			if strings.ContainsAny(v, " \t") {
				warn(fmt.Sprintf("check %q: %s contains whitespace", def.ID, name))
			}
		}
	}
	if failed {
		fail("missing environment variables")
	}

	n := cfg.Settings.Notification
	if n.SlackWebhookEnv != "" && os.Getenv(n.SlackWebhookEnv) == "" {
		warn(n.SlackWebhookEnv + " is empty — slack notifications disabled")
	}
	if n.GitHubRepo != "" && os.Getenv(n.GitHubTokenEnv) == "" {
		warn(n.GitHubTokenEnv + " is empty — github notifications disabled")
	}
	if len(n.KafkaBrokers) == 0 {
		warn("no kafka brokers configured — kafka publishing disabled")
	}

	ok("preflight passed")
}

// requiredEnv lists the env vars a check reads at execution time.
func requiredEnv(def domain.CheckDefinition) []string {
	var out []string
	add := func(name string) {
		if name != "" {
			out = append(out, name)
		}
	}
	switch def.Type {
	case domain.TypeRetrieve, domain.TypeKnowledge:
		add(def.Params.DatasetIDEnv)
		add(def.Params.APIKeyEnv)
	case domain.TypeWebhook:
		add(def.Params.TriggerTokenEnv)
		add(def.Params.APIKeyEnv)
	default:
		add(def.Params.APIKeyEnv)
	}
	return out
}
