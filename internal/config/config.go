package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mhemmati/statuswatch/internal/domain"
)

// Settings are the engine-wide knobs; checks are declared alongside
// them in the same YAML file.
type Settings struct {
	DataDir        string `mapstructure:"data_dir"`
	StateFile      string `mapstructure:"state_file"`
	SiteDir        string `mapstructure:"site_dir"`
	LogDir         string `mapstructure:"log_dir"`
	RetentionDays  int    `mapstructure:"retention_days"`
	SiteTitle      string `mapstructure:"site_title"`
	Concurrency    int    `mapstructure:"concurrency"`
	CheckTimeout   int    `mapstructure:"check_timeout"`   // seconds
	PendingMinutes int    `mapstructure:"pending_minutes"` // default claim window

	Addr string `mapstructure:"addr"` // status API bind address

	Notification Notification `mapstructure:"notification"`
}

type Notification struct {
	SlackWebhookEnv string   `mapstructure:"slack_webhook_env"`
	GitHubRepo      string   `mapstructure:"github_repo"`
	IssueNumber     int      `mapstructure:"issue_number"`
	GitHubTokenEnv  string   `mapstructure:"github_token_env"`
	KafkaBrokers    []string `mapstructure:"kafka_brokers"`
	KafkaTopic      string   `mapstructure:"kafka_topic"`
}

type Config struct {
	Settings Settings                 `mapstructure:"settings"`
	Checks   []domain.CheckDefinition `mapstructure:"checks"`
}

func (s Settings) CheckTimeoutDuration() time.Duration {
	return time.Duration(s.CheckTimeout) * time.Second
}

func (s Settings) PendingWindow() time.Duration {
	return time.Duration(s.PendingMinutes) * time.Minute
}

// Load reads the YAML config at path, applies defaults and environment
// overrides (SW_SETTINGS_DATA_DIR etc.), and validates the check set.
// Any validation failure is fatal for the invocation: no check may run
// on a malformed definition set.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("sw")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("settings.data_dir", "data")
	v.SetDefault("settings.state_file", "data/.state/overall.json")
	v.SetDefault("settings.site_dir", "site")
	v.SetDefault("settings.log_dir", "logs")
	v.SetDefault("settings.retention_days", 90)
	v.SetDefault("settings.site_title", "Status")
	v.SetDefault("settings.concurrency", 4)
	v.SetDefault("settings.check_timeout", 30)
	v.SetDefault("settings.pending_minutes", 30)
	v.SetDefault("settings.addr", "127.0.0.1:8080")
}

var knownTypes = map[domain.CheckType]bool{
	domain.TypeHTTP:      true,
	domain.TypeRetrieve:  true,
	domain.TypeKnowledge: true,
	domain.TypeWebhook:   true,
}

func (c *Config) validate() error {
	if len(c.Checks) == 0 {
		return fmt.Errorf("config: no checks defined")
	}

	byID := make(map[string]domain.CheckDefinition, len(c.Checks))
	for _, def := range c.Checks {
		if def.ID == "" {
			return fmt.Errorf("config: check with empty id")
		}
		if _, dup := byID[def.ID]; dup {
			return fmt.Errorf("config: duplicate check id %q", def.ID)
		}
		if !knownTypes[def.Type] {
			return fmt.Errorf("config: check %q has unknown type %q", def.ID, def.Type)
		}
		byID[def.ID] = def
	}

	for _, def := range c.Checks {
		if def.DependsOn == "" {
			continue
		}
		if def.DependsOn == def.ID {
			return fmt.Errorf("config: check %q depends on itself", def.ID)
		}
		if _, ok := byID[def.DependsOn]; !ok {
			return fmt.Errorf("config: check %q depends on unknown check %q", def.ID, def.DependsOn)
		}
	}

	// depends_on edges must form a forest; walk each chain and fail on
	// the first repeated node.
	for _, def := range c.Checks {
		seen := map[string]bool{def.ID: true}
		for cur := def.DependsOn; cur != ""; cur = byID[cur].DependsOn {
			if seen[cur] {
				return fmt.Errorf("config: dependency cycle through check %q", cur)
			}
			seen[cur] = true
		}
	}
	return nil
}
