package domain

import "time"

// NotMeasured is the response-time sentinel for samples where no
// meaningful latency exists (transport errors, fail-fast, timeouts).
const NotMeasured = -1

// Params holds the type-specific knobs of a check. Only the fields
// relevant to the check's type are set; the rest stay zero.
type Params struct {
	// http
	URL            string `mapstructure:"url" json:"url,omitempty"`
	Method         string `mapstructure:"method" json:"method,omitempty"`
	ExpectedStatus int    `mapstructure:"expected_status" json:"expected_status,omitempty"`
	ExpectedBody   string `mapstructure:"expected_body" json:"expected_body,omitempty"`

	// retrieve / knowledge / webhook
	BaseURL         string `mapstructure:"base_url" json:"base_url,omitempty"`
	Query           string `mapstructure:"query" json:"query,omitempty"`
	DatasetIDEnv    string `mapstructure:"dataset_id_env" json:"dataset_id_env,omitempty"`
	APIKeyEnv       string `mapstructure:"api_key_env" json:"api_key_env,omitempty"`
	TriggerURL      string `mapstructure:"trigger_url" json:"trigger_url,omitempty"`
	TriggerTokenEnv string `mapstructure:"trigger_token_env" json:"trigger_token_env,omitempty"`

	// common
	TimeoutSeconds int    `mapstructure:"timeout" json:"timeout,omitempty"`
	PendingMinutes int    `mapstructure:"pending_minutes" json:"pending_minutes,omitempty"`
	Retries        int    `mapstructure:"retries" json:"retries,omitempty"`
	PlanTier       string `mapstructure:"plan_tier" json:"plan_tier,omitempty"`
}

// CheckDefinition describes one configured check. Loaded once, immutable
// for the process lifetime.
type CheckDefinition struct {
	ID          string    `mapstructure:"id" json:"id"`
	Name        string    `mapstructure:"name" json:"name"`
	Type        CheckType `mapstructure:"type" json:"type"`
	DependsOn   string    `mapstructure:"depends_on" json:"depends_on,omitempty"`
	Description string    `mapstructure:"description" json:"description,omitempty"`
	Note        string    `mapstructure:"note" json:"note,omitempty"`
	Params      Params    `mapstructure:"params" json:"params,omitempty"`
}

// CheckResult is one appended history record. Immutable once written.
// Start-phase records of two-phase checks additionally carry the pending
// claim (token, ref, deadline) so the claim survives process restarts
// inside the result stream itself.
type CheckResult struct {
	CheckID        string     `json:"check_id"`
	Timestamp      time.Time  `json:"timestamp"`
	Status         Status     `json:"status"`
	ResponseTimeMS int        `json:"response_time_ms"`
	Message        string     `json:"message,omitempty"`
	PendingToken   string     `json:"pending_token,omitempty"`
	PendingRef     string     `json:"pending_ref,omitempty"`
	CyclePhase     CyclePhase `json:"cycle_phase,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
}

// PendingEntry is an unresolved claim that a two-phase check's side
// effect was initiated and must be observed complete before Deadline.
type PendingEntry struct {
	CheckID   string
	CreatedAt time.Time
	Token     string
	Ref       string
	Deadline  time.Time
}

// Expired reports whether the claim's deadline has passed.
func (p PendingEntry) Expired(now time.Time) bool { return !now.Before(p.Deadline) }

// TransitionKind names the two recognized overall-status edges.
type TransitionKind string

const (
	TransitionIncident  TransitionKind = "incident"
	TransitionRecovered TransitionKind = "recovered"
)

// TransitionEvent is the handoff to the notifier. DedupKey lets
// consumers drop at-least-once replays.
type TransitionEvent struct {
	Kind           TransitionKind `json:"kind"`
	AffectedChecks []string       `json:"affected_checks"`
	Timestamp      time.Time      `json:"timestamp"`
	DedupKey       string         `json:"dedup_key"`
}

// HourBucket is a derived per-check hourly aggregate (UTC hour of day).
type HourBucket struct {
	Hour          int      `json:"hour"`
	Status        Status   `json:"status"`
	UptimePct     *float64 `json:"uptime_pct,omitempty"`
	AvgResponseMS int      `json:"avg_response_ms"`
	Samples       int      `json:"samples"`
}

// DayBucket is a derived per-check daily aggregate.
type DayBucket struct {
	Date          string   `json:"date"` // YYYY-MM-DD (UTC)
	Status        Status   `json:"status"`
	UptimePct     *float64 `json:"uptime_pct,omitempty"`
	AvgResponseMS int      `json:"avg_response_ms"`
	Samples       int      `json:"samples"`
}

// CheckSummary is the per-check slice of the renderer handoff.
type CheckSummary struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Description      string      `json:"description,omitempty"`
	Note             string      `json:"note,omitempty"`
	Days             []DayBucket `json:"days"`
	CurrentStatus    Status      `json:"current_status"`
	LatestTimestamp  *time.Time  `json:"latest_timestamp,omitempty"`
	LatestResponseMS int         `json:"latest_response_ms"`
	LatestMessage    string      `json:"latest_message,omitempty"`
}

// OverallDay is one cell of the overall history row.
type OverallDay struct {
	Date   string `json:"date"`
	Status Status `json:"status"`
}

// Summary is the sole artifact handed to the (external) site renderer.
type Summary struct {
	GeneratedAt  time.Time      `json:"generated_at"`
	Overall      Status         `json:"overall"`
	OverallLabel string         `json:"overall_label"`
	LastChecked  *time.Time     `json:"last_checked,omitempty"`
	Dates        []string       `json:"dates"`
	OverallDays  []OverallDay   `json:"overall_days"`
	Checks       []CheckSummary `json:"checks"`
}
