package domain

// Status classifies a single probe sample or a derived bucket.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
	StatusNoData   Status = "nodata"
)

// severity order: down > degraded > up > nodata.
var severity = map[Status]int{
	StatusDown:     3,
	StatusDegraded: 2,
	StatusUp:       1,
	StatusNoData:   0,
}

func (s Status) Severity() int { return severity[s] }

// Definite reports whether the status is a real observation
// (nodata buckets carry no vote).
func (s Status) Definite() bool { return s == StatusUp || s == StatusDegraded || s == StatusDown }

// Healthy is the transition-detector notion of health: only "up" counts.
func (s Status) Healthy() bool { return s == StatusUp }

// Worse returns the more severe of two statuses.
func Worse(a, b Status) Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// CheckType is the closed set of supported probe strategies.
type CheckType string

const (
	TypeHTTP      CheckType = "http"
	TypeRetrieve  CheckType = "retrieve"
	TypeKnowledge CheckType = "knowledge"
	TypeWebhook   CheckType = "webhook"
)

// TwoPhase reports whether checks of this type span two execution cycles.
func (t CheckType) TwoPhase() bool { return t == TypeKnowledge || t == TypeWebhook }

// CyclePhase tags which half of a two-phase check produced a result.
type CyclePhase string

const (
	PhaseStart  CyclePhase = "start"
	PhaseVerify CyclePhase = "verify"
)
