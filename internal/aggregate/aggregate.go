// Package aggregate derives presentation state from raw history. Every
// invocation recomputes the full retention window from the records it
// is given; nothing incremental is persisted, so a corrected history
// file changes the output on the next run without migration.
package aggregate

import (
	"time"

	"github.com/mhemmati/statuswatch/internal/domain"
)

const DefaultRetentionDays = 90

// classify folds definite sample counts into a bucket status. The rule
// is deliberately coarse: a bucket is down only when at least half of
// its definite samples are down, so a single flaky probe in a busy hour
// reads as degraded, not as an outage.
func classify(total, down, degraded int) domain.Status {
	switch {
	case total == 0:
		return domain.StatusNoData
	case down == 0 && degraded == 0:
		return domain.StatusUp
	case down == 0:
		return domain.StatusDegraded
	case down*2 >= total:
		return domain.StatusDown
	default:
		return domain.StatusDegraded
	}
}

func uptimePct(total, down int) *float64 {
	if total == 0 {
		return nil
	}
	pct := float64(total-down) / float64(total) * 100
	return &pct
}

type tally struct {
	total, down, degraded int
	sumMS, measured       int
}

func (t *tally) add(r domain.CheckResult) {
	if !r.Status.Definite() {
		return
	}
	t.total++
	switch r.Status {
	case domain.StatusDown:
		t.down++
	case domain.StatusDegraded:
		t.degraded++
	}
	if r.ResponseTimeMS >= 0 {
		t.sumMS += r.ResponseTimeMS
		t.measured++
	}
}

func (t *tally) avgMS() int {
	if t.measured == 0 {
		return 0
	}
	return t.sumMS / t.measured
}

// HourBuckets aggregates one check's records of one UTC day into 24
// hourly buckets. Hours without definite samples read as nodata.
func HourBuckets(records []domain.CheckResult, checkID string, day time.Time) []domain.HourBucket {
	day = day.UTC()
	var hours [24]tally
	for _, r := range records {
		ts := r.Timestamp.UTC()
		if r.CheckID != checkID || !sameDay(ts, day) {
			continue
		}
		hours[ts.Hour()].add(r)
	}

	out := make([]domain.HourBucket, 24)
	for h, t := range hours {
		out[h] = domain.HourBucket{
			Hour:          h,
			Status:        classify(t.total, t.down, t.degraded),
			UptimePct:     uptimePct(t.total, t.down),
			AvgResponseMS: t.avgMS(),
			Samples:       t.total,
		}
	}
	return out
}

// DayBucketFor rolls one check's day up from its hourly statuses: each
// definite hour casts one vote under the same classification rule, so a
// short burst of failures cannot dominate an otherwise healthy day.
// Response averages and sample counts still come from the raw samples.
func DayBucketFor(records []domain.CheckResult, checkID string, day time.Time) domain.DayBucket {
	day = day.UTC()
	hours := HourBuckets(records, checkID, day)

	var hTotal, hDown, hDegraded int
	for _, hb := range hours {
		if !hb.Status.Definite() {
			continue
		}
		hTotal++
		switch hb.Status {
		case domain.StatusDown:
			hDown++
		case domain.StatusDegraded:
			hDegraded++
		}
	}

	var raw tally
	for _, r := range records {
		if r.CheckID == checkID && sameDay(r.Timestamp.UTC(), day) {
			raw.add(r)
		}
	}

	return domain.DayBucket{
		Date:          day.Format("2006-01-02"),
		Status:        classify(hTotal, hDown, hDegraded),
		UptimePct:     uptimePct(hTotal, hDown),
		AvgResponseMS: raw.avgMS(),
		Samples:       raw.total,
	}
}

// OverallOf folds per-check statuses into one: the worst definite
// status wins; nodata checks carry no vote unless every check is nodata.
func OverallOf(statuses []domain.Status) domain.Status {
	overall := domain.StatusNoData
	for _, s := range statuses {
		if s.Definite() {
			overall = domain.Worse(overall, s)
		}
	}
	return overall
}

func overallLabel(s domain.Status) string {
	switch s {
	case domain.StatusUp:
		return "All Components Operational"
	case domain.StatusDegraded:
		return "Degraded Performance"
	case domain.StatusDown:
		return "Partial Outage"
	default:
		return "No Data"
	}
}

// BuildSummary produces the renderer handoff for the retention window
// ending at now (UTC days, oldest first).
func BuildSummary(records []domain.CheckResult, defs []domain.CheckDefinition, now time.Time, retentionDays int) domain.Summary {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	days := make([]time.Time, 0, retentionDays)
	dates := make([]string, 0, retentionDays)
	for i := retentionDays - 1; i >= 0; i-- {
		d := today.AddDate(0, 0, -i)
		days = append(days, d)
		dates = append(dates, d.Format("2006-01-02"))
	}

	checks := make([]domain.CheckSummary, 0, len(defs))
	currents := make([]domain.Status, 0, len(defs))
	var lastChecked *time.Time

	for _, def := range defs {
		cs := domain.CheckSummary{
			ID:               def.ID,
			Name:             def.Name,
			Description:      def.Description,
			Note:             def.Note,
			CurrentStatus:    domain.StatusNoData,
			LatestResponseMS: domain.NotMeasured,
		}
		for _, day := range days {
			cs.Days = append(cs.Days, DayBucketFor(records, def.ID, day))
		}

		if latest := latestDefinite(records, def.ID); latest != nil {
			ts := latest.Timestamp.UTC()
			cs.CurrentStatus = latest.Status
			cs.LatestTimestamp = &ts
			cs.LatestResponseMS = latest.ResponseTimeMS
			cs.LatestMessage = latest.Message
			if lastChecked == nil || ts.After(*lastChecked) {
				lastChecked = &ts
			}
		}

		checks = append(checks, cs)
		currents = append(currents, cs.CurrentStatus)
	}

	overallDays := make([]domain.OverallDay, 0, len(days))
	for i, date := range dates {
		statuses := make([]domain.Status, 0, len(checks))
		for _, cs := range checks {
			statuses = append(statuses, cs.Days[i].Status)
		}
		overallDays = append(overallDays, domain.OverallDay{Date: date, Status: OverallOf(statuses)})
	}

	overall := OverallOf(currents)
	return domain.Summary{
		GeneratedAt:  now,
		Overall:      overall,
		OverallLabel: overallLabel(overall),
		LastChecked:  lastChecked,
		Dates:        dates,
		OverallDays:  overallDays,
		Checks:       checks,
	}
}

func latestDefinite(records []domain.CheckResult, checkID string) *domain.CheckResult {
	var latest *domain.CheckResult
	for i := range records {
		r := &records[i]
		if r.CheckID != checkID || !r.Status.Definite() {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	return latest
}

func sameDay(ts, day time.Time) bool {
	return ts.Year() == day.Year() && ts.Month() == day.Month() && ts.Day() == day.Day()
}

// PerCheckStatuses extracts the current per-check status map used by
// the transition detector.
func PerCheckStatuses(s domain.Summary) map[string]domain.Status {
	out := make(map[string]domain.Status, len(s.Checks))
	for _, c := range s.Checks {
		out[c.ID] = c.CurrentStatus
	}
	return out
}
