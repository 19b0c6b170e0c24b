// Package httpapi serves the read-only status API. It exposes the same
// summary artifact the static renderer consumes, recomputed from raw
// history on every request.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mhemmati/statuswatch/internal/aggregate"
	"github.com/mhemmati/statuswatch/internal/domain"
	"github.com/mhemmati/statuswatch/internal/httpapi/middleware"
)

// HistoryStore is the read side of the result store.
type HistoryStore interface {
	ReadWindow(ctx context.Context, from, to time.Time) ([]domain.CheckResult, error)
	ReadRange(ctx context.Context, checkID string, from, to time.Time) ([]domain.CheckResult, error)
}

type Server struct {
	Logger        *zap.Logger
	History       HistoryStore
	Checks        []domain.CheckDefinition
	RetentionDays int

	// requests per minute per client IP; 0 disables limiting
	RateLimit int
}

func NewServer(l *zap.Logger, history HistoryStore, checks []domain.CheckDefinition, retentionDays int) *Server {
	if retentionDays <= 0 {
		retentionDays = aggregate.DefaultRetentionDays
	}
	return &Server{
		Logger:        l,
		History:       history,
		Checks:        checks,
		RetentionDays: retentionDays,
		RateLimit:     120,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)
	r.Use(middleware.RateLimit(s.RateLimit, s.RateLimit/2))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/summary", s.handleSummary)
	r.Get("/api/checks/{id}/days/{date}", s.handleCheckDay)

	return r
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -s.RetentionDays)

	records, err := s.History.ReadWindow(r.Context(), from, now.Add(time.Second))
	if err != nil {
		s.Logger.Error("summary_read_error", zap.Error(err))
		http.Error(w, "history read error", http.StatusInternalServerError)
		return
	}

	summary := aggregate.BuildSummary(records, s.Checks, now, s.RetentionDays)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

func (s *Server) handleCheckDay(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.knownCheck(id) {
		http.Error(w, "unknown check", http.StatusNotFound)
		return
	}

	day, err := time.ParseInLocation("2006-01-02", chi.URLParam(r, "date"), time.UTC)
	if err != nil {
		http.Error(w, "bad date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	records, err := s.History.ReadRange(r.Context(), id, day, day.AddDate(0, 0, 1))
	if err != nil {
		s.Logger.Error("check_day_read_error", zap.String("check_id", id), zap.Error(err))
		http.Error(w, "history read error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"check_id": id,
		"date":     day.Format("2006-01-02"),
		"hours":    aggregate.HourBuckets(records, id, day),
		"samples":  records,
	})
}

func (s *Server) knownCheck(id string) bool {
	for _, c := range s.Checks {
		if c.ID == id {
			return true
		}
	}
	return false
}
