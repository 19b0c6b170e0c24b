// Package store persists check results as append-only JSONL files
// partitioned by UTC calendar day (data/YYYY/MM/YYYY-MM-DD.jsonl).
// Partitions are never rewritten; a record, once appended, is immutable.
package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/mhemmati/statuswatch/internal/domain"
)

type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per partition; serializes concurrent appends
}

func New(dir string) *Store {
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) partition(day time.Time) string {
	day = day.UTC()
	return filepath.Join(s.dir, day.Format("2006"), day.Format("01"), day.Format("2006-01-02")+".jsonl")
}

func (s *Store) partitionLock(path string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.locks[path]
	if l == nil {
		l = &sync.Mutex{}
		s.locks[path] = l
	}
	return l
}

// Append writes one record to its day partition. The write is a single
// O_APPEND line; it never overwrites previous lines.
func (s *Store) Append(ctx context.Context, r domain.CheckResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	r.Timestamp = r.Timestamp.UTC().Truncate(time.Second)

	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	path := s.partition(r.Timestamp)
	lock := s.partitionLock(path)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create partition dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open partition: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append to %s: %w", path, err)
	}
	return nil
}

// AppendAll appends every record, collecting errors rather than
// stopping at the first: partial appends from a crashed batch stay
// valid, so the surviving writes are worth finishing.
func (s *Store) AppendAll(ctx context.Context, rs []domain.CheckResult) error {
	var errs error
	for _, r := range rs {
		errs = multierr.Append(errs, s.Append(ctx, r))
	}
	return errs
}

// ReadDay returns every record in one UTC day partition, in file order.
// A missing partition is not an error: it reads as an empty day.
func (s *Store) ReadDay(ctx context.Context, day time.Time) ([]domain.CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.partition(day)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open partition %s: %w", path, err)
	}
	defer f.Close()

	var out []domain.CheckResult
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var r domain.CheckResult
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("corrupt record in %s: %w", path, err)
		}
		out = append(out, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read partition %s: %w", path, err)
	}
	return out, nil
}

// ReadWindow returns all records with from <= timestamp < to across all
// checks, ordered by timestamp (stable for equal timestamps).
func (s *Store) ReadWindow(ctx context.Context, from, to time.Time) ([]domain.CheckResult, error) {
	from, to = from.UTC(), to.UTC()
	var out []domain.CheckResult
	for day := from.Truncate(24 * time.Hour); day.Before(to); day = day.Add(24 * time.Hour) {
		recs, err := s.ReadDay(ctx, day)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			if r.Timestamp.Before(from) || !r.Timestamp.Before(to) {
				continue
			}
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// ReadRange returns one check's records with from <= timestamp < to,
// in timestamp order.
func (s *Store) ReadRange(ctx context.Context, checkID string, from, to time.Time) ([]domain.CheckResult, error) {
	all, err := s.ReadWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var out []domain.CheckResult
	for _, r := range all {
		if r.CheckID == checkID {
			out = append(out, r)
		}
	}
	return out, nil
}
