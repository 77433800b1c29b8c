package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AngelCh415/attribution-etl/internal/models"
)

var ErrRunNotFound = errors.New("store: run not found")

const defaultKeep = 20

// Run is one pipeline execution over [From, To] and everything it produced.
type Run struct {
	ID        string                       `json:"id"`
	From      time.Time                    `json:"from"`
	To        time.Time                    `json:"to"`
	CreatedAt time.Time                    `json:"created_at"`
	Results   []models.AttributionResult   `json:"results"`
	Granular  []models.GranularRow         `json:"granular"`
	SKUs      []models.SKUAttribution      `json:"skus"`
	Samples   []models.InvestigationSample `json:"samples"`
	Summary   models.Summary               `json:"summary"`
}

// RunInfo is a Run without its payload.
type RunInfo struct {
	ID        string    `json:"id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	CreatedAt time.Time `json:"created_at"`
	Orders    int       `json:"orders"`
	Rows      int       `json:"granular_rows"`
}

// NewRun stamps a fresh id and creation time.
func NewRun(from, to time.Time) *Run {
	return &Run{ID: uuid.NewString(), From: from, To: to, CreatedAt: time.Now().UTC()}
}

// MemoryStore keeps the most recent runs. Readers (HTTP handlers) and the
// pipeline writer may run concurrently.
type MemoryStore struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	order []string // oldest first
	keep  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Run), keep: defaultKeep}
}

// Save stores r as the latest run, evicting the oldest beyond the limit.
func (s *MemoryStore) Save(r *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(r.ID)
	s.order = append(s.order, r.ID)
	s.runs[r.ID] = r
	for len(s.order) > s.keep {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *MemoryStore) remove(id string) {
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *MemoryStore) Latest() (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return nil, false
	}
	return s.runs[s.order[len(s.order)-1]], true
}

func (s *MemoryStore) Get(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return r, nil
}

// Runs lists stored runs, newest first.
func (s *MemoryStore) Runs() []RunInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RunInfo, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.runs[s.order[i]]
		out = append(out, RunInfo{ID: r.ID, From: r.From, To: r.To, CreatedAt: r.CreatedAt, Orders: len(r.Results), Rows: len(r.Granular)})
	}
	return out
}

// Query returns the latest run's granular rows dated within [from, to]
// that pass f. A zero bound is open.
func (s *MemoryStore) Query(from, to time.Time, f func(models.GranularRow) bool) []models.GranularRow {
	r, ok := s.Latest()
	if !ok {
		return nil
	}
	var out []models.GranularRow
	for _, g := range r.Granular {
		d, err := time.Parse("2006-01-02", g.Date)
		if err != nil {
			continue
		}
		if !from.IsZero() && d.Before(day(from)) {
			continue
		}
		if !to.IsZero() && d.After(day(to)) {
			continue
		}
		if f == nil || f(g) {
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].HourLabel < out[j].HourLabel
	})
	return out
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
