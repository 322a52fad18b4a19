package cron

import (
	"context"
	"sync"
	"time"
)

// Job is one unit of periodic maintenance.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry runs Job at most once per Every. A zero Every runs on every tick.
type Entry struct {
	Job   Job
	Every time.Duration
}

// Schedule decides which jobs are due on a tick. Last-success times live in
// process memory, so a fresh replica runs everything on its first cycle.
type Schedule struct {
	mu      sync.Mutex
	entries []Entry
	last    map[string]time.Time
}

func NewSchedule(entries ...Entry) *Schedule {
	s := &Schedule{last: make(map[string]time.Time)}
	for _, e := range entries {
		if e.Job != nil {
			s.entries = append(s.entries, e)
		}
	}
	return s
}

// Due returns, in registration order, the jobs whose interval has elapsed.
func (s *Schedule) Due(now time.Time) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []Job
	for _, e := range s.entries {
		last, ran := s.last[e.Job.Name()]
		if !ran || now.Sub(last) >= e.Every {
			due = append(due, e.Job)
		}
	}
	return due
}

// Succeeded records a successful run. Failed jobs are not recorded and are
// retried on the next tick.
func (s *Schedule) Succeeded(name string, at time.Time) {
	s.mu.Lock()
	s.last[name] = at
	s.mu.Unlock()
}

func (s *Schedule) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
