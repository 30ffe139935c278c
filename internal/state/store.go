// internal/state/store.go
package state

import (
	"sort"
	"sync"
	"time"
)

// DefaultID addresses the shared counter/timer when a formula omits the id.
const DefaultID = "default"

// Timer is the persisted form of one named timer.
type Timer struct {
	StartMs int64
	StopMs  int64 // 0 while running or never stopped
	Running bool
}

// Store holds named counters and timers for one engine.
// Every method is safe for concurrent use; sequences of calls are not atomic.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	counters map[string]int64
	timers   map[string]Timer
}

// New returns an empty store. A nil clock means time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:      now,
		counters: make(map[string]int64),
		timers:   make(map[string]Timer),
	}
}

func key(id string) string {
	if id == "" {
		return DefaultID
	}
	return id
}

// ---- counters ----

func (s *Store) Counter(id string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key(id)]
}

func (s *Store) Inc(id string) int64 {
	return s.add(id, 1)
}

func (s *Store) Dec(id string) int64 {
	return s.add(id, -1)
}

func (s *Store) add(id string, d int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(id)
	s.counters[k] += d
	return s.counters[k]
}

func (s *Store) SetCounter(id string, v int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key(id)] = v
	return v
}

func (s *Store) ResetCounter(id string) {
	s.SetCounter(id, 0)
}

// ---- timers ----

// StartTimer starts a stopped or unknown timer from now.
// Starting a running timer changes nothing.
func (s *Store) StartTimer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(id)
	if t, ok := s.timers[k]; ok && t.Running {
		return
	}
	s.timers[k] = Timer{StartMs: s.now().UnixMilli(), Running: true}
}

// StopTimer freezes a running timer at now.
func (s *Store) StopTimer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(id)
	t, ok := s.timers[k]
	if !ok || !t.Running {
		return
	}
	t.StopMs = s.now().UnixMilli()
	t.Running = false
	s.timers[k] = t
}

// ResetTimer forgets the timer; it then reads as zero and not running.
func (s *Store) ResetTimer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, key(id))
}

// Elapsed returns seconds since start, measured to now while running and to
// the stop time otherwise.
func (s *Store) Elapsed(id string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[key(id)]
	if !ok {
		return 0
	}
	end := t.StopMs
	if t.Running {
		end = s.now().UnixMilli()
	}
	if end < t.StartMs {
		return 0
	}
	return float64(end-t.StartMs) / 1000
}

func (s *Store) TimerRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[key(id)].Running
}

// ---- snapshots ----

// Counters returns a copy of every counter.
func (s *Store) Counters() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		out[k] = v
	}
	return out
}

// TimerIDs returns the known timer ids, sorted.
func (s *Store) TimerIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.timers))
	for k := range s.timers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
