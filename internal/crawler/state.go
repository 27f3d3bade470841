package crawler

import (
	"sync"
	"time"
)

// State tracks run progress. Safe for concurrent reads while a harvest is
// in flight; the HTTP status endpoint polls it.
type State struct {
	mu                sync.RWMutex
	isRunning         bool
	startTime         time.Time
	currentSource     string
	harvestedCount    int64
	errorCount        int64
	lastProcessedTime time.Time
}

// NewState creates a new run state.
func NewState() *State {
	return &State{}
}

// IsRunning returns whether a harvest is in flight.
func (s *State) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// StartTime returns when the current or last run started.
func (s *State) StartTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startTime
}

// CurrentSource returns the source currently being harvested.
func (s *State) CurrentSource() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSource
}

// HarvestedCount returns the number of posts persisted this run.
func (s *State) HarvestedCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.harvestedCount
}

// ErrorCount returns the number of item failures this run.
func (s *State) ErrorCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorCount
}

// LastProcessedTime returns when an item last completed.
func (s *State) LastProcessedTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastProcessedTime
}

// start marks a run as begun. Returns false when one is already in flight.
func (s *State) start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return false
	}
	s.isRunning = true
	s.startTime = time.Now()
	s.currentSource = ""
	s.harvestedCount = 0
	s.errorCount = 0
	return true
}

// stop marks the run as finished.
func (s *State) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isRunning = false
	s.currentSource = ""
}

// setCurrentSource records the source being harvested.
func (s *State) setCurrentSource(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentSource = name
}

// addHarvested bumps the persisted count.
func (s *State) addHarvested(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.harvestedCount += n
	s.lastProcessedTime = time.Now()
}

// addError bumps the failure count.
func (s *State) addError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorCount++
	s.lastProcessedTime = time.Now()
}
