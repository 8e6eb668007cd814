package health

import (
	"log"
	"sync"
	"time"
)

// emergencyStreak is the failure streak at which the six-hour emergency
// re-check arms itself.
const emergencyStreak = 3

// Monitor records run outcomes with a persisted failure streak, so the
// bot's health survives restarts.
type Monitor struct {
	mu        sync.Mutex
	state     *State
	filePath  string
	maxErrors int
}

// NewMonitor creates a Monitor, loading or initializing state from disk.
func NewMonitor(filePath string, maxErrors int) (*Monitor, error) {
	state, err := LoadState(filePath)
	if err != nil {
		return nil, err
	}
	m := &Monitor{state: state, filePath: filePath, maxErrors: maxErrors}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// GetState returns a copy of the current health state.
func (m *Monitor) GetState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.state
}

// MaxErrors returns the escalation threshold.
func (m *Monitor) MaxErrors() int { return m.maxErrors }

// RecordSuccess clears the failure streak.
func (m *Monitor) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.LastSuccessAt = time.Now()
	m.state.ErrorStreak = 0
	m.state.TotalRuns++

	if err := m.save(); err != nil {
		log.Printf("[ERROR] failed to save health state: %v", err)
	}
}

// RecordFailure bumps the failure streak. It returns the new streak and
// whether the escalation threshold has been reached.
func (m *Monitor) RecordFailure(runErr error) (streak int, escalate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.LastErrorAt = time.Now()
	m.state.LastError = runErr.Error()
	m.state.ErrorStreak++
	m.state.TotalRuns++
	m.state.TotalErrors++

	if err := m.save(); err != nil {
		log.Printf("[ERROR] failed to save health state: %v", err)
	}

	return m.state.ErrorStreak, m.state.ErrorStreak >= m.maxErrors
}

// NeedsEmergencyCheck reports whether the failure streak is high enough
// that the emergency re-check should fire.
func (m *Monitor) NeedsEmergencyCheck() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ErrorStreak >= emergencyStreak
}

func (m *Monitor) save() error {
	return SaveState(m.filePath, m.state)
}
