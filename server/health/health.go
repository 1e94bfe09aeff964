// Package health tracks the liveness of a video connection.
package health

import (
	"sync"
	"time"

	"github.com/tallycam/tallycam/pkg/log"
)

// TimeoutThreshold is how long we tolerate zero successful reads before
// declaring the connection unhealthy. Only applies once at least one read
// has succeeded, so a source that is still warming up is not penalized.
const TimeoutThreshold = 5 * time.Second

// MaxReconnectAttempts is the number of consecutive failures after which the
// caller should give up on the source and switch to a fallback.
const MaxReconnectAttempts = 5

// Status is a snapshot of connection health.
type Status struct {
	Healthy             bool      `json:"healthy"`
	SourceType          string    `json:"sourceType"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastSuccessfulRead  time.Time `json:"lastSuccessfulRead"`
	TimeSinceLastRead   float64   `json:"timeSinceLastRead"` // seconds
}

// Monitor tracks consecutive read failures and the time of the last
// successful read. Safe for concurrent use.
type Monitor struct {
	log log.Log
	now func() time.Time // injectable for tests

	lock                sync.Mutex
	lastSuccessfulRead  time.Time
	consecutiveFailures int
	healthy             bool
}

func NewMonitor(log log.Log) *Monitor {
	return &Monitor{
		log:     log,
		now:     time.Now,
		healthy: true,
	}
}

// NewMonitorWithClock is used by tests to control time.
func NewMonitorWithClock(log log.Log, now func() time.Time) *Monitor {
	m := NewMonitor(log)
	m.now = now
	return m
}

// Success records a successful frame read.
func (m *Monitor) Success() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.consecutiveFailures = 0
	m.healthy = true
	m.lastSuccessfulRead = m.now()
}

// Failure records a failed frame read.
func (m *Monitor) Failure() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.consecutiveFailures++
	m.healthy = false
}

// Reset clears the failure streak and the read history, as if the monitor
// were newly created. Called after switching to a different source, so the
// old source's failures don't count against the new one.
func (m *Monitor) Reset() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.consecutiveFailures = 0
	m.healthy = true
	m.lastSuccessfulRead = time.Time{}
}

// Check evaluates the timeout rule and returns a health snapshot.
// sourceType is informational (eg "device", "network", "file").
func (m *Monitor) Check(sourceType string) Status {
	m.lock.Lock()
	defer m.lock.Unlock()

	var sinceLastRead time.Duration
	timedOut := false
	if !m.lastSuccessfulRead.IsZero() {
		sinceLastRead = m.now().Sub(m.lastSuccessfulRead)
		timedOut = sinceLastRead > TimeoutThreshold
	}

	if timedOut && m.healthy {
		m.healthy = false
		m.log.Warnf("Video connection timeout: %.1fs since last successful read", sinceLastRead.Seconds())
	}

	return Status{
		Healthy:             m.healthy,
		SourceType:          sourceType,
		ConsecutiveFailures: m.consecutiveFailures,
		LastSuccessfulRead:  m.lastSuccessfulRead,
		TimeSinceLastRead:   sinceLastRead.Seconds(),
	}
}

// ShouldReconnect is true when the connection is unhealthy due to at least
// one read failure. A timeout alone (with zero failures) does not trigger
// reconnects; the read loop's own failures do.
func (m *Monitor) ShouldReconnect() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return !m.healthy && m.consecutiveFailures > 0
}

// ExceededMaxAttempts is true once consecutive failures reach MaxReconnectAttempts.
func (m *Monitor) ExceededMaxAttempts() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.consecutiveFailures >= MaxReconnectAttempts
}

// ConsecutiveFailures returns the current failure streak.
func (m *Monitor) ConsecutiveFailures() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.consecutiveFailures
}
