package recovery

import (
	"log/slog"
	"sync"
)

// Manager tracks degraded features and capture retry budgets across
// loop cycles. The orchestrator consults it to skip disabled
// subsystems and to decide when a degraded feature should be probed
// again.
type Manager struct {
	mu              sync.Mutex
	degraded        map[Subsystem]bool
	degradedAtCycle map[Subsystem]uint64
	captureAttempts int
	reprobeInterval uint64
	startup         bool
	logger          *slog.Logger
}

// NewManager creates a manager. reprobeInterval is the number of loop
// cycles between probes of a degraded feature.
func NewManager(reprobeInterval int) *Manager {
	if reprobeInterval < 1 {
		reprobeInterval = 1
	}
	return &Manager{
		degraded:        make(map[Subsystem]bool),
		degradedAtCycle: make(map[Subsystem]uint64),
		reprobeInterval: uint64(reprobeInterval),
		startup:         true,
		logger:          slog.Default().With("component", "recovery.manager"),
	}
}

// MarkRunning ends the startup phase. Model failures after this point
// classify as degrade rather than fatal.
func (m *Manager) MarkRunning() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startup = false
}

// Handle classifies a failure and updates bookkeeping.
// The returned decision is what the orchestrator acts on.
func (m *Manager) Handle(sub Subsystem, err error, cycle uint64) Decision {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := Classify(sub, err, m.startup)

	switch d.Kind {
	case KindRetry:
		if sub == SubsystemCapture {
			m.captureAttempts++
			if m.captureAttempts > d.Attempts {
				// Retry budget exhausted: degrade and keep polling.
				d = Decision{Kind: KindDegrade}
				m.degradeLocked(sub, cycle, err)
			}
		}
	case KindDegrade:
		m.degradeLocked(sub, cycle, err)
	case KindFatal:
		m.logger.Error("fatal failure",
			"subsystem", string(sub),
			"error", err,
		)
	}

	return d
}

// degradeLocked records a feature as disabled, logging only on the
// transition so notices are not repeated. Caller holds m.mu.
func (m *Manager) degradeLocked(sub Subsystem, cycle uint64, err error) {
	if m.degraded[sub] {
		return
	}
	m.degraded[sub] = true
	m.degradedAtCycle[sub] = cycle
	m.logger.Warn("feature degraded",
		"subsystem", string(sub),
		"error", err,
	)
}

// Degraded reports whether a subsystem is currently disabled.
func (m *Manager) Degraded(sub Subsystem) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded[sub]
}

// AnyDegraded reports whether any feature is disabled.
func (m *Manager) AnyDegraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.degraded {
		if v {
			return true
		}
	}
	return false
}

// DegradedSet returns the currently disabled subsystems.
func (m *Manager) DegradedSet() []Subsystem {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Subsystem
	for sub, v := range m.degraded {
		if v {
			out = append(out, sub)
		}
	}
	return out
}

// ShouldReprobe reports whether a degraded subsystem is due for a
// recovery probe at the given cycle.
func (m *Manager) ShouldReprobe(sub Subsystem, cycle uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.degraded[sub] {
		return false
	}
	since := cycle - m.degradedAtCycle[sub]
	return since > 0 && since%m.reprobeInterval == 0
}

// MarkRecovered clears the degraded flag after a successful probe.
func (m *Manager) MarkRecovered(sub Subsystem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.degraded[sub] {
		return
	}
	m.degraded[sub] = false
	delete(m.degradedAtCycle, sub)
	if sub == SubsystemCapture {
		m.captureAttempts = 0
	}
	m.logger.Info("feature recovered", "subsystem", string(sub))
}

// CaptureAttempts returns the used capture retry count.
func (m *Manager) CaptureAttempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.captureAttempts
}

// ResetCaptureAttempts clears the capture retry budget after a
// successful read.
func (m *Manager) ResetCaptureAttempts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captureAttempts = 0
}
