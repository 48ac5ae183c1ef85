// Package alert converts close-object detections into suppressed,
// user-facing announcements.
//
// The cooldown tracker is the only owner of the per-label announcement
// ledger. The orchestrator never touches the timestamps directly; it
// asks TryEmit and the tracker applies the update exactly once per
// emitted alert.
package alert

import (
	"fmt"
	"sync"
	"time"

	"github.com/visionmate/go-visionmate/pkg/detect"
)

// DefaultCooldown is the minimum interval between two announcements
// for the same label.
const DefaultCooldown = 5 * time.Second

// messages maps labels to spoken alert text.
var messages = map[detect.Label]string{
	detect.LabelPerson: "Person ahead",
	detect.LabelChair:  "Chair detected",
	detect.LabelCar:    "Car nearby",
	detect.LabelDoor:   "Door detected",
}

// Message returns the spoken alert text for a label.
func Message(label detect.Label) string {
	if msg, ok := messages[label]; ok {
		return msg
	}
	return fmt.Sprintf("%s detected", label)
}

// CooldownTracker enforces the minimum re-announcement interval per
// label. It persists for the process lifetime.
type CooldownTracker struct {
	mu       sync.Mutex
	last     map[detect.Label]time.Time
	cooldown time.Duration
	now      func() time.Time
}

// Option configures a CooldownTracker.
type Option func(*CooldownTracker)

// WithCooldown sets the cooldown window.
func WithCooldown(d time.Duration) Option {
	return func(t *CooldownTracker) {
		t.cooldown = d
	}
}

// WithClock sets the time source. Used by tests to simulate time.
func WithClock(now func() time.Time) Option {
	return func(t *CooldownTracker) {
		t.now = now
	}
}

// NewCooldownTracker creates a tracker with the default window.
func NewCooldownTracker(opts ...Option) *CooldownTracker {
	t := &CooldownTracker{
		last:     make(map[detect.Label]time.Time),
		cooldown: DefaultCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TryEmit reports whether an alert for label may be announced now.
// On true the ledger is updated; a suppressed candidate never mutates
// state. Successive true results for the same label are always
// separated by at least the cooldown window.
func (t *CooldownTracker) TryEmit(label detect.Label) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[label]; ok && now.Sub(last) < t.cooldown {
		return false
	}

	t.last[label] = now
	return true
}

// LastEmitted returns the time of the last emitted alert for label,
// or false if none was emitted yet.
func (t *CooldownTracker) LastEmitted(label detect.Label) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[label]
	return last, ok
}

// Reset clears the ledger.
func (t *CooldownTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = make(map[detect.Label]time.Time)
}
