package speech

import (
	"context"
	"sync"
	"time"
)

// MockSpeaker implements Speaker for testing.
// All methods can be customized via function fields.
type MockSpeaker struct {
	// SpeakFunc is called when Speak is invoked.
	// If nil, simulates ~50ms of playback per message, honoring both
	// ctx cancellation and Stop.
	SpeakFunc func(ctx context.Context, text string) error

	// StopFunc is called when Stop is invoked, after the built-in
	// interrupt. If nil, only the built-in interrupt runs.
	StopFunc func() error

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	// PlaybackTime overrides the simulated playback duration.
	PlaybackTime time.Duration

	mu      sync.Mutex
	busy    bool
	stopCh  chan struct{}
	spoken  []string
	stopped int
	closed  int
}

// NewMockSpeaker creates a mock with simulated playback.
func NewMockSpeaker() *MockSpeaker {
	return &MockSpeaker{PlaybackTime: 50 * time.Millisecond}
}

// Speak records the text and simulates playback.
func (m *MockSpeaker) Speak(ctx context.Context, text string) error {
	m.mu.Lock()
	m.busy = true
	m.stopCh = make(chan struct{})
	stop := m.stopCh
	m.spoken = append(m.spoken, text)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.busy = false
		m.mu.Unlock()
	}()

	if m.SpeakFunc != nil {
		return m.SpeakFunc(ctx, text)
	}

	d := m.PlaybackTime
	if d <= 0 {
		d = 50 * time.Millisecond
	}

	select {
	case <-time.After(d):
		return nil
	case <-stop:
		return nil
	case <-ctx.Done():
		return nil
	}
}

// IsBusy reports whether simulated playback is running.
func (m *MockSpeaker) IsBusy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// Stop interrupts simulated playback and records the call.
func (m *MockSpeaker) Stop() error {
	m.mu.Lock()
	m.stopped++
	if m.stopCh != nil {
		select {
		case <-m.stopCh:
		default:
			close(m.stopCh)
		}
	}
	m.mu.Unlock()

	if m.StopFunc != nil {
		return m.StopFunc()
	}
	return nil
}

// Close records the call.
func (m *MockSpeaker) Close() error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Spoken returns all texts passed to Speak, in order.
func (m *MockSpeaker) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.spoken))
	copy(out, m.spoken)
	return out
}

// StopCount returns the number of Stop calls.
func (m *MockSpeaker) StopCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// CloseCount returns the number of Close calls.
func (m *MockSpeaker) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// WithSpeakError returns a mock whose Speak always fails.
func WithSpeakError(err error) *MockSpeaker {
	m := NewMockSpeaker()
	m.SpeakFunc = func(ctx context.Context, text string) error {
		return err
	}
	return m
}

// Verify MockSpeaker implements Speaker at compile time.
var _ Speaker = (*MockSpeaker)(nil)
