package detect

import (
	"image"
	"sync"
)

// Mock implements Detector for testing.
// All methods can be customized via function fields.
type Mock struct {
	// DetectFunc is called when Detect is invoked.
	// If nil, returns no detections.
	DetectFunc func(img image.Image) ([]Detection, error)

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	mu          sync.Mutex
	detectCalls int
	closeCalls  int
}

// Detect calls DetectFunc and records the call.
func (m *Mock) Detect(img image.Image) ([]Detection, error) {
	m.mu.Lock()
	m.detectCalls++
	m.mu.Unlock()

	if m.DetectFunc != nil {
		return m.DetectFunc(img)
	}
	return nil, nil
}

// Close calls CloseFunc and records the call.
func (m *Mock) Close() error {
	m.mu.Lock()
	m.closeCalls++
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// DetectCount returns the number of Detect calls.
func (m *Mock) DetectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detectCalls
}

// CloseCount returns the number of Close calls.
func (m *Mock) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// Verify Mock implements Detector at compile time.
var _ Detector = (*Mock)(nil)
