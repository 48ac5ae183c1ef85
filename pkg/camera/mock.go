package camera

import (
	"image"
	"sync"
	"time"
)

// Mock implements Source for testing.
// All methods can be customized via function fields.
type Mock struct {
	// ReadFunc is called when Read is invoked.
	// If nil, returns a blank frame.
	ReadFunc func() (*Frame, error)

	// ReopenFunc is called when Reopen is invoked.
	// If nil, returns nil.
	ReopenFunc func(index int) error

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	mu          sync.Mutex
	readCalls   int
	reopenCalls []int
	closeCalls  int
}

// NewMock creates a mock source that yields blank frames of the given size.
func NewMock(width, height int) *Mock {
	return &Mock{
		ReadFunc: func() (*Frame, error) {
			return &Frame{
				Image:  image.NewRGBA(image.Rect(0, 0, width, height)),
				Width:  width,
				Height: height,
				At:     time.Now(),
			}, nil
		},
	}
}

// Read calls ReadFunc and records the call.
func (m *Mock) Read() (*Frame, error) {
	m.mu.Lock()
	m.readCalls++
	m.mu.Unlock()

	if m.ReadFunc != nil {
		return m.ReadFunc()
	}
	return nil, ErrNoFrame
}

// Reopen calls ReopenFunc and records the requested index.
func (m *Mock) Reopen(index int) error {
	m.mu.Lock()
	m.reopenCalls = append(m.reopenCalls, index)
	m.mu.Unlock()

	if m.ReopenFunc != nil {
		return m.ReopenFunc(index)
	}
	return nil
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

// ReadCount returns the number of Read calls.
func (m *Mock) ReadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readCalls
}

// ReopenCalls returns the device indices passed to Reopen, in order.
func (m *Mock) ReopenCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.reopenCalls))
	copy(out, m.reopenCalls)
	return out
}

// CloseCount returns the number of Close calls.
func (m *Mock) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// Verify Mock implements Source at compile time.
var _ Source = (*Mock)(nil)
