package ocr

import (
	"image"
	"sync"
	"time"
)

// MockEngine implements Engine for testing.
// All methods can be customized via function fields.
type MockEngine struct {
	// ExtractFunc is called when ExtractText is invoked.
	// If nil, returns ErrEngineUnavailable.
	ExtractFunc func(img image.Image) (string, error)

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	mu           sync.Mutex
	extractCalls int
	closeCalls   int
}

// NewMockEngine creates a mock engine that returns the given text.
func NewMockEngine(text string) *MockEngine {
	return &MockEngine{
		ExtractFunc: func(img image.Image) (string, error) {
			return text, nil
		},
	}
}

// WithDelay wraps the mock's extraction with artificial latency.
func (m *MockEngine) WithDelay(d time.Duration) *MockEngine {
	inner := m.ExtractFunc
	m.ExtractFunc = func(img image.Image) (string, error) {
		time.Sleep(d)
		if inner != nil {
			return inner(img)
		}
		return "", ErrEngineUnavailable
	}
	return m
}

// ExtractText calls ExtractFunc and records the call.
func (m *MockEngine) ExtractText(img image.Image) (string, error) {
	m.mu.Lock()
	m.extractCalls++
	m.mu.Unlock()

	if m.ExtractFunc != nil {
		return m.ExtractFunc(img)
	}
	return "", ErrEngineUnavailable
}

// Close calls CloseFunc and records the call.
func (m *MockEngine) Close() error {
	m.mu.Lock()
	m.closeCalls++
	m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// ExtractCount returns the number of ExtractText calls.
func (m *MockEngine) ExtractCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extractCalls
}

// CloseCount returns the number of Close calls.
func (m *MockEngine) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// Verify MockEngine implements Engine at compile time.
var _ Engine = (*MockEngine)(nil)
