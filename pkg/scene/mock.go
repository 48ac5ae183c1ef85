package scene

import (
	"image"
	"sync"
)

// Mock implements Classifier for testing.
type Mock struct {
	// ClassifyFunc is called when Classify is invoked.
	// If nil, returns ErrUnavailable.
	ClassifyFunc func(img image.Image) (string, float64, error)

	// CloseFunc is called when Close is invoked.
	// If nil, returns nil.
	CloseFunc func() error

	mu            sync.Mutex
	label         string
	confidence    float64
	classifyCalls int
}

// NewMock creates a mock that always returns the given scene.
func NewMock(label string, confidence float64) *Mock {
	m := &Mock{label: label, confidence: confidence}
	m.ClassifyFunc = func(img image.Image) (string, float64, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.label, m.confidence, nil
	}
	return m
}

// SetScene changes the returned scene for subsequent calls.
func (m *Mock) SetScene(label string, confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.label = label
	m.confidence = confidence
}

// Classify calls ClassifyFunc and records the call.
func (m *Mock) Classify(img image.Image) (string, float64, error) {
	m.mu.Lock()
	m.classifyCalls++
	m.mu.Unlock()

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(img)
	}
	return "", 0, ErrUnavailable
}

// Close calls CloseFunc.
func (m *Mock) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// ClassifyCount returns the number of Classify calls.
func (m *Mock) ClassifyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classifyCalls
}

// Verify Mock implements Classifier at compile time.
var _ Classifier = (*Mock)(nil)
