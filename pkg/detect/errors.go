package detect

import (
	"errors"
	"fmt"
)

// Sentinel errors for detection conditions.
var (
	// ErrModelNotFound is returned when the model file is missing.
	ErrModelNotFound = errors.New("detect: model file not found")

	// ErrModelLoad is returned when the model fails to load.
	// A load failure at startup is fatal; there is no meaningful
	// operation without the detection model.
	ErrModelLoad = errors.New("detect: model load failed")

	// ErrEmptyImage is returned when the input image is empty.
	ErrEmptyImage = errors.New("detect: empty image")
)

// BackendError wraps an inference failure with backend context.
type BackendError struct {
	Backend string
	Err     error
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("detect [%s]: %v", e.Backend, e.Err)
}

// Unwrap returns the underlying error.
func (e *BackendError) Unwrap() error {
	return e.Err
}
