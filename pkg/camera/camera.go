// Package camera provides the capture device abstraction for visionmate.
//
// A Source yields one Frame per call. Frames are ephemeral: they belong
// to the loop cycle that read them and must not be retained across
// cycles. Components that need a frame beyond the current cycle (the
// OCR coordinator, the snapshot sink) take their own copy.
package camera

import (
	"errors"
	"fmt"
	"image"
	"time"
)

// Sentinel errors for capture conditions.
var (
	// ErrDeviceClosed is returned when reading from a closed source.
	ErrDeviceClosed = errors.New("camera: device closed")

	// ErrNoFrame is returned when the device produced no image data.
	ErrNoFrame = errors.New("camera: no frame available")
)

// CaptureError wraps a transient capture failure with device context.
// Capture errors are retryable; the recovery manager decides how.
type CaptureError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	return fmt.Sprintf("camera [index %d]: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Frame is a single captured image with capture metadata.
type Frame struct {
	// Image is the decoded frame.
	Image image.Image

	// Width and Height are the frame dimensions in pixels.
	Width  int
	Height int

	// At is the capture timestamp.
	At time.Time
}

// Area returns the total frame area in pixels.
func (f *Frame) Area() float64 {
	return float64(f.Width) * float64(f.Height)
}

// Source is the capture device interface.
// Exactly one component owns the Source; nothing else touches the
// device directly.
type Source interface {
	// Read captures the next frame.
	// Returns a *CaptureError for transient device failures.
	Read() (*Frame, error)

	// Reopen switches to a different device index.
	// Used by capture recovery to probe alternate devices.
	Reopen(index int) error

	// Close releases the device. Safe to call more than once.
	Close() error
}
