package ocr

import (
	"errors"
	"image"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for OCR conditions.
var (
	// ErrBusy is returned by Submit while a request is in flight.
	// This is informational, not a failure; the in-flight request is
	// not replaced.
	ErrBusy = errors.New("ocr: request already in flight")

	// ErrEngineUnavailable is returned when the OCR engine cannot run.
	ErrEngineUnavailable = errors.New("ocr: engine unavailable")

	// ErrTimeout is returned when extraction exceeds the deadline.
	ErrTimeout = errors.New("ocr: extraction timed out")

	// ErrClosed is returned when submitting to a closed coordinator.
	ErrClosed = errors.New("ocr: coordinator closed")
)

// User-facing messages for non-text outcomes.
const (
	// GuidanceNoText is spoken when extraction succeeded but produced
	// nothing readable.
	GuidanceNoText = "No readable text found. Try better lighting or move closer to the text."

	// FallbackUnavailable is spoken when the engine itself failed.
	FallbackUnavailable = "Text reading is not available right now."
)

// Engine is the external OCR adapter.
type Engine interface {
	// ExtractText extracts raw text from the image.
	ExtractText(img image.Image) (string, error)

	// Close releases engine resources.
	Close() error
}

// Request is a snapshot handed to the background worker.
type Request struct {
	// ID identifies the request in logs and telemetry.
	ID uuid.UUID

	// Image is the frame snapshot. Owned by the coordinator until the
	// request resolves.
	Image image.Image

	// RequestedAt is the trigger timestamp.
	RequestedAt time.Time
}

// Result is the outcome of one request.
// Exactly one Result is produced per accepted Submit.
type Result struct {
	// RequestID matches the accepted request.
	RequestID uuid.UUID

	// Text is the validated extracted text, or a guidance/fallback
	// message when nothing readable was found or the engine failed.
	Text string

	// OK is true only when Text holds genuine extracted text.
	OK bool

	// Err holds the engine failure, if any. A set Err means the
	// feature should be marked degraded.
	Err error

	// Elapsed is the total background processing time.
	Elapsed time.Duration
}
