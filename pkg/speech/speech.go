// Package speech serializes all announcement sources onto one audio
// channel.
//
// Every producer (proximity alerts, text reading, scene labels,
// status notices) goes through the Arbiter; nothing else talks to the
// TTS engine. Only one message is ever in flight and messages never
// overlap.
package speech

import (
	"context"
	"errors"
)

// Sentinel errors for speech conditions.
var (
	// ErrEngineUnavailable is returned when the TTS engine cannot run.
	ErrEngineUnavailable = errors.New("speech: engine unavailable")

	// ErrClosed is returned when enqueuing to a closed arbiter.
	ErrClosed = errors.New("speech: arbiter closed")
)

// Priority orders announcement sources. Higher wins.
type Priority int

// Priority order: alert > reading > scene > status.
const (
	PriorityStatus Priority = iota
	PriorityScene
	PriorityReading
	PriorityAlert
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityAlert:
		return "alert"
	case PriorityReading:
		return "reading"
	case PriorityScene:
		return "scene"
	case PriorityStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Message is one announcement request.
// Never mutated after creation; owned by the arbiter until spoken or
// superseded.
type Message struct {
	// Text is the announcement to speak.
	Text string

	// Priority decides drop/preempt arbitration.
	Priority Priority

	// Source names the producing subsystem, for logs and telemetry.
	Source string
}

// Speaker is the TTS engine adapter.
type Speaker interface {
	// Speak synthesizes and plays text, blocking until playback ends
	// or ctx is cancelled. An interruption via Stop is a normal end of
	// playback, not an error.
	Speak(ctx context.Context, text string) error

	// IsBusy reports true while the engine is playing.
	IsBusy() bool

	// Stop interrupts the current playback, if any.
	Stop() error

	// Close releases engine resources. Safe to call more than once.
	Close() error
}
