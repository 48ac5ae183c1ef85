package speech

import (
	"context"
	"log/slog"
	"sync"
)

// Outcome reports what the arbiter did with an enqueued message.
type Outcome int

const (
	// OutcomeAccepted means the message is being spoken.
	OutcomeAccepted Outcome = iota

	// OutcomeDropped means the channel was busy with same-or-higher
	// priority and the message was discarded.
	OutcomeDropped

	// OutcomePreempting means the playing message is being stopped in
	// favor of this strictly-higher-priority one.
	OutcomePreempting
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDropped:
		return "dropped"
	case OutcomePreempting:
		return "preempting"
	default:
		return "unknown"
	}
}

// Arbiter owns the audio channel. It speaks one message at a time,
// drops same-or-lower-priority messages that arrive while busy, and
// preempts only for strictly higher priority. Enqueue never blocks
// beyond issuing the speak request.
type Arbiter struct {
	speaker Speaker
	logger  *slog.Logger

	mu       sync.Mutex
	playing  *Message // message currently being spoken
	pending  *Message // single slot for a preempting message
	speaking bool
	degraded bool
	closed   bool
	cancel   context.CancelFunc

	wg sync.WaitGroup

	// OnSpoken, if set, is called after each message finishes
	// (spoken or fallen back to log). Used by telemetry.
	OnSpoken func(msg Message, err error)
}

// NewArbiter creates an arbiter around the given speaker.
func NewArbiter(speaker Speaker) *Arbiter {
	return &Arbiter{
		speaker: speaker,
		logger:  slog.Default().With("component", "speech.arbiter"),
	}
}

// Enqueue submits a message for announcement and returns immediately.
//
// Busy channel rules: same-or-lower priority than the playing message
// is dropped; strictly higher priority preempts, taking the single
// pending slot and stopping current playback.
func (a *Arbiter) Enqueue(msg Message) Outcome {
	a.mu.Lock()

	if a.closed {
		a.mu.Unlock()
		return OutcomeDropped
	}

	if !a.speaking {
		a.startLocked(msg)
		a.mu.Unlock()
		return OutcomeAccepted
	}

	current := a.playing
	if a.pending != nil {
		current = a.pending
	}

	if current != nil && msg.Priority <= current.Priority {
		a.mu.Unlock()
		a.logger.Debug("announcement dropped",
			"source", msg.Source,
			"priority", msg.Priority.String(),
		)
		return OutcomeDropped
	}

	// Strictly higher priority: park in the pending slot and stop the
	// current playback; the speak goroutine picks up the slot.
	a.pending = &msg
	a.mu.Unlock()

	a.logger.Info("announcement preempting",
		"source", msg.Source,
		"priority", msg.Priority.String(),
	)
	if err := a.speaker.Stop(); err != nil {
		a.logger.Warn("stop failed during preemption", "error", err)
	}
	return OutcomePreempting
}

// startLocked launches the speak goroutine for msg.
// Caller holds a.mu.
func (a *Arbiter) startLocked(msg Message) {
	ctx, cancel := context.WithCancel(context.Background())
	a.playing = &msg
	a.speaking = true
	a.cancel = cancel

	a.wg.Add(1)
	go a.speak(ctx, msg)
}

// speak plays one message, then drains the pending slot if a
// preempting message arrived meanwhile.
func (a *Arbiter) speak(ctx context.Context, msg Message) {
	defer a.wg.Done()

	err := a.speaker.Speak(ctx, msg.Text)
	failed := err != nil && ctx.Err() == nil

	if failed {
		// Engine failure: fall back to the log channel so the message
		// is not lost, and flag the audio path degraded.
		a.logger.Warn("tts failed, using log fallback",
			"source", msg.Source,
			"text", msg.Text,
			"error", err,
		)
	}

	a.mu.Lock()
	if failed {
		a.degraded = true
	} else if err == nil {
		a.degraded = false
	}

	onSpoken := a.OnSpoken

	next := a.pending
	a.pending = nil
	if next != nil && !a.closed {
		a.startLocked(*next)
	} else {
		a.playing = nil
		a.speaking = false
		a.cancel = nil
	}
	a.mu.Unlock()

	if onSpoken != nil {
		onSpoken(msg, err)
	}
}

// IsBusy reflects true engine/arbitration state.
func (a *Arbiter) IsBusy() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speaking || a.speaker.IsBusy()
}

// Degraded reports whether the last speak attempt fell back to logs.
func (a *Arbiter) Degraded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.degraded
}

// Close stops playback and releases the speaker. Safe to call more
// than once; the speaker is closed exactly once.
func (a *Arbiter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.pending = nil
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()

	a.speaker.Stop()
	a.wg.Wait()
	return a.speaker.Close()
}
