package speech

import "context"

// UnavailableSpeaker is the production fallback when no TTS engine is
// installed. Every Speak fails with ErrEngineUnavailable, so the
// arbiter routes announcements to its log fallback and reports the
// audio path degraded.
type UnavailableSpeaker struct{}

var _ Speaker = UnavailableSpeaker{}

// Speak always fails; the arbiter logs the text instead.
func (UnavailableSpeaker) Speak(ctx context.Context, text string) error {
	return ErrEngineUnavailable
}

// IsBusy always reports idle.
func (UnavailableSpeaker) IsBusy() bool { return false }

// Stop has nothing to interrupt.
func (UnavailableSpeaker) Stop() error { return nil }

// Close has nothing to release.
func (UnavailableSpeaker) Close() error { return nil }
