package speech

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
)

// EspeakSpeaker plays announcements through the espeak-ng command line
// synthesizer. One process at a time; Stop kills the running process.
type EspeakSpeaker struct {
	binary string
	rate   int
	voice  string

	mu      sync.Mutex
	cmd     *exec.Cmd
	playing bool
	closed  bool
}

var _ Speaker = (*EspeakSpeaker)(nil)

// EspeakOption configures the espeak speaker.
type EspeakOption func(*EspeakSpeaker)

// WithEspeakBinary overrides the synthesizer binary name.
func WithEspeakBinary(binary string) EspeakOption {
	return func(s *EspeakSpeaker) { s.binary = binary }
}

// WithEspeakRate sets words-per-minute.
func WithEspeakRate(rate int) EspeakOption {
	return func(s *EspeakSpeaker) { s.rate = rate }
}

// WithEspeakVoice sets the voice name.
func WithEspeakVoice(voice string) EspeakOption {
	return func(s *EspeakSpeaker) { s.voice = voice }
}

// NewEspeakSpeaker creates a speaker. Returns ErrEngineUnavailable when
// the synthesizer binary is not on PATH.
func NewEspeakSpeaker(opts ...EspeakOption) (*EspeakSpeaker, error) {
	s := &EspeakSpeaker{
		binary: "espeak-ng",
		rate:   165,
		voice:  "en",
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := exec.LookPath(s.binary); err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrEngineUnavailable, s.binary)
	}
	return s, nil
}

// Speak synthesizes text, blocking until playback ends or the process
// is interrupted. A Stop-initiated kill is a normal end of playback.
func (s *EspeakSpeaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	cmd := exec.CommandContext(ctx, s.binary,
		"-s", fmt.Sprintf("%d", s.rate),
		"-v", s.voice,
		text,
	)
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	s.cmd = cmd
	s.playing = true
	s.mu.Unlock()

	err := cmd.Wait()

	s.mu.Lock()
	wasStopped := s.cmd == nil
	s.cmd = nil
	s.playing = false
	s.mu.Unlock()

	if err != nil && !wasStopped && ctx.Err() == nil {
		return fmt.Errorf("speech: playback failed: %w", err)
	}
	return nil
}

// IsBusy reports whether a playback process is running.
func (s *EspeakSpeaker) IsBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Stop kills the current playback process, if any.
func (s *EspeakSpeaker) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	err := s.cmd.Process.Kill()
	// Marks the in-flight Wait as an intentional interruption.
	s.cmd = nil
	if err != nil {
		return fmt.Errorf("speech: stop playback: %w", err)
	}
	return nil
}

// Close stops playback and marks the speaker unusable.
func (s *EspeakSpeaker) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cmd := s.cmd
	s.cmd = nil
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	return nil
}
