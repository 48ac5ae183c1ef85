package ocr

import (
	"errors"
	"image"
	"testing"
	"time"
)

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 32, 32))
}

// waitPoll polls until a result arrives or the deadline passes.
func waitPoll(t *testing.T, c *Coordinator, deadline time.Duration) *Result {
	t.Helper()
	after := time.After(deadline)
	for {
		if res, ok := c.Poll(); ok {
			return res
		}
		select {
		case <-after:
			t.Fatal("no result before deadline")
			return nil
		case <-time.After(time.Millisecond):
		}
	}
}

func TestSubmit_ReturnsImmediately(t *testing.T) {
	engine := NewMockEngine("EXIT").WithDelay(200 * time.Millisecond)
	c := NewCoordinator(engine)
	defer c.Close()

	start := time.Now()
	if err := c.Submit(testImage()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Submit blocked for %v, want near-instant return", elapsed)
	}
}

func TestSubmit_SecondWhileInFlightIsBusy(t *testing.T) {
	engine := NewMockEngine("EXIT").WithDelay(100 * time.Millisecond)
	c := NewCoordinator(engine)
	defer c.Close()

	if err := c.Submit(testImage()); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if err := c.Submit(testImage()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Submit() error = %v, want ErrBusy", err)
	}

	// The in-flight request was not replaced: exactly one extraction.
	res := waitPoll(t, c, 2*time.Second)
	if !res.OK || res.Text != "EXIT" {
		t.Errorf("Result = (%q, ok=%v), want (EXIT, true)", res.Text, res.OK)
	}
	if got := engine.ExtractCount(); got != 1 {
		t.Errorf("ExtractCount = %d, want 1", got)
	}
}

func TestPoll_ExactlyOnce(t *testing.T) {
	c := NewCoordinator(NewMockEngine("HELLO WORLD"))
	defer c.Close()

	if err := c.Submit(testImage()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	res := waitPoll(t, c, 2*time.Second)
	if res.Text != "HELLO WORLD" {
		t.Errorf("Text = %q, want %q", res.Text, "HELLO WORLD")
	}

	if _, ok := c.Poll(); ok {
		t.Error("second Poll() returned a result, want exactly-once delivery")
	}
}

func TestPoll_UnreadableTextYieldsGuidance(t *testing.T) {
	c := NewCoordinator(NewMockEngine(".,;;;...~~~"))
	defer c.Close()

	if err := c.Submit(testImage()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	res := waitPoll(t, c, 2*time.Second)
	if res.OK {
		t.Error("OK = true for recognition noise, want false")
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil (guidance is not a failure)", res.Err)
	}
	if res.Text != GuidanceNoText {
		t.Errorf("Text = %q, want guidance message", res.Text)
	}
}

func TestPoll_EngineFailureYieldsFallback(t *testing.T) {
	engine := &MockEngine{
		ExtractFunc: func(img image.Image) (string, error) {
			return "", ErrEngineUnavailable
		},
	}
	c := NewCoordinator(engine)
	defer c.Close()

	if err := c.Submit(testImage()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	res := waitPoll(t, c, 2*time.Second)
	if res.Err == nil {
		t.Error("Err = nil for engine failure, want error")
	}
	if res.Text != FallbackUnavailable {
		t.Errorf("Text = %q, want fallback message", res.Text)
	}
}

func TestTimeout_ReleasesSlot(t *testing.T) {
	engine := NewMockEngine("LATE").WithDelay(500 * time.Millisecond)
	c := NewCoordinator(engine, WithTimeout(50*time.Millisecond))
	defer c.Close()

	if err := c.Submit(testImage()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	res := waitPoll(t, c, 2*time.Second)
	if !errors.Is(res.Err, ErrTimeout) {
		t.Fatalf("Err = %v, want ErrTimeout", res.Err)
	}
	if res.Text != FallbackUnavailable {
		t.Errorf("Text = %q, want fallback message", res.Text)
	}

	// The slot is free for a new request after the timeout.
	if err := c.Submit(testImage()); err != nil {
		t.Errorf("Submit after timeout error = %v, want nil", err)
	}
}

func TestClose_RejectsSubmitAndAbandonsPending(t *testing.T) {
	engine := NewMockEngine("EXIT").WithDelay(100 * time.Millisecond)
	c := NewCoordinator(engine)

	if err := c.Submit(testImage()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := c.Submit(testImage()); !errors.Is(err, ErrClosed) {
		t.Errorf("Submit after Close error = %v, want ErrClosed", err)
	}

	// The abandoned request's result never surfaces.
	time.Sleep(200 * time.Millisecond)
	if _, ok := c.Poll(); ok {
		t.Error("Poll() after Close returned abandoned result")
	}

	if got := engine.CloseCount(); got != 1 {
		t.Errorf("engine CloseCount = %d, want 1", got)
	}
}
