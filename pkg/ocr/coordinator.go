package ocr

import (
	"image"
	"log/slog"
	"time"

	"sync"

	"github.com/google/uuid"
)

// DefaultTimeout is the generous upper bound for one extraction.
// Exceeding it is a soft failure; the pending slot is released so a
// new request can be submitted.
const DefaultTimeout = 10 * time.Second

// Coordinator runs OCR requests on one background worker, keeping the
// sampling loop free of multi-second extraction latency.
type Coordinator struct {
	engine        Engine
	minTextLength int
	timeout       time.Duration
	logger        *slog.Logger

	mu       sync.Mutex
	inFlight bool
	closed   bool

	// results carries at most one completed result to Poll.
	results chan *Result
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithMinTextLength sets the validation minimum length.
func WithMinTextLength(n int) CoordinatorOption {
	return func(c *Coordinator) {
		c.minTextLength = n
	}
}

// WithTimeout sets the extraction deadline.
func WithTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

// NewCoordinator creates a coordinator around the given engine.
func NewCoordinator(engine Engine, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		engine:        engine,
		minTextLength: DefaultMinTextLength,
		timeout:       DefaultTimeout,
		logger:        slog.Default().With("component", "ocr.coordinator"),
		results:       make(chan *Result, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit snapshots the frame and hands it to the background worker.
// Returns immediately. Returns ErrBusy while a request is in flight;
// the in-flight request is never replaced.
func (c *Coordinator) Submit(img image.Image) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	c.inFlight = true
	c.mu.Unlock()

	req := &Request{
		ID:          uuid.New(),
		Image:       Snapshot(img),
		RequestedAt: time.Now(),
	}

	c.logger.Debug("ocr request accepted", "request_id", req.ID)
	go c.process(req)

	return nil
}

// process runs one request to completion, enforcing the timeout.
func (c *Coordinator) process(req *Request) {
	start := time.Now()

	type extraction struct {
		text string
		err  error
	}
	done := make(chan extraction, 1)

	go func() {
		text, err := c.engine.ExtractText(Preprocess(req.Image))
		done <- extraction{text: text, err: err}
	}()

	var res *Result
	select {
	case ex := <-done:
		res = c.resolve(req, ex.text, ex.err, time.Since(start))
	case <-time.After(c.timeout):
		c.logger.Warn("ocr extraction timed out",
			"request_id", req.ID,
			"timeout", c.timeout,
		)
		res = &Result{
			RequestID: req.ID,
			Text:      FallbackUnavailable,
			Err:       ErrTimeout,
			Elapsed:   time.Since(start),
		}
		// The engine goroutine keeps running; its late result is
		// discarded when it sends to the buffered channel and exits.
	}

	c.mu.Lock()
	c.inFlight = false
	closed := c.closed
	c.mu.Unlock()

	if closed {
		// Shutdown abandoned this request; discard the result.
		return
	}

	select {
	case c.results <- res:
	default:
		// Previous result was never polled. Keep the newer one.
		select {
		case <-c.results:
		default:
		}
		c.results <- res
	}
}

// resolve validates engine output and produces the final result.
func (c *Coordinator) resolve(req *Request, text string, err error, elapsed time.Duration) *Result {
	if err != nil {
		c.logger.Warn("ocr engine failed",
			"request_id", req.ID,
			"error", err,
		)
		return &Result{
			RequestID: req.ID,
			Text:      FallbackUnavailable,
			Err:       err,
			Elapsed:   elapsed,
		}
	}

	cleaned := CleanText(text)
	if !ValidText(cleaned, c.minTextLength) {
		c.logger.Info("ocr produced no readable text",
			"request_id", req.ID,
			"raw_len", len(text),
		)
		return &Result{
			RequestID: req.ID,
			Text:      GuidanceNoText,
			Elapsed:   elapsed,
		}
	}

	c.logger.Info("ocr text extracted",
		"request_id", req.ID,
		"chars", len(cleaned),
		"elapsed", elapsed,
	)
	return &Result{
		RequestID: req.ID,
		Text:      cleaned,
		OK:        true,
		Elapsed:   elapsed,
	}
}

// Poll returns a completed result exactly once, or false when nothing
// has completed since the last call.
func (c *Coordinator) Poll() (*Result, bool) {
	select {
	case res := <-c.results:
		return res, true
	default:
		return nil, false
	}
}

// Busy reports whether a request is currently in flight.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Close stops accepting requests. A pending request is abandoned: its
// result is discarded and process exit is never blocked on it.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	return c.engine.Close()
}
