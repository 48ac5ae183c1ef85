// Package telemetry collects loop diagnostics and serves them on a
// localhost dashboard.
//
// The collector tracks frame-processing latency and per-feature
// counters; the server exposes them as JSON plus a websocket stream.
// Nothing here is on the loop's critical path: recording a sample is a
// mutex-guarded struct update and broadcasting never blocks.
package telemetry

import (
	"sync"
	"time"
)

// Snapshot is one point-in-time view of loop health.
type Snapshot struct {
	State            string        `json:"state"`
	FrameIndex       uint64        `json:"frame_index"`
	CycleLatency     time.Duration `json:"cycle_latency"`
	AvgCycleLatency  time.Duration `json:"avg_cycle_latency"`
	MaxCycleLatency  time.Duration `json:"max_cycle_latency"`
	AlertCount       uint64        `json:"alert_count"`
	SuppressedAlerts uint64        `json:"suppressed_alerts"`
	OCRRequests      uint64        `json:"ocr_requests"`
	OCRRejected      uint64        `json:"ocr_rejected"`
	SceneChanges     uint64        `json:"scene_changes"`
	CaptureFailures  uint64        `json:"capture_failures"`
	DegradedFeatures []string      `json:"degraded_features"`
}

// Collector accumulates loop metrics. Goroutine-safe.
type Collector struct {
	mu sync.Mutex

	state      string
	frameIndex uint64

	lastCycle  time.Duration
	totalCycle time.Duration
	maxCycle   time.Duration
	cycles     uint64

	alerts           uint64
	suppressedAlerts uint64
	ocrRequests      uint64
	ocrRejected      uint64
	sceneChanges     uint64
	captureFailures  uint64

	degraded []string

	onUpdate func(Snapshot)
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{state: "starting"}
}

// OnUpdate sets a callback fired after each cycle sample.
// Used by the dashboard to push snapshots to websocket clients.
func (c *Collector) OnUpdate(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = fn
}

// MarkCycle records one completed loop cycle.
func (c *Collector) MarkCycle(frameIndex uint64, latency time.Duration) {
	c.mu.Lock()
	c.frameIndex = frameIndex
	c.lastCycle = latency
	c.totalCycle += latency
	c.cycles++
	if latency > c.maxCycle {
		c.maxCycle = latency
	}
	snap := c.snapshotLocked()
	fn := c.onUpdate
	c.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

// SetState records the loop state name.
func (c *Collector) SetState(state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

// SetDegraded records the currently degraded feature names.
func (c *Collector) SetDegraded(features []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.degraded = features
}

// IncAlert counts an emitted proximity alert.
func (c *Collector) IncAlert() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts++
}

// IncSuppressedAlert counts a cooldown-suppressed alert.
func (c *Collector) IncSuppressedAlert() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suppressedAlerts++
}

// IncOCRRequest counts an accepted OCR submission.
func (c *Collector) IncOCRRequest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ocrRequests++
}

// IncOCRRejected counts a busy-rejected OCR submission.
func (c *Collector) IncOCRRejected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ocrRejected++
}

// IncSceneChange counts an announced scene change.
func (c *Collector) IncSceneChange() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sceneChanges++
}

// IncCaptureFailure counts a failed frame read.
func (c *Collector) IncCaptureFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.captureFailures++
}

// Snapshot returns the current metrics view.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// snapshotLocked builds a Snapshot. Caller holds c.mu.
func (c *Collector) snapshotLocked() Snapshot {
	var avg time.Duration
	if c.cycles > 0 {
		avg = c.totalCycle / time.Duration(c.cycles)
	}

	degraded := make([]string, len(c.degraded))
	copy(degraded, c.degraded)

	return Snapshot{
		State:            c.state,
		FrameIndex:       c.frameIndex,
		CycleLatency:     c.lastCycle,
		AvgCycleLatency:  avg,
		MaxCycleLatency:  c.maxCycle,
		AlertCount:       c.alerts,
		SuppressedAlerts: c.suppressedAlerts,
		OCRRequests:      c.ocrRequests,
		OCRRejected:      c.ocrRejected,
		SceneChanges:     c.sceneChanges,
		CaptureFailures:  c.captureFailures,
		DegradedFeatures: degraded,
	}
}
