package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/visionmate/go-visionmate/pkg/alert"
	"github.com/visionmate/go-visionmate/pkg/camera"
	"github.com/visionmate/go-visionmate/pkg/detect"
	"github.com/visionmate/go-visionmate/pkg/ocr"
	"github.com/visionmate/go-visionmate/pkg/recovery"
	"github.com/visionmate/go-visionmate/pkg/speech"
)

// Spoken status notices.
const (
	noticeReady          = "VisionMate ready"
	noticeOCRBusy        = "Still reading, please wait"
	noticeOCRUnavailable = "Text reading unavailable"
)

// Run drives the cooperative loop until ctx is cancelled, a quit event
// arrives, or a fatal failure is classified. Shutdown always runs
// before Run returns.
func (a *App) Run(ctx context.Context) error {
	defer a.Shutdown()

	if a.State() != StateRunning && a.State() != StateDegraded {
		return errors.New("app: Run called before successful Init")
	}

	a.arbiter.Enqueue(speech.Message{
		Text:     noticeReady,
		Priority: speech.PriorityStatus,
		Source:   "app",
	})

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutdown signal observed")
			return nil
		default:
		}

		if quit := a.drainEvents(); quit {
			a.logger.Info("quit event observed")
			return nil
		}

		fatal := a.runCycle()
		if fatal {
			return errors.New("app: fatal failure, shutting down")
		}

		if a.cfg.CycleDelay > 0 {
			time.Sleep(a.cfg.CycleDelay)
		}
	}
}

// runCycle executes one loop iteration. Returns true on a fatal
// classification.
func (a *App) runCycle() (fatal bool) {
	cycleStart := time.Now()

	frame, err := a.source.Read()
	if err != nil {
		return a.handleCaptureFailure(err)
	}

	if a.recovery.Degraded(recovery.SubsystemCapture) {
		a.recovery.MarkRecovered(recovery.SubsystemCapture)
	}
	a.recovery.ResetCaptureAttempts()

	a.mu.Lock()
	a.frameIndex++
	idx := a.frameIndex
	a.mu.Unlock()

	// The cycle context never outlives this iteration; subsystems
	// that need the frame longer (OCR, snapshots) copy it.
	cycle := &cycleContext{frame: frame, index: idx, at: cycleStart}

	for a.pendingOCRTriggers > 0 {
		a.pendingOCRTriggers--
		a.submitOCR(cycle)
	}

	if idx%a.cfg.DetectionStride == 0 {
		if f := a.runDetection(cycle); f {
			return true
		}
	}

	if a.sceneSch != nil && idx%a.cfg.SceneStride == 0 {
		a.runScene(cycle)
	}

	a.pollOCR()
	a.syncAudioHealth()
	a.announceDegradationChanges()
	a.refreshState()

	a.metrics.MarkCycle(idx, time.Since(cycleStart))
	return false
}

// cycleContext is the ephemeral per-iteration bundle. It is never
// retained across iterations.
type cycleContext struct {
	frame *camera.Frame
	index uint64
	at    time.Time
}

// drainEvents consumes pending user events without blocking.
// Returns true when a quit event arrived.
func (a *App) drainEvents() bool {
	if a.events == nil {
		return false
	}
	for {
		select {
		case ev, ok := <-a.events:
			if !ok {
				a.events = nil
				return false
			}
			switch ev.Kind {
			case EventQuit:
				return true
			case EventTriggerOCR:
				a.pendingOCRTriggers++
			}
		default:
			return false
		}
	}
}

// handleCaptureFailure routes a frame-read failure through recovery.
// Returns true on fatal.
func (a *App) handleCaptureFailure(err error) bool {
	a.metrics.IncCaptureFailure()

	a.mu.Lock()
	idx := a.frameIndex
	a.mu.Unlock()

	d := a.recovery.Handle(recovery.SubsystemCapture, err, idx)
	switch d.Kind {
	case recovery.KindFatal:
		return true

	case recovery.KindRetry:
		// Probe the next alternate device index.
		attempts := a.recovery.CaptureAttempts()
		if len(a.cfg.CameraFallbacks) > 0 {
			next := a.cfg.CameraFallbacks[(attempts-1)%len(a.cfg.CameraFallbacks)]
			a.logger.Warn("capture failed, probing alternate device",
				"attempt", attempts,
				"device_index", next,
			)
			if rerr := a.source.Reopen(next); rerr != nil {
				a.logger.Warn("alternate device open failed",
					"device_index", next,
					"error", rerr,
				)
			}
		}

	case recovery.KindDegrade:
		// Retry budget exhausted: keep polling at a low rate so a
		// replugged camera is picked up.
		time.Sleep(100 * time.Millisecond)
	}

	return false
}

// runDetection executes the detect → proximity → cooldown → announce
// chain for the current frame. Returns true on fatal.
func (a *App) runDetection(cycle *cycleContext) bool {
	if a.detector == nil {
		return false
	}

	degraded := a.recovery.Degraded(recovery.SubsystemDetection)
	if degraded && !a.recovery.ShouldReprobe(recovery.SubsystemDetection, cycle.index) {
		return false
	}

	detections, err := a.detector.Detect(cycle.frame.Image)
	if err != nil {
		d := a.recovery.Handle(recovery.SubsystemDetection, err, cycle.index)
		return d.Kind == recovery.KindFatal
	}
	if degraded {
		a.recovery.MarkRecovered(recovery.SubsystemDetection)
	}

	closest := detect.SelectClosest(detections, cycle.frame.Width, cycle.frame.Height, a.cfg.ProximityThreshold)
	if closest == nil {
		return false
	}

	if !a.cooldown.TryEmit(closest.Label) {
		a.metrics.IncSuppressedAlert()
		return false
	}

	a.metrics.IncAlert()
	a.logger.Info("proximity alert",
		"label", string(closest.Label),
		"confidence", closest.Confidence,
		"ratio", closest.ProximityRatio(cycle.frame.Width, cycle.frame.Height),
	)
	a.arbiter.Enqueue(speech.Message{
		Text:     alert.Message(closest.Label),
		Priority: speech.PriorityAlert,
		Source:   "detection",
	})

	if a.sink != nil {
		a.sink.Save(cycle.frame.Image, fmt.Sprintf("alert_%s", closest.Label))
	}

	return false
}

// runScene executes one low-frequency scene observation.
func (a *App) runScene(cycle *cycleContext) {
	degraded := a.recovery.Degraded(recovery.SubsystemScene)
	if degraded && !a.recovery.ShouldReprobe(recovery.SubsystemScene, cycle.index) {
		return
	}

	announcement, ok, err := a.sceneSch.Observe(cycle.frame.Image)
	if err != nil {
		a.recovery.Handle(recovery.SubsystemScene, err, cycle.index)
		return
	}
	if degraded {
		a.recovery.MarkRecovered(recovery.SubsystemScene)
	}
	if !ok {
		return
	}

	a.metrics.IncSceneChange()
	a.arbiter.Enqueue(speech.Message{
		Text:     announcement,
		Priority: speech.PriorityScene,
		Source:   "scene",
	})
}

// submitOCR hands the current frame to the coordinator without
// blocking the cycle.
func (a *App) submitOCR(cycle *cycleContext) {
	if a.ocrCoord == nil || a.recovery.Degraded(recovery.SubsystemOCR) &&
		!a.recovery.ShouldReprobe(recovery.SubsystemOCR, cycle.index) {
		a.arbiter.Enqueue(speech.Message{
			Text:     noticeOCRUnavailable,
			Priority: speech.PriorityStatus,
			Source:   "ocr",
		})
		return
	}

	switch err := a.ocrCoord.Submit(cycle.frame.Image); {
	case err == nil:
		a.metrics.IncOCRRequest()
		a.logger.Info("ocr request submitted", "frame_index", cycle.index)
		if a.sink != nil {
			a.sink.Save(cycle.frame.Image, "ocr")
		}
	case errors.Is(err, ocr.ErrBusy):
		// Informational, not a failure: the in-flight request stands.
		a.metrics.IncOCRRejected()
		a.arbiter.Enqueue(speech.Message{
			Text:     noticeOCRBusy,
			Priority: speech.PriorityStatus,
			Source:   "ocr",
		})
	default:
		a.recovery.Handle(recovery.SubsystemOCR, err, cycle.index)
	}
}

// pollOCR forwards a completed OCR result to the audio channel.
func (a *App) pollOCR() {
	if a.ocrCoord == nil {
		return
	}

	res, ok := a.ocrCoord.Poll()
	if !ok {
		return
	}

	if res.Err != nil {
		a.mu.Lock()
		idx := a.frameIndex
		a.mu.Unlock()
		a.recovery.Handle(recovery.SubsystemOCR, res.Err, idx)
	} else if a.recovery.Degraded(recovery.SubsystemOCR) {
		a.recovery.MarkRecovered(recovery.SubsystemOCR)
	}

	a.arbiter.Enqueue(speech.Message{
		Text:     res.Text,
		Priority: speech.PriorityReading,
		Source:   "ocr",
	})
}

// syncAudioHealth mirrors the arbiter's fallback state into the
// recovery registry.
func (a *App) syncAudioHealth() {
	a.mu.Lock()
	idx := a.frameIndex
	a.mu.Unlock()

	if a.arbiter.Degraded() {
		if !a.recovery.Degraded(recovery.SubsystemAudio) {
			a.recovery.Handle(recovery.SubsystemAudio, speech.ErrEngineUnavailable, idx)
		}
	} else if a.recovery.Degraded(recovery.SubsystemAudio) {
		a.recovery.MarkRecovered(recovery.SubsystemAudio)
	}
}

// announceDegradationChanges speaks each degradation notice once per
// transition.
func (a *App) announceDegradationChanges() {
	current := make(map[recovery.Subsystem]bool)
	for _, sub := range a.recovery.DegradedSet() {
		current[sub] = true
	}

	for sub := range current {
		if !a.announcedDegraded[sub] {
			a.announcedDegraded[sub] = true
			a.arbiter.Enqueue(speech.Message{
				Text:     degradationNotice(sub),
				Priority: speech.PriorityStatus,
				Source:   "recovery",
			})
		}
	}
	for sub := range a.announcedDegraded {
		if !current[sub] {
			delete(a.announcedDegraded, sub)
		}
	}
}

// degradationNotice returns the spoken notice for a disabled feature.
func degradationNotice(sub recovery.Subsystem) string {
	switch sub {
	case recovery.SubsystemOCR:
		return "Text reading unavailable"
	case recovery.SubsystemScene:
		return "Scene detection unavailable"
	case recovery.SubsystemAudio:
		return "Audio degraded, messages logged"
	case recovery.SubsystemCapture:
		return "Camera unavailable, retrying"
	case recovery.SubsystemDetection:
		return "Object detection unavailable"
	default:
		return string(sub) + " unavailable"
	}
}

// refreshState moves between Running and Degraded based on the
// recovery registry, and mirrors degraded features into telemetry.
func (a *App) refreshState() {
	degraded := a.recovery.DegradedSet()
	names := make([]string, 0, len(degraded))
	for _, sub := range degraded {
		names = append(names, string(sub))
	}
	a.metrics.SetDegraded(names)

	if len(degraded) > 0 {
		a.setState(StateDegraded)
	} else {
		a.setState(StateRunning)
	}
}
