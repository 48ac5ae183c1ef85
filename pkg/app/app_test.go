package app

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/visionmate/go-visionmate/pkg/alert"
	"github.com/visionmate/go-visionmate/pkg/camera"
	"github.com/visionmate/go-visionmate/pkg/detect"
	"github.com/visionmate/go-visionmate/pkg/ocr"
	"github.com/visionmate/go-visionmate/pkg/scene"
	"github.com/visionmate/go-visionmate/pkg/speech"
	"github.com/visionmate/go-visionmate/pkg/telemetry"
)

// testConfig returns a cadence fast enough for tests: detection every
// cycle, scene every 5 cycles, no pacing delay.
func testConfig() Config {
	return Config{
		DetectionStride:    1,
		SceneStride:        5,
		ProximityThreshold: 0.15,
		CameraFallbacks:    []int{1, 2},
		ReprobeInterval:    1000,
		CycleDelay:         time.Millisecond,
	}
}

// closePerson covers ~30% of a 640x480 frame.
func closePerson() detect.Detection {
	return detect.Detection{
		Label:      detect.LabelPerson,
		Confidence: 0.9,
		Box:        image.Rect(0, 0, 320, 288),
	}
}

func staticDetector(dets []detect.Detection) func() (detect.Detector, error) {
	return func() (detect.Detector, error) {
		return &detect.Mock{
			DetectFunc: func(img image.Image) ([]detect.Detection, error) {
				return dets, nil
			},
		}, nil
	}
}

// runFor runs the app until the timeout elapses or quit is signalled.
func runFor(t *testing.T, a *App, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestNew_RequiresSourceAndArbiter(t *testing.T) {
	arbiter := speech.NewArbiter(speech.NewMockSpeaker())
	defer arbiter.Close()

	if _, err := New(testConfig(), Deps{Arbiter: arbiter}); err == nil {
		t.Error("New without source: err = nil, want error")
	}
	if _, err := New(testConfig(), Deps{Source: camera.NewMock(640, 480)}); err == nil {
		t.Error("New without arbiter: err = nil, want error")
	}
}

func TestInit_FatalModelFailureStopsAndReleases(t *testing.T) {
	source := camera.NewMock(640, 480)
	speaker := speech.NewMockSpeaker()
	arbiter := speech.NewArbiter(speaker)

	a, err := New(testConfig(), Deps{
		Source:  source,
		Arbiter: arbiter,
		DetectorFactory: func() (detect.Detector, error) {
			return nil, detect.ErrModelNotFound
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := a.Init(); !errors.Is(err, detect.ErrModelNotFound) {
		t.Fatalf("Init() error = %v, want ErrModelNotFound", err)
	}
	if got := a.State(); got != StateStopped {
		t.Errorf("State after fatal init = %v, want stopped", got)
	}

	// Handles released exactly once.
	if got := source.CloseCount(); got != 1 {
		t.Errorf("source CloseCount = %d, want 1", got)
	}
	if got := speaker.CloseCount(); got != 1 {
		t.Errorf("speaker CloseCount = %d, want 1", got)
	}

	// A second shutdown must not double-release.
	a.Shutdown()
	if got := source.CloseCount(); got != 1 {
		t.Errorf("source CloseCount after repeat Shutdown = %d, want 1", got)
	}
}

func TestRun_ClosePersonAlertsOnceUnderCooldown(t *testing.T) {
	source := camera.NewMock(640, 480)
	speaker := speech.NewMockSpeaker()
	speaker.PlaybackTime = time.Millisecond
	arbiter := speech.NewArbiter(speaker)
	metrics := telemetry.NewCollector()

	a, err := New(testConfig(), Deps{
		Source:          source,
		Arbiter:         arbiter,
		DetectorFactory: staticDetector([]detect.Detection{closePerson()}),
		Metrics:         metrics,
		CooldownOptions: []alert.Option{alert.WithCooldown(time.Hour)},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	runFor(t, a, 300*time.Millisecond)

	snap := metrics.Snapshot()
	if snap.AlertCount != 1 {
		t.Errorf("AlertCount = %d, want 1 (cooldown suppression)", snap.AlertCount)
	}
	if snap.SuppressedAlerts == 0 {
		t.Error("SuppressedAlerts = 0, want repeated sightings suppressed")
	}

	var spokeAlert bool
	for _, text := range speaker.Spoken() {
		if text == "Person ahead" {
			spokeAlert = true
		}
	}
	if !spokeAlert {
		t.Errorf("Spoken = %v, want it to include %q", speaker.Spoken(), "Person ahead")
	}

	if got := a.State(); got != StateStopped {
		t.Errorf("State after Run = %v, want stopped", got)
	}
}

func TestRun_QuitEventStopsLoop(t *testing.T) {
	source := camera.NewMock(640, 480)
	arbiter := speech.NewArbiter(speech.NewMockSpeaker())
	events := make(chan Event, 1)

	a, err := New(testConfig(), Deps{
		Source:          source,
		Arbiter:         arbiter,
		DetectorFactory: staticDetector(nil),
		Events:          events,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	events <- Event{Kind: EventQuit}

	done := make(chan error, 1)
	go func() { done <- a.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on quit event")
	}

	if got := a.State(); got != StateStopped {
		t.Errorf("State = %v, want stopped", got)
	}
}

func TestRun_CaptureFailureProbesFallbacks(t *testing.T) {
	source := &camera.Mock{
		ReadFunc: func() (*camera.Frame, error) {
			return nil, &camera.CaptureError{Index: 0, Err: camera.ErrNoFrame}
		},
	}
	arbiter := speech.NewArbiter(speech.NewMockSpeaker())

	a, err := New(testConfig(), Deps{
		Source:          source,
		Arbiter:         arbiter,
		DetectorFactory: staticDetector(nil),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	runFor(t, a, 300*time.Millisecond)

	reopens := source.ReopenCalls()
	if len(reopens) == 0 {
		t.Fatal("no Reopen calls, want alternate devices probed")
	}
	if reopens[0] != 1 {
		t.Errorf("first probe index = %d, want 1", reopens[0])
	}
}

func TestRun_OCRTriggerAndBusyFeedback(t *testing.T) {
	source := camera.NewMock(640, 480)
	speaker := speech.NewMockSpeaker()
	speaker.PlaybackTime = time.Millisecond
	arbiter := speech.NewArbiter(speaker)
	metrics := telemetry.NewCollector()
	events := make(chan Event, 4)

	engine := ocr.NewMockEngine("EXIT ONLY").WithDelay(100 * time.Millisecond)

	a, err := New(testConfig(), Deps{
		Source:          source,
		Arbiter:         arbiter,
		DetectorFactory: staticDetector(nil),
		OCREngine:       engine,
		Metrics:         metrics,
		Events:          events,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	// Two triggers back to back, sent once the startup notice has
	// finished playing: the second lands while the first extraction is
	// in flight and must be rejected with spoken feedback.
	go func() {
		time.Sleep(50 * time.Millisecond)
		events <- Event{Kind: EventTriggerOCR}
		events <- Event{Kind: EventTriggerOCR}
	}()

	runFor(t, a, 500*time.Millisecond)

	snap := metrics.Snapshot()
	if snap.OCRRequests != 1 {
		t.Errorf("OCRRequests = %d, want 1", snap.OCRRequests)
	}
	if snap.OCRRejected != 1 {
		t.Errorf("OCRRejected = %d, want 1", snap.OCRRejected)
	}

	var spokeText, spokeBusy bool
	for _, text := range speaker.Spoken() {
		switch text {
		case "EXIT ONLY":
			spokeText = true
		case noticeOCRBusy:
			spokeBusy = true
		}
	}
	if !spokeText {
		t.Errorf("Spoken = %v, want extracted text announced", speaker.Spoken())
	}
	if !spokeBusy {
		t.Errorf("Spoken = %v, want busy feedback announced", speaker.Spoken())
	}
}

func TestRun_OCRFailureDegradesWithoutStoppingDetection(t *testing.T) {
	source := camera.NewMock(640, 480)
	speaker := speech.NewMockSpeaker()
	speaker.PlaybackTime = time.Millisecond
	arbiter := speech.NewArbiter(speaker)
	metrics := telemetry.NewCollector()
	events := make(chan Event, 1)

	engine := &ocr.MockEngine{
		ExtractFunc: func(img image.Image) (string, error) {
			return "", ocr.ErrEngineUnavailable
		},
	}

	detector := &detect.Mock{
		DetectFunc: func(img image.Image) ([]detect.Detection, error) {
			return nil, nil
		},
	}

	a, err := New(testConfig(), Deps{
		Source:  source,
		Arbiter: arbiter,
		DetectorFactory: func() (detect.Detector, error) {
			return detector, nil
		},
		OCREngine: engine,
		Metrics:   metrics,
		Events:    events,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	events <- Event{Kind: EventTriggerOCR}
	runFor(t, a, 300*time.Millisecond)

	snap := metrics.Snapshot()
	var ocrDegraded bool
	for _, f := range snap.DegradedFeatures {
		if f == "ocr" {
			ocrDegraded = true
		}
	}
	if !ocrDegraded {
		t.Errorf("DegradedFeatures = %v, want ocr listed", snap.DegradedFeatures)
	}

	// Detection kept running after the OCR failure.
	if detector.DetectCount() < 2 {
		t.Errorf("DetectCount = %d, want detection to continue", detector.DetectCount())
	}
}

func TestRun_OCRRecoveryReturnsToRunning(t *testing.T) {
	source := camera.NewMock(640, 480)
	speaker := speech.NewMockSpeaker()
	speaker.PlaybackTime = time.Millisecond
	arbiter := speech.NewArbiter(speaker)
	metrics := telemetry.NewCollector()
	events := make(chan Event, 2)

	// First extraction fails and degrades the feature; later ones
	// succeed so a re-probe can recover it.
	var mu sync.Mutex
	var calls int
	engine := &ocr.MockEngine{
		ExtractFunc: func(img image.Image) (string, error) {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()
			if first {
				return "", ocr.ErrEngineUnavailable
			}
			return "EXIT AHEAD", nil
		},
	}

	// Every cycle is a re-probe opportunity once degraded.
	cfg := testConfig()
	cfg.ReprobeInterval = 1

	var snapMu sync.Mutex
	var snaps []telemetry.Snapshot
	metrics.OnUpdate(func(s telemetry.Snapshot) {
		snapMu.Lock()
		snaps = append(snaps, s)
		snapMu.Unlock()
	})

	a, err := New(cfg, Deps{
		Source:          source,
		Arbiter:         arbiter,
		DetectorFactory: staticDetector(nil),
		SceneClassifier: scene.NewMock("office", 0.9),
		OCREngine:       engine,
		Metrics:         metrics,
		Events:          events,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	go func() {
		events <- Event{Kind: EventTriggerOCR}
		time.Sleep(150 * time.Millisecond)
		events <- Event{Kind: EventTriggerOCR}
	}()

	runFor(t, a, 500*time.Millisecond)

	snapMu.Lock()
	defer snapMu.Unlock()

	hasOCR := func(s telemetry.Snapshot) bool {
		for _, f := range s.DegradedFeatures {
			if f == "ocr" {
				return true
			}
		}
		return false
	}

	degradedAt := -1
	for i, s := range snaps {
		if s.State == "degraded" && hasOCR(s) {
			degradedAt = i
			break
		}
	}
	if degradedAt < 0 {
		t.Fatal("no cycle observed the system degraded with ocr disabled")
	}

	recovered := false
	for _, s := range snaps[degradedAt+1:] {
		if s.State == "running" && !hasOCR(s) {
			recovered = true
			break
		}
	}
	if !recovered {
		t.Error("no cycle after degradation returned to running with ocr recovered")
	}

	var spokeReading bool
	for _, text := range speaker.Spoken() {
		if text == "EXIT AHEAD" {
			spokeReading = true
		}
	}
	if !spokeReading {
		t.Errorf("Spoken = %v, want recovered extraction announced", speaker.Spoken())
	}
}

func TestRun_SceneAnnouncedOnlyOnChange(t *testing.T) {
	source := camera.NewMock(640, 480)
	speaker := speech.NewMockSpeaker()
	speaker.PlaybackTime = time.Millisecond
	arbiter := speech.NewArbiter(speaker)
	metrics := telemetry.NewCollector()

	a, err := New(testConfig(), Deps{
		Source:          source,
		Arbiter:         arbiter,
		DetectorFactory: staticDetector(nil),
		SceneClassifier: scene.NewMock("office", 0.9),
		Metrics:         metrics,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	runFor(t, a, 300*time.Millisecond)

	snap := metrics.Snapshot()
	if snap.SceneChanges != 1 {
		t.Errorf("SceneChanges = %d, want 1 (unchanged scene never repeats)", snap.SceneChanges)
	}
}

func TestRun_NilOCREngineStartsDegraded(t *testing.T) {
	source := camera.NewMock(640, 480)
	arbiter := speech.NewArbiter(speech.NewMockSpeaker())
	metrics := telemetry.NewCollector()

	a, err := New(testConfig(), Deps{
		Source:          source,
		Arbiter:         arbiter,
		DetectorFactory: staticDetector(nil),
		Metrics:         metrics,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := a.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	runFor(t, a, 100*time.Millisecond)

	snap := metrics.Snapshot()
	if snap.State != "shutting-down" && snap.State != "stopped" && snap.State != "degraded" {
		t.Logf("final telemetry state = %q", snap.State)
	}

	var ocrDegraded bool
	for _, f := range snap.DegradedFeatures {
		if f == "ocr" {
			ocrDegraded = true
		}
	}
	if !ocrDegraded {
		t.Errorf("DegradedFeatures = %v, want ocr listed when no engine installed", snap.DegradedFeatures)
	}
}
