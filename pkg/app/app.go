// Package app wires the visionmate subsystems into one cooperative
// loop.
//
// The orchestrator owns the frame counter and dispatch cadence; every
// subsystem failure is routed through the recovery manager and the
// loop itself only terminates on a fatal classification or a shutdown
// signal. One background worker (OCR) and the speech engine's own
// playback goroutine are the only things that run off the loop.
package app

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/visionmate/go-visionmate/pkg/alert"
	"github.com/visionmate/go-visionmate/pkg/camera"
	"github.com/visionmate/go-visionmate/pkg/detect"
	"github.com/visionmate/go-visionmate/pkg/ocr"
	"github.com/visionmate/go-visionmate/pkg/recovery"
	"github.com/visionmate/go-visionmate/pkg/scene"
	"github.com/visionmate/go-visionmate/pkg/snapshot"
	"github.com/visionmate/go-visionmate/pkg/speech"
	"github.com/visionmate/go-visionmate/pkg/telemetry"
)

// ErrNoDetector is returned by Init when no detector can be built.
var ErrNoDetector = errors.New("app: detection model unavailable")

// Config holds orchestration cadence and thresholds.
type Config struct {
	// DetectionStride is the number of cycles between detector runs.
	DetectionStride uint64

	// SceneStride is the number of cycles between scene observations.
	SceneStride uint64

	// ProximityThreshold is the strict lower bound on the bbox/frame
	// area ratio for alerts.
	ProximityThreshold float64

	// SceneConfidence is the minimum confidence for a scene
	// announcement. Zero uses the scene package default.
	SceneConfidence float64

	// CameraFallbacks are alternate device indices probed when
	// capture fails.
	CameraFallbacks []int

	// ReprobeInterval is the number of cycles between recovery probes
	// of a degraded feature.
	ReprobeInterval int

	// CycleDelay paces the loop between iterations.
	CycleDelay time.Duration
}

// DefaultConfig returns the production cadence.
func DefaultConfig() Config {
	return Config{
		DetectionStride:    3,
		SceneStride:        450,
		ProximityThreshold: 0.15,
		CameraFallbacks:    []int{1, 2},
		ReprobeInterval:    300,
		CycleDelay:         10 * time.Millisecond,
	}
}

// Deps are the subsystem collaborators the orchestrator drives.
// Source and Arbiter are required. DetectorFactory runs during Init so
// a model-load failure can be classified at startup. A nil
// SceneClassifier or OCREngine starts the corresponding feature
// degraded instead of failing.
type Deps struct {
	Source          camera.Source
	Arbiter         *speech.Arbiter
	DetectorFactory func() (detect.Detector, error)
	SceneClassifier scene.Classifier
	OCREngine       ocr.Engine

	// Optional collaborators.
	Metrics *telemetry.Collector
	Sink    *snapshot.Sink
	Events  <-chan Event

	// OCR coordinator options (validation length, timeout).
	OCROptions []ocr.CoordinatorOption

	// Cooldown tracker options (window, clock).
	CooldownOptions []alert.Option
}

// App is the main loop orchestrator.
type App struct {
	cfg    Config
	logger *slog.Logger

	source   camera.Source
	arbiter  *speech.Arbiter
	detector detect.Detector
	sceneSch *scene.Scheduler
	ocrCoord *ocr.Coordinator
	cooldown *alert.CooldownTracker
	recovery *recovery.Manager
	metrics  *telemetry.Collector
	sink     *snapshot.Sink
	events   <-chan Event

	deps Deps

	mu         sync.Mutex
	state      State
	frameIndex uint64

	// pendingOCRTriggers counts reading requests drained from the event
	// channel and not yet submitted. Loop-goroutine only.
	pendingOCRTriggers int

	// announcedDegraded tracks which degradation notices were spoken,
	// so each transition is announced once.
	announcedDegraded map[recovery.Subsystem]bool

	shutdownOnce sync.Once
}

// New creates an orchestrator. Call Init before Run.
func New(cfg Config, deps Deps) (*App, error) {
	if deps.Source == nil {
		return nil, errors.New("app: camera source required")
	}
	if deps.Arbiter == nil {
		return nil, errors.New("app: audio arbiter required")
	}
	if cfg.DetectionStride == 0 {
		cfg.DetectionStride = 3
	}
	if cfg.SceneStride == 0 {
		cfg.SceneStride = 450
	}
	if cfg.ProximityThreshold == 0 {
		cfg.ProximityThreshold = 0.15
	}
	if cfg.ReprobeInterval == 0 {
		cfg.ReprobeInterval = 300
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = telemetry.NewCollector()
	}

	return &App{
		cfg:               cfg,
		logger:            slog.Default().With("component", "app"),
		source:            deps.Source,
		arbiter:           deps.Arbiter,
		recovery:          recovery.NewManager(cfg.ReprobeInterval),
		metrics:           metrics,
		sink:              deps.Sink,
		events:            deps.Events,
		deps:              deps,
		state:             StateStarting,
		announcedDegraded: make(map[recovery.Subsystem]bool),
	}, nil
}

// Init builds the detector and soft-initializes optional features.
// A detection-model failure here is fatal: Shutdown runs and the error
// is returned with the app in StateStopped.
func (a *App) Init() error {
	factory := a.deps.DetectorFactory
	if factory == nil {
		factory = func() (detect.Detector, error) {
			return nil, ErrNoDetector
		}
	}

	detector, err := factory()
	if err != nil {
		d := a.recovery.Handle(recovery.SubsystemDetection, err, 0)
		if d.Kind == recovery.KindFatal {
			a.logger.Error("detection model load failed, cannot start", "error", err)
			a.Shutdown()
			return err
		}
	}
	a.detector = detector

	if a.deps.SceneClassifier != nil {
		a.sceneSch = scene.NewScheduler(a.deps.SceneClassifier, a.cfg.SceneConfidence)
	} else {
		a.recovery.Handle(recovery.SubsystemScene, scene.ErrUnavailable, 0)
	}

	if a.deps.OCREngine != nil {
		a.ocrCoord = ocr.NewCoordinator(a.deps.OCREngine, a.deps.OCROptions...)
	} else {
		a.recovery.Handle(recovery.SubsystemOCR, ocr.ErrEngineUnavailable, 0)
	}

	a.cooldown = alert.NewCooldownTracker(a.deps.CooldownOptions...)

	a.recovery.MarkRunning()
	a.setState(StateRunning)
	a.logger.Info("subsystems initialized",
		"detection_stride", a.cfg.DetectionStride,
		"scene_stride", a.cfg.SceneStride,
		"proximity_threshold", a.cfg.ProximityThreshold,
	)
	return nil
}

// State returns the current lifecycle state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// FrameIndex returns the current frame counter.
func (a *App) FrameIndex() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frameIndex
}

// setState applies a lifecycle transition, ignoring invalid ones.
func (a *App) setState(next State) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == next {
		return
	}
	if !validTransition(a.state, next) {
		return
	}
	a.state = next
	a.metrics.SetState(next.String())
	a.logger.Info("state transition", "state", next.String())
}

// Shutdown releases all owned resources exactly once: capture device,
// audio channel, OCR worker, snapshot sink.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.setState(StateShuttingDown)

		if a.ocrCoord != nil {
			a.ocrCoord.Close()
		}
		if a.sceneSch != nil {
			a.sceneSch.Close()
		}
		if a.detector != nil {
			a.detector.Close()
		}
		a.arbiter.Close()
		if err := a.source.Close(); err != nil {
			a.logger.Warn("capture device close failed", "error", err)
		}
		if a.sink != nil {
			a.sink.Close()
		}

		a.setState(StateStopped)
		a.logger.Info("shutdown complete")
	})
}
