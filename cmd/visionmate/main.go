// Command visionmate runs the assistive-vision loop: continuous frame
// sampling, proximity alerting, on-demand text reading, and
// low-frequency scene labeling, all announced over a single audio
// channel.
//
// Press Enter to read visible text aloud; type q to quit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/visionmate/go-visionmate/internal/config"
	"github.com/visionmate/go-visionmate/internal/log"
	"github.com/visionmate/go-visionmate/pkg/alert"
	"github.com/visionmate/go-visionmate/pkg/app"
	"github.com/visionmate/go-visionmate/pkg/camera"
	"github.com/visionmate/go-visionmate/pkg/detect"
	"github.com/visionmate/go-visionmate/pkg/ocr"
	"github.com/visionmate/go-visionmate/pkg/scene"
	"github.com/visionmate/go-visionmate/pkg/snapshot"
	"github.com/visionmate/go-visionmate/pkg/speech"
	"github.com/visionmate/go-visionmate/pkg/telemetry"
)

func main() {
	cameraIndex := flag.Int("camera", -1, "capture device index (overrides config)")
	modelPath := flag.String("model", "", "detection model path (overrides config)")
	dashboard := flag.Bool("dashboard", false, "enable the localhost diagnostics dashboard")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "visionmate: %v\n", err)
		os.Exit(1)
	}
	if *cameraIndex >= 0 {
		cfg.CameraIndex = *cameraIndex
	}
	if *modelPath != "" {
		cfg.ModelPath = *modelPath
	}
	if *dashboard {
		cfg.DashboardEnabled = true
	}

	log.Init(cfg.LogLevel)
	logger := log.With("component", "main")

	if err := run(cfg); err != nil {
		logger.Error("visionmate exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logger := log.With("component", "main")

	source, err := camera.OpenWebcam(cfg.CameraIndex, cfg.FrameWidth, cfg.FrameHeight)
	if err != nil {
		return fmt.Errorf("open capture device %d: %w", cfg.CameraIndex, err)
	}

	speaker := buildSpeaker(cfg)
	arbiter := speech.NewArbiter(speaker)

	metrics := telemetry.NewCollector()

	var dash *telemetry.Server
	if cfg.DashboardEnabled {
		dash = telemetry.NewServer(cfg.DashboardPort, metrics)
		dash.StartAsync()
		defer dash.Shutdown()
	}

	sink, err := snapshot.NewSink(cfg.SnapshotDir, cfg.SnapshotEnabled)
	if err != nil {
		return fmt.Errorf("snapshot sink: %w", err)
	}

	a, err := app.New(app.Config{
		DetectionStride:    uint64(cfg.DetectionStride),
		SceneStride:        uint64(cfg.SceneStride),
		ProximityThreshold: cfg.ProximityThreshold,
		SceneConfidence:    cfg.SceneConfidenceThreshold,
		CameraFallbacks:    cfg.CameraFallbacks,
		ReprobeInterval:    cfg.ReprobeInterval,
		CycleDelay:         10 * time.Millisecond,
	}, app.Deps{
		Source:          source,
		Arbiter:         arbiter,
		DetectorFactory: detectorFactory(cfg),
		SceneClassifier: buildSceneClassifier(cfg),
		OCREngine:       buildOCREngine(cfg),
		Metrics:         metrics,
		Sink:            sink,
		Events:          app.ReadEvents(os.Stdin),
		OCROptions: []ocr.CoordinatorOption{
			ocr.WithMinTextLength(cfg.MinTextLength),
			ocr.WithTimeout(cfg.OCRTimeout),
		},
		CooldownOptions: []alert.Option{
			alert.WithCooldown(cfg.AlertCooldown),
		},
	})
	if err != nil {
		return err
	}

	if err := a.Init(); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("visionmate starting",
		"camera_index", cfg.CameraIndex,
		"detector_backend", cfg.DetectorBackend,
		"dashboard", cfg.DashboardEnabled,
	)
	return a.Run(ctx)
}

// detectorFactory selects the detection backend. It runs inside
// app.Init so a model-load failure is classified at startup.
func detectorFactory(cfg *config.Config) func() (detect.Detector, error) {
	return func() (detect.Detector, error) {
		switch cfg.DetectorBackend {
		case "onnx":
			c := detect.DefaultONNXConfig()
			c.ModelPath = cfg.ModelPath
			c.LibraryPath = cfg.ONNXLibraryPath
			c.ConfidenceThresh = float32(cfg.ConfidenceThreshold)
			return detect.NewONNX(c)
		default:
			c := detect.DefaultYOLOConfig()
			c.ModelPath = cfg.ModelPath
			c.ConfidenceThresh = float32(cfg.ConfidenceThreshold)
			return detect.NewYOLO(c)
		}
	}
}

// buildSpeaker falls back to log-only announcements when no TTS binary
// is installed. The arbiter still serializes messages either way.
func buildSpeaker(cfg *config.Config) speech.Speaker {
	speaker, err := speech.NewEspeakSpeaker(
		speech.WithEspeakRate(cfg.TTSRate),
		speech.WithEspeakVoice(cfg.TTSVoice),
	)
	if err != nil {
		log.Warn("TTS engine unavailable, announcements will be logged only", "error", err)
		return speech.UnavailableSpeaker{}
	}
	return speaker
}

// buildSceneClassifier returns nil when the feature is disabled or the
// model cannot load; the loop then starts with scene labeling degraded.
func buildSceneClassifier(cfg *config.Config) scene.Classifier {
	if !cfg.SceneEnabled {
		return nil
	}
	classifier, err := scene.NewDNNClassifier(cfg.SceneModelPath, cfg.SceneLabelsPath)
	if err != nil {
		log.Warn("scene classifier unavailable", "error", err)
		return nil
	}
	return classifier
}

// buildOCREngine returns nil when no OCR backend is installed; the
// loop then starts with text reading degraded.
func buildOCREngine(cfg *config.Config) ocr.Engine {
	engine, err := ocr.NewTesseractEngine(
		ocr.WithTesseractLang(cfg.OCRLanguage),
	)
	if err != nil {
		log.Warn("OCR engine unavailable", "error", err)
		return nil
	}
	return engine
}
