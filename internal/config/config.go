// Package config provides configuration loading for go-visionmate commands.
//
// Settings are resolved from (in order of precedence) environment
// variables with the VISIONMATE_ prefix, an optional visionmate.yaml
// config file, and built-in defaults. All values are fixed at startup;
// nothing is hot-reloaded while the loop is running.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all tunables for the visionmate daemon.
type Config struct {
	// Logging
	LogLevel string `mapstructure:"log_level"`

	// Camera
	CameraIndex     int   `mapstructure:"camera_index"`
	CameraFallbacks []int `mapstructure:"camera_fallbacks"`
	FrameWidth      int   `mapstructure:"frame_width"`
	FrameHeight     int   `mapstructure:"frame_height"`

	// Detection
	DetectorBackend     string  `mapstructure:"detector_backend"` // "gocv" or "onnx"
	ModelPath           string  `mapstructure:"model_path"`
	ONNXLibraryPath     string  `mapstructure:"onnx_library_path"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	ProximityThreshold  float64 `mapstructure:"proximity_threshold"`
	DetectionStride     int     `mapstructure:"detection_stride"`

	// Alerts
	AlertCooldown time.Duration `mapstructure:"alert_cooldown"`

	// Scene classification
	SceneEnabled             bool    `mapstructure:"scene_enabled"`
	SceneStride              int     `mapstructure:"scene_stride"`
	SceneConfidenceThreshold float64 `mapstructure:"scene_confidence_threshold"`
	SceneModelPath           string  `mapstructure:"scene_model_path"`
	SceneLabelsPath          string  `mapstructure:"scene_labels_path"`

	// OCR
	MinTextLength int           `mapstructure:"min_text_length"`
	OCRTimeout    time.Duration `mapstructure:"ocr_timeout"`
	OCRLanguage   string        `mapstructure:"ocr_language"`

	// Speech
	TTSRate  int    `mapstructure:"tts_rate"`
	TTSVoice string `mapstructure:"tts_voice"`

	// Recovery
	ReprobeInterval int `mapstructure:"reprobe_interval"` // cycles between degraded-feature probes

	// Telemetry dashboard (localhost diagnostics only)
	DashboardEnabled bool   `mapstructure:"dashboard_enabled"`
	DashboardPort    string `mapstructure:"dashboard_port"`

	// Debug frame snapshots
	SnapshotEnabled bool   `mapstructure:"snapshot_enabled"`
	SnapshotDir     string `mapstructure:"snapshot_dir"`
}

// Load reads configuration from file and environment.
// A missing config file is not an error; defaults apply.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("camera_index", 0)
	v.SetDefault("camera_fallbacks", []int{1, 2})
	v.SetDefault("frame_width", 640)
	v.SetDefault("frame_height", 480)
	v.SetDefault("detector_backend", "gocv")
	v.SetDefault("model_path", "models/yolov8n.onnx")
	v.SetDefault("onnx_library_path", "")
	v.SetDefault("confidence_threshold", 0.5)
	v.SetDefault("proximity_threshold", 0.15)
	v.SetDefault("detection_stride", 3)
	v.SetDefault("alert_cooldown", 5*time.Second)
	v.SetDefault("scene_enabled", true)
	v.SetDefault("scene_stride", 450)
	v.SetDefault("scene_confidence_threshold", 0.3)
	v.SetDefault("scene_model_path", "models/scene_mobilenet.onnx")
	v.SetDefault("scene_labels_path", "models/scene_labels.txt")
	v.SetDefault("min_text_length", 3)
	v.SetDefault("ocr_timeout", 10*time.Second)
	v.SetDefault("ocr_language", "eng")
	v.SetDefault("tts_rate", 165)
	v.SetDefault("tts_voice", "en")
	v.SetDefault("reprobe_interval", 300)
	v.SetDefault("dashboard_enabled", false)
	v.SetDefault("dashboard_port", "8077")
	v.SetDefault("snapshot_enabled", false)
	v.SetDefault("snapshot_dir", "snapshots")

	v.SetConfigName("visionmate")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.visionmate")

	v.SetEnvPrefix("visionmate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that loaded values are usable.
func (c *Config) Validate() error {
	if c.DetectionStride < 1 {
		return fmt.Errorf("config: detection_stride must be >= 1, got %d", c.DetectionStride)
	}
	if c.SceneStride < 1 {
		return fmt.Errorf("config: scene_stride must be >= 1, got %d", c.SceneStride)
	}
	if c.ProximityThreshold <= 0 || c.ProximityThreshold >= 1 {
		return fmt.Errorf("config: proximity_threshold must be in (0,1), got %v", c.ProximityThreshold)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("config: confidence_threshold must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.AlertCooldown <= 0 {
		return fmt.Errorf("config: alert_cooldown must be positive, got %v", c.AlertCooldown)
	}
	switch c.DetectorBackend {
	case "gocv", "onnx":
	default:
		return fmt.Errorf("config: unknown detector_backend %q", c.DetectorBackend)
	}
	return nil
}
