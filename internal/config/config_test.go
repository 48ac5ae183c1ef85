package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		LogLevel:                 "info",
		CameraIndex:              0,
		CameraFallbacks:          []int{1, 2},
		FrameWidth:               640,
		FrameHeight:              480,
		DetectorBackend:          "gocv",
		ModelPath:                "models/yolov8n.onnx",
		ConfidenceThreshold:      0.5,
		ProximityThreshold:       0.15,
		DetectionStride:          3,
		AlertCooldown:            5 * time.Second,
		SceneEnabled:             true,
		SceneStride:              450,
		SceneConfidenceThreshold: 0.3,
		MinTextLength:            3,
		OCRTimeout:               10 * time.Second,
		ReprobeInterval:          300,
	}
}

func TestValidate_Defaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero detection stride", func(c *Config) { c.DetectionStride = 0 }},
		{"zero scene stride", func(c *Config) { c.SceneStride = 0 }},
		{"proximity threshold zero", func(c *Config) { c.ProximityThreshold = 0 }},
		{"proximity threshold one", func(c *Config) { c.ProximityThreshold = 1 }},
		{"confidence above one", func(c *Config) { c.ConfidenceThreshold = 1.5 }},
		{"negative cooldown", func(c *Config) { c.AlertCooldown = -time.Second }},
		{"unknown backend", func(c *Config) { c.DetectorBackend = "tflite" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoad_DefaultsApply(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DetectionStride != 3 {
		t.Errorf("DetectionStride = %d, want 3", cfg.DetectionStride)
	}
	if cfg.ProximityThreshold != 0.15 {
		t.Errorf("ProximityThreshold = %v, want 0.15", cfg.ProximityThreshold)
	}
	if cfg.AlertCooldown != 5*time.Second {
		t.Errorf("AlertCooldown = %v, want 5s", cfg.AlertCooldown)
	}
	if cfg.OCRTimeout != 10*time.Second {
		t.Errorf("OCRTimeout = %v, want 10s", cfg.OCRTimeout)
	}
	if cfg.SceneStride != 450 {
		t.Errorf("SceneStride = %d, want 450", cfg.SceneStride)
	}
}
