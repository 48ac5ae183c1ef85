// Package snapshot writes debug frame artifacts to disk.
//
// The sink is disabled unless explicitly enabled by configuration and
// writes happen on a dedicated goroutine, so a slow disk can never
// stall the sampling loop. Frames offered while the writer is behind
// are dropped.
package snapshot

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// Sink saves frame snapshots as JPEG files.
type Sink struct {
	dir     string
	enabled bool
	logger  *slog.Logger

	frames chan tagged
	once   sync.Once
	done   chan struct{}
}

type tagged struct {
	img image.Image
	tag string
}

// NewSink creates a sink writing into dir. When enabled is false every
// method is a no-op.
func NewSink(dir string, enabled bool) (*Sink, error) {
	s := &Sink{
		dir:     dir,
		enabled: enabled,
		logger:  slog.Default().With("component", "snapshot.sink"),
		frames:  make(chan tagged, 4),
		done:    make(chan struct{}),
	}

	if !enabled {
		return s, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot: create dir: %w", err)
	}

	go s.writeLoop()
	return s, nil
}

// Save offers a frame for writing. Non-blocking; drops the frame when
// the writer is behind.
func (s *Sink) Save(img image.Image, tag string) {
	if !s.enabled || img == nil {
		return
	}

	select {
	case s.frames <- tagged{img: imaging.Clone(img), tag: tag}:
	default:
		s.logger.Debug("snapshot dropped, writer behind", "tag", tag)
	}
}

// writeLoop drains the frame channel until Close.
func (s *Sink) writeLoop() {
	for {
		select {
		case t := <-s.frames:
			name := fmt.Sprintf("%s_%s.jpg", t.tag, time.Now().Format("20060102_150405.000"))
			path := filepath.Join(s.dir, name)
			if err := imaging.Save(t.img, path, imaging.JPEGQuality(80)); err != nil {
				s.logger.Warn("snapshot write failed", "path", path, "error", err)
			}
		case <-s.done:
			return
		}
	}
}

// Close stops the writer. Safe to call more than once.
func (s *Sink) Close() {
	if !s.enabled {
		return
	}
	s.once.Do(func() {
		close(s.done)
	})
}
