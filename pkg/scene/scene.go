// Package scene provides low-frequency environment labeling.
//
// The scheduler is invoked at a coarse stride, far sparser than object
// detection, and only announces a scene when the label actually
// changes. A classifier failure silently disables the feature without
// touching detection or text reading.
package scene

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"
)

// ErrUnavailable is returned when the classifier backend cannot run.
var ErrUnavailable = errors.New("scene: classifier unavailable")

// DefaultConfidenceThreshold is the minimum confidence for a scene
// announcement.
const DefaultConfidenceThreshold = 0.3

// AnnouncementFormat is the spoken template for scene changes.
const AnnouncementFormat = "Environment: %s"

// Classifier is the external scene-classification adapter.
type Classifier interface {
	// Classify labels the overall environment in the image.
	Classify(img image.Image) (label string, confidence float64, err error)

	// Close releases classifier resources.
	Close() error
}

// Scheduler tracks the current and last-announced scene labels and
// decides when a change is worth announcing.
type Scheduler struct {
	classifier Classifier

	mu            sync.Mutex
	current       string
	lastAnnounced string
	lastUpdate    time.Time
	threshold     float64
}

// NewScheduler creates a scheduler around the given classifier.
func NewScheduler(classifier Classifier, threshold float64) *Scheduler {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	return &Scheduler{
		classifier: classifier,
		threshold:  threshold,
	}
}

// Observe classifies the frame and returns an announcement when the
// scene changed. ok is false when there is nothing to announce: low
// confidence, unchanged label, or no classifier result.
//
// An announcement is emitted only when the new label differs from the
// last announced one; repeating the same label yields nothing.
func (s *Scheduler) Observe(img image.Image) (announcement string, ok bool, err error) {
	label, confidence, err := s.classifier.Classify(img)
	if err != nil {
		return "", false, err
	}
	if label == "" || confidence < s.threshold {
		return "", false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = label
	s.lastUpdate = time.Now()

	if label == s.lastAnnounced {
		return "", false, nil
	}

	s.lastAnnounced = label
	return fmt.Sprintf(AnnouncementFormat, label), true, nil
}

// Current returns the most recently classified scene label.
func (s *Scheduler) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// LastAnnounced returns the last announced scene label.
func (s *Scheduler) LastAnnounced() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAnnounced
}

// Close releases the underlying classifier.
func (s *Scheduler) Close() error {
	return s.classifier.Close()
}
