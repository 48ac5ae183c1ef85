package scene

import (
	"errors"
	"image"
	"testing"
)

func testFrame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 64, 64))
}

func TestObserve_AnnouncesOnChange(t *testing.T) {
	mock := NewMock("office", 0.9)
	s := NewScheduler(mock, 0)

	got, ok, err := s.Observe(testFrame())
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	if !ok {
		t.Fatal("Observe() ok = false on first scene, want true")
	}
	if want := "Environment: office"; got != want {
		t.Errorf("announcement = %q, want %q", got, want)
	}
}

func TestObserve_NeverRepeatsUnchangedScene(t *testing.T) {
	mock := NewMock("office", 0.9)
	s := NewScheduler(mock, 0)

	if _, ok, _ := s.Observe(testFrame()); !ok {
		t.Fatal("first Observe ok = false, want true")
	}

	// Same label again: silence, no matter how many times.
	for i := 0; i < 3; i++ {
		if _, ok, _ := s.Observe(testFrame()); ok {
			t.Fatalf("Observe #%d announced unchanged scene", i+2)
		}
	}

	mock.SetScene("street", 0.9)
	got, ok, _ := s.Observe(testFrame())
	if !ok {
		t.Fatal("Observe after change ok = false, want true")
	}
	if want := "Environment: street"; got != want {
		t.Errorf("announcement = %q, want %q", got, want)
	}
}

func TestObserve_LowConfidenceIgnored(t *testing.T) {
	mock := NewMock("office", 0.2)
	s := NewScheduler(mock, 0.3)

	if _, ok, _ := s.Observe(testFrame()); ok {
		t.Error("Observe announced below-threshold scene")
	}
	if got := s.LastAnnounced(); got != "" {
		t.Errorf("LastAnnounced = %q, want empty", got)
	}
}

func TestObserve_ClassifierError(t *testing.T) {
	mock := &Mock{
		ClassifyFunc: func(img image.Image) (string, float64, error) {
			return "", 0, ErrUnavailable
		},
	}
	s := NewScheduler(mock, 0)

	_, ok, err := s.Observe(testFrame())
	if ok {
		t.Error("Observe ok = true on classifier error")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestCurrent_TracksWithoutAnnouncing(t *testing.T) {
	mock := NewMock("office", 0.9)
	s := NewScheduler(mock, 0)

	s.Observe(testFrame())
	s.Observe(testFrame())

	if got := s.Current(); got != "office" {
		t.Errorf("Current = %q, want office", got)
	}
	if got := s.LastAnnounced(); got != "office" {
		t.Errorf("LastAnnounced = %q, want office", got)
	}
}
