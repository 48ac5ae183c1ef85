package telemetry

import (
	"testing"
	"time"
)

func TestCollector_MarkCycle(t *testing.T) {
	c := NewCollector()

	c.MarkCycle(1, 10*time.Millisecond)
	c.MarkCycle(2, 30*time.Millisecond)

	snap := c.Snapshot()
	if snap.FrameIndex != 2 {
		t.Errorf("FrameIndex = %d, want 2", snap.FrameIndex)
	}
	if snap.CycleLatency != 30*time.Millisecond {
		t.Errorf("CycleLatency = %v, want 30ms", snap.CycleLatency)
	}
	if snap.AvgCycleLatency != 20*time.Millisecond {
		t.Errorf("AvgCycleLatency = %v, want 20ms", snap.AvgCycleLatency)
	}
	if snap.MaxCycleLatency != 30*time.Millisecond {
		t.Errorf("MaxCycleLatency = %v, want 30ms", snap.MaxCycleLatency)
	}
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()

	c.IncAlert()
	c.IncSuppressedAlert()
	c.IncSuppressedAlert()
	c.IncOCRRequest()
	c.IncOCRRejected()
	c.IncSceneChange()
	c.IncCaptureFailure()

	snap := c.Snapshot()
	if snap.AlertCount != 1 {
		t.Errorf("AlertCount = %d, want 1", snap.AlertCount)
	}
	if snap.SuppressedAlerts != 2 {
		t.Errorf("SuppressedAlerts = %d, want 2", snap.SuppressedAlerts)
	}
	if snap.OCRRequests != 1 || snap.OCRRejected != 1 {
		t.Errorf("OCR counters = (%d, %d), want (1, 1)", snap.OCRRequests, snap.OCRRejected)
	}
	if snap.SceneChanges != 1 {
		t.Errorf("SceneChanges = %d, want 1", snap.SceneChanges)
	}
	if snap.CaptureFailures != 1 {
		t.Errorf("CaptureFailures = %d, want 1", snap.CaptureFailures)
	}
}

func TestCollector_StateAndDegraded(t *testing.T) {
	c := NewCollector()

	if got := c.Snapshot().State; got != "starting" {
		t.Errorf("initial State = %q, want starting", got)
	}

	c.SetState("degraded")
	c.SetDegraded([]string{"ocr", "scene"})

	snap := c.Snapshot()
	if snap.State != "degraded" {
		t.Errorf("State = %q, want degraded", snap.State)
	}
	if len(snap.DegradedFeatures) != 2 {
		t.Errorf("DegradedFeatures = %v, want [ocr scene]", snap.DegradedFeatures)
	}
}

func TestCollector_OnUpdateFiresPerCycle(t *testing.T) {
	c := NewCollector()

	var got []Snapshot
	c.OnUpdate(func(s Snapshot) { got = append(got, s) })

	c.MarkCycle(1, time.Millisecond)
	c.MarkCycle(2, time.Millisecond)

	if len(got) != 2 {
		t.Fatalf("OnUpdate fired %d times, want 2", len(got))
	}
	if got[1].FrameIndex != 2 {
		t.Errorf("callback FrameIndex = %d, want 2", got[1].FrameIndex)
	}
}

func TestSnapshot_DegradedIsCopied(t *testing.T) {
	c := NewCollector()
	features := []string{"ocr"}
	c.SetDegraded(features)

	snap := c.Snapshot()
	snap.DegradedFeatures[0] = "mutated"

	if got := c.Snapshot().DegradedFeatures[0]; got != "ocr" {
		t.Errorf("collector state mutated through snapshot: %q", got)
	}
}
