// Package detect provides object detection for visionmate.
//
// A Detector wraps an external detection model behind a synchronous
// call. Results are filtered to the fixed target label set with
// confidence above the configured operating threshold; callers never
// see raw model output.
package detect

import (
	"image"
)

// Label identifies a detectable object class.
type Label string

// Target object classes (COCO subset relevant to navigation).
const (
	LabelPerson Label = "person"
	LabelChair  Label = "chair"
	LabelCar    Label = "car"
	LabelDoor   Label = "door"
)

// cocoTargets maps COCO class IDs to target labels.
// Door is not in standard COCO; it only appears with custom models.
var cocoTargets = map[int]Label{
	0:  LabelPerson,
	2:  LabelCar,
	56: LabelChair,
}

// TargetForClassID returns the target label for a COCO class ID,
// or false if the class is not in the target set.
func TargetForClassID(id int) (Label, bool) {
	l, ok := cocoTargets[id]
	return l, ok
}

// Detection is one detected object in a frame.
// Immutable once produced; owned by the cycle that produced it.
type Detection struct {
	// Label is the object class.
	Label Label

	// Confidence is the model confidence in [0,1].
	Confidence float64

	// Box is the bounding box in frame pixel coordinates.
	Box image.Rectangle
}

// Area returns the bounding box area in pixels.
func (d Detection) Area() float64 {
	return float64(d.Box.Dx()) * float64(d.Box.Dy())
}

// ProximityRatio returns the bounding box area divided by the frame
// area. Used as a distance-free closeness heuristic.
func (d Detection) ProximityRatio(frameWidth, frameHeight int) float64 {
	frameArea := float64(frameWidth) * float64(frameHeight)
	if frameArea <= 0 {
		return 0
	}
	return d.Area() / frameArea
}

// Detector is the interface for object detection backends.
type Detector interface {
	// Detect finds target objects in the image.
	// Returned detections are filtered to the target label set with
	// confidence above the operating threshold.
	Detect(img image.Image) ([]Detection, error)

	// Close releases model resources.
	Close() error
}
