package ocr

import (
	"image"

	"github.com/disintegration/imaging"
)

// Preprocess prepares a frame snapshot for the OCR engine: grayscale,
// mild sharpening, and a contrast boost. Engines that do their own
// preprocessing can be wrapped to skip this step.
func Preprocess(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	gray = imaging.Sharpen(gray, 0.5)
	gray = imaging.AdjustContrast(gray, 20)
	return gray
}

// Snapshot makes an independent copy of the frame so the loop can
// recycle its buffer while the worker runs.
func Snapshot(img image.Image) image.Image {
	return imaging.Clone(img)
}
