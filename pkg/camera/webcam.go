package camera

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Webcam is a Source backed by a local capture device via gocv.
type Webcam struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	index  int
	closed bool
}

// OpenWebcam opens the capture device at the given index.
func OpenWebcam(index int, width, height int) (*Webcam, error) {
	cap, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, &CaptureError{Index: index, Err: err}
	}

	if width > 0 {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(width))
	}
	if height > 0 {
		cap.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}

	return &Webcam{
		cap:   cap,
		mat:   gocv.NewMat(),
		index: index,
	}, nil
}

// Read captures the next frame from the device.
func (w *Webcam) Read() (*Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.cap == nil {
		return nil, ErrDeviceClosed
	}

	if ok := w.cap.Read(&w.mat); !ok {
		return nil, &CaptureError{Index: w.index, Err: ErrNoFrame}
	}
	if w.mat.Empty() {
		return nil, &CaptureError{Index: w.index, Err: ErrNoFrame}
	}

	img, err := w.mat.ToImage()
	if err != nil {
		return nil, &CaptureError{Index: w.index, Err: err}
	}

	return &Frame{
		Image:  img,
		Width:  w.mat.Cols(),
		Height: w.mat.Rows(),
		At:     time.Now(),
	}, nil
}

// Reopen closes the current device and opens the one at index.
func (w *Webcam) Reopen(index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cap != nil {
		w.cap.Close()
		w.cap = nil
	}

	cap, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return &CaptureError{Index: index, Err: err}
	}

	w.cap = cap
	w.index = index
	w.closed = false
	return nil
}

// Index returns the current device index.
func (w *Webcam) Index() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index
}

// Close releases the device and the reusable capture buffer.
// Safe to call more than once.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var err error
	if w.cap != nil {
		err = w.cap.Close()
		w.cap = nil
	}
	w.mat.Close()
	return err
}

// Verify Webcam implements Source at compile time.
var _ Source = (*Webcam)(nil)
