package detect

import (
	"fmt"
	"image"
	"os"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNX model tensor layout for YOLOv8n.
const (
	onnxInputWidth  = 640
	onnxInputHeight = 640
	onnxOutputCols  = 84 // 4 bbox + 80 class scores
	onnxOutputRows  = 8400
)

// ONNXConfig holds onnxruntime detector configuration.
type ONNXConfig struct {
	ModelPath        string
	LibraryPath      string // onnxruntime shared library; empty uses the process default
	ConfidenceThresh float32
	IoUThresh        float32
}

// DefaultONNXConfig returns production defaults for YOLOv8n via onnxruntime.
func DefaultONNXConfig() ONNXConfig {
	return ONNXConfig{
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.5,
		IoUThresh:        0.45,
	}
}

// ONNXDetector runs YOLOv8 through onnxruntime directly, for hosts
// without an OpenCV DNN build.
type ONNXDetector struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	config  ONNXConfig
	mu      sync.Mutex
}

// NewONNX creates an onnxruntime-backed detector.
// The onnxruntime environment must be initialized once per process;
// this constructor handles that on first use.
func NewONNX(cfg ONNXConfig) (*ONNXDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
		}
	}

	inputShape := ort.NewShape(1, 3, onnxInputHeight, onnxInputWidth)
	outputShape := ort.NewShape(1, onnxOutputCols, onnxOutputRows)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("%w: input tensor: %v", ErrModelLoad, err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("%w: output tensor: %v", ErrModelLoad, err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("%w: session: %v", ErrModelLoad, err)
	}

	return &ONNXDetector{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		config:  cfg,
	}, nil
}

// Detect finds target objects in the image.
func (d *ONNXDetector) Detect(img image.Image) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	resized := imaging.Resize(img, onnxInputWidth, onnxInputHeight, imaging.Linear)
	fillInputTensor(resized, d.input.GetData())

	if err := d.session.Run(); err != nil {
		return nil, &BackendError{Backend: "onnx", Err: err}
	}

	return d.parseOutput(d.output.GetData(), img.Bounds().Dx(), img.Bounds().Dy()), nil
}

// fillInputTensor writes the image into the CHW float32 buffer the
// model expects, normalized to [0,1].
func fillInputTensor(img *image.NRGBA, buffer []float32) {
	channelSize := onnxInputWidth * onnxInputHeight
	for y := 0; y < onnxInputHeight; y++ {
		row := y * img.Stride
		for x := 0; x < onnxInputWidth; x++ {
			i := row + x*4
			idx := y*onnxInputWidth + x
			buffer[idx] = float32(img.Pix[i]) / 255.0
			buffer[channelSize+idx] = float32(img.Pix[i+1]) / 255.0
			buffer[2*channelSize+idx] = float32(img.Pix[i+2]) / 255.0
		}
	}
}

// parseOutput converts the raw output tensor into filtered detections.
func (d *ONNXDetector) parseOutput(data []float32, imgW, imgH int) []Detection {
	type candidate struct {
		det   Detection
		score float32
	}
	var candidates []candidate

	sx := float32(imgW) / float32(onnxInputWidth)
	sy := float32(imgH) / float32(onnxInputHeight)

	for i := 0; i < onnxOutputRows; i++ {
		maxScore := float32(0)
		maxClassID := 0

		for c := 4; c < onnxOutputCols; c++ {
			score := data[c*onnxOutputRows+i]
			if score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}

		if maxScore < d.config.ConfidenceThresh {
			continue
		}
		label, ok := TargetForClassID(maxClassID)
		if !ok {
			continue
		}

		cx := data[0*onnxOutputRows+i]
		cy := data[1*onnxOutputRows+i]
		w := data[2*onnxOutputRows+i]
		h := data[3*onnxOutputRows+i]

		box := image.Rect(
			int((cx-w/2)*sx), int((cy-h/2)*sy),
			int((cx+w/2)*sx), int((cy+h/2)*sy),
		)

		candidates = append(candidates, candidate{
			det: Detection{
				Label:      label,
				Confidence: float64(maxScore),
				Box:        box,
			},
			score: maxScore,
		})
	}

	// Greedy NMS, highest score first
	sort.Slice(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	var kept []Detection
	for _, c := range candidates {
		suppressed := false
		for _, k := range kept {
			if c.det.Label == k.Label && iou(c.det.Box, k.Box) > float64(d.config.IoUThresh) {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c.det)
		}
	}

	return kept
}

// iou computes intersection-over-union for two boxes.
func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := float64(inter.Dx()) * float64(inter.Dy())
	union := float64(a.Dx())*float64(a.Dy()) + float64(b.Dx())*float64(b.Dy()) - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}

// Close releases the session and tensors.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.output != nil {
		d.output.Destroy()
		d.output = nil
	}
	return nil
}

// Verify ONNXDetector implements Detector at compile time.
var _ Detector = (*ONNXDetector)(nil)
