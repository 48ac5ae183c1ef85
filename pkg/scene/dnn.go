package scene

import (
	"bufio"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// DNNClassifier labels the environment with an ONNX classification
// network (MobileNet-class, 224x224 input) through the OpenCV DNN
// module.
type DNNClassifier struct {
	net    gocv.Net
	labels []string
	closed bool
}

var _ Classifier = (*DNNClassifier)(nil)

// NewDNNClassifier loads the model and its labels file (one label per
// line, row order matching the network output).
func NewDNNClassifier(modelPath, labelsPath string) (*DNNClassifier, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("%w: model %s: %v", ErrUnavailable, modelPath, err)
	}

	labels, err := loadLabels(labelsPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: failed to load %s", ErrUnavailable, modelPath)
	}

	return &DNNClassifier{net: net, labels: labels}, nil
}

func loadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: labels %s: %v", ErrUnavailable, path, err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			labels = append(labels, line)
		}
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: empty labels file %s", ErrUnavailable, path)
	}
	return labels, scanner.Err()
}

// Classify returns the top-1 label and its softmax score.
func (c *DNNClassifier) Classify(img image.Image) (string, float64, error) {
	if c.closed {
		return "", 0, ErrUnavailable
	}
	if img == nil {
		return "", 0, fmt.Errorf("%w: nil image", ErrUnavailable)
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return "", 0, fmt.Errorf("%w: convert frame: %v", ErrUnavailable, err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(224, 224),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	c.net.SetInput(blob, "")
	out := c.net.Forward("")
	defer out.Close()

	flat, err := out.DataPtrFloat32()
	if err != nil {
		return "", 0, fmt.Errorf("%w: read output: %v", ErrUnavailable, err)
	}

	best, bestScore := -1, float32(0)
	for i, score := range flat {
		if i >= len(c.labels) {
			break
		}
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return "", 0, nil
	}
	return c.labels[best], float64(bestScore), nil
}

// Close releases the network.
func (c *DNNClassifier) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.net.Close()
}
