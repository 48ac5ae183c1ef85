package ocr

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// TesseractEngine extracts text by shelling out to the tesseract CLI.
// Each extraction writes the preprocessed frame to a temp file and
// reads text from stdout.
type TesseractEngine struct {
	binary string
	lang   string
	tmpDir string
}

var _ Engine = (*TesseractEngine)(nil)

// TesseractOption configures the engine.
type TesseractOption func(*TesseractEngine)

// WithTesseractBinary overrides the binary name.
func WithTesseractBinary(binary string) TesseractOption {
	return func(e *TesseractEngine) { e.binary = binary }
}

// WithTesseractLang sets the recognition language.
func WithTesseractLang(lang string) TesseractOption {
	return func(e *TesseractEngine) { e.lang = lang }
}

// NewTesseractEngine creates an engine. Returns ErrEngineUnavailable
// when the binary is not on PATH.
func NewTesseractEngine(opts ...TesseractOption) (*TesseractEngine, error) {
	e := &TesseractEngine{
		binary: "tesseract",
		lang:   "eng",
		tmpDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if _, err := exec.LookPath(e.binary); err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrEngineUnavailable, e.binary)
	}
	return e, nil
}

// ExtractText runs recognition on the image and returns raw text.
func (e *TesseractEngine) ExtractText(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("%w: nil image", ErrEngineUnavailable)
	}

	f, err := os.CreateTemp(e.tmpDir, "visionmate_ocr_*.png")
	if err != nil {
		return "", fmt.Errorf("ocr: temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := imaging.Save(Preprocess(img), path); err != nil {
		return "", fmt.Errorf("ocr: write frame: %w", err)
	}

	var out, stderr bytes.Buffer
	cmd := exec.Command(e.binary, path, "stdout", "-l", e.lang, "--psm", "3")
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrEngineUnavailable,
			filepath.Base(e.binary), err)
	}
	return out.String(), nil
}

// Close releases engine resources. The CLI engine holds none.
func (e *TesseractEngine) Close() error {
	return nil
}
