// Package recovery centralizes failure classification and the
// degraded-feature registry.
//
// Classify is a pure decision function so the policy table can be
// tested without any I/O. The Manager layers bookkeeping on top:
// which features are currently degraded, how many capture retries
// remain, and when a degraded feature is due for a re-probe.
package recovery

import (
	"errors"
	"fmt"

	"github.com/visionmate/go-visionmate/pkg/camera"
	"github.com/visionmate/go-visionmate/pkg/detect"
)

// ErrResourceExhausted marks unrecoverable resource exhaustion.
// Wrap out-of-memory or descriptor-exhaustion failures with it.
var ErrResourceExhausted = errors.New("recovery: resource exhausted")

// Subsystem identifies the failing component.
type Subsystem string

// Subsystems known to the recovery policy.
const (
	SubsystemCapture   Subsystem = "capture"
	SubsystemDetection Subsystem = "detection"
	SubsystemOCR       Subsystem = "ocr"
	SubsystemScene     Subsystem = "scene"
	SubsystemAudio     Subsystem = "audio"
)

// Kind is the recovery action class.
type Kind int

const (
	// KindRetry means retry the operation, possibly with an alternate
	// device, up to Decision.Attempts times.
	KindRetry Kind = iota

	// KindDegrade means disable the feature and continue; the rest of
	// the system is unaffected.
	KindDegrade

	// KindFatal means no safe continuation is possible; shut down.
	KindFatal
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindRetry:
		return "retry"
	case KindDegrade:
		return "degrade"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Decision is the outcome of classifying a failure.
type Decision struct {
	Kind Kind

	// Attempts bounds retries for KindRetry.
	Attempts int
}

// String returns a readable decision.
func (d Decision) String() string {
	if d.Kind == KindRetry {
		return fmt.Sprintf("retry(%d)", d.Attempts)
	}
	return d.Kind.String()
}

// DefaultCaptureRetries bounds alternate-device capture retries.
const DefaultCaptureRetries = 3

// Classify maps a subsystem failure to a recovery decision.
// The policy table is fixed and deterministic:
//
//	capture failure            -> retry alternate devices, then degrade
//	detection load at startup  -> fatal
//	detection failure at run   -> degrade
//	ocr/scene/audio failure    -> degrade
//	resource exhaustion        -> fatal
func Classify(sub Subsystem, err error, startup bool) Decision {
	if err == nil {
		return Decision{Kind: KindRetry, Attempts: 0}
	}

	if errors.Is(err, ErrResourceExhausted) {
		return Decision{Kind: KindFatal}
	}

	switch sub {
	case SubsystemCapture:
		var capErr *camera.CaptureError
		if errors.As(err, &capErr) || errors.Is(err, camera.ErrDeviceClosed) {
			return Decision{Kind: KindRetry, Attempts: DefaultCaptureRetries}
		}
		return Decision{Kind: KindRetry, Attempts: DefaultCaptureRetries}

	case SubsystemDetection:
		if startup && (errors.Is(err, detect.ErrModelNotFound) || errors.Is(err, detect.ErrModelLoad)) {
			return Decision{Kind: KindFatal}
		}
		if startup {
			return Decision{Kind: KindFatal}
		}
		return Decision{Kind: KindDegrade}

	case SubsystemOCR, SubsystemScene, SubsystemAudio:
		return Decision{Kind: KindDegrade}

	default:
		return Decision{Kind: KindDegrade}
	}
}
