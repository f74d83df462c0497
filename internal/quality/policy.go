// Package quality decides whether a probed clip belongs in the dataset.
package quality

import (
	"fmt"
	"math"

	"github.com/vmunix/kprep/internal/probe"
)

// Thresholds bound acceptable clips.
type Thresholds struct {
	MinDuration  float64 // seconds, inclusive
	MaxDuration  float64 // seconds, inclusive
	TargetFPS    float64
	FPSTolerance float64 // inclusive
}

// DefaultThresholds are tuned for 10 second, 30 fps Kinetics clips.
var DefaultThresholds = Thresholds{
	MinDuration:  9.5,
	MaxDuration:  10.5,
	TargetFPS:    30,
	FPSTolerance: 1,
}

// Decision is the outcome of evaluating one clip.
type Decision struct {
	Keep   bool
	Reason string
}

// Evaluate applies the ordered checks; the first failing check wins.
func (t Thresholds) Evaluate(info probe.Info) Decision {
	if info.Duration < t.MinDuration || info.Duration > t.MaxDuration {
		return Decision{Reason: fmt.Sprintf("Duration %.2fs", info.Duration)}
	}
	if math.Abs(info.FPS-t.TargetFPS) > t.FPSTolerance {
		return Decision{Reason: fmt.Sprintf("FPS %.2f", info.FPS)}
	}
	return Decision{Keep: true, Reason: "kept"}
}

// FailureAction says what happens to a file whose probe yielded no info.
type FailureAction string

const (
	// FailureDelete treats unprobeable media as unusable and removes it.
	FailureDelete FailureAction = "delete"
	// FailureSkip leaves unprobeable media on disk.
	FailureSkip FailureAction = "skip"
)

// ParseFailureAction converts a config string into a FailureAction.
func ParseFailureAction(s string) (FailureAction, error) {
	switch FailureAction(s) {
	case FailureDelete, "":
		return FailureDelete, nil
	case FailureSkip:
		return FailureSkip, nil
	default:
		return "", fmt.Errorf("unknown probe failure action %q (want delete or skip)", s)
	}
}
