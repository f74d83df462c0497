package probe

import "errors"

// Sentinel errors for the probe package. Every probe failure wraps exactly
// one of these so callers can classify it with errors.Is.
var (
	// ErrProbeFailed is returned when ffprobe exits non-zero or cannot start.
	ErrProbeFailed = errors.New("ffprobe failed")

	// ErrTimeout is returned when a single probe exceeds its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrMalformed is returned when ffprobe output is not valid JSON.
	ErrMalformed = errors.New("malformed ffprobe output")

	// ErrNoDuration is returned when the container duration is missing or invalid.
	ErrNoDuration = errors.New("no valid duration")

	// ErrInterrupted is returned when ffprobe was killed by a signal. The
	// file was not evaluated and should be retried.
	ErrInterrupted = errors.New("ffprobe interrupted")

	// ErrNoFrameRate is returned when no video stream carries a usable frame rate.
	ErrNoFrameRate = errors.New("no valid frame rate")
)

// Reason returns a short operator-facing label for a probe error.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrInterrupted):
		return "interrupted"
	case errors.Is(err, ErrNoDuration):
		return "no duration"
	case errors.Is(err, ErrNoFrameRate):
		return "no frame rate"
	case errors.Is(err, ErrMalformed):
		return "malformed probe output"
	case errors.Is(err, ErrProbeFailed):
		return "probe failed"
	default:
		return err.Error()
	}
}
