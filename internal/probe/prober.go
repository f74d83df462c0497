// Package probe inspects media files with ffprobe and extracts the two
// properties the quality filter cares about: container duration and the
// frame rate of the first usable video stream.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single ffprobe invocation.
const DefaultTimeout = 45 * time.Second

// Info is the result of probing one file.
type Info struct {
	Duration float64 // seconds, from container metadata
	FPS      float64 // frames per second of the first usable video stream
}

// Prober probes a single media file.
//
//go:generate mockgen -source=prober.go -destination=mocks/mock_prober.go -package=mocks
type Prober interface {
	Probe(ctx context.Context, path string) (*Info, error)
}

// FFProbe runs the ffprobe binary. It performs no filesystem mutation.
type FFProbe struct {
	binary  string
	timeout time.Duration
}

// NewFFProbe creates a prober. An empty binary means "ffprobe" on PATH and a
// zero timeout means DefaultTimeout.
func NewFFProbe(binary string, timeout time.Duration) *FFProbe {
	if binary == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FFProbe{binary: binary, timeout: timeout}
}

// Args returns the ffprobe arguments used for path.
func Args(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type,r_frame_rate",
		"-of", "json",
		path,
	}
}

// Probe runs ffprobe against path. A deadline hit yields ErrTimeout; a
// cancelled parent context yields the context's error unchanged; ffprobe
// killed by a signal it did not get from us yields ErrInterrupted.
func (p *FFProbe) Probe(ctx context.Context, path string) (*Info, error) {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, p.binary, Args(path)...)
	cmd.WaitDelay = 2 * time.Second
	isolate(cmd)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(probeCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("ffprobe %q after %s: %w", path, p.timeout, ErrTimeout)
		}
		// Killed from outside (not by our context): the file was never
		// judged, so the verdict must not be treated as a probe failure.
		if killedBySignal(err) {
			return nil, fmt.Errorf("%w: %q: %v", ErrInterrupted, path, err)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: %q: %s", ErrProbeFailed, path, lastLine(msg))
	}

	return ParseJSON(out)
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
