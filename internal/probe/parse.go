package probe

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  *ffprobeFormat  `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	RFrameRate string `json:"r_frame_rate"`
}

// ParseJSON converts raw ffprobe JSON output into an Info. Both duration and
// frame rate must be present for the result to be valid.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*Info, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if raw.Format == nil {
		return nil, ErrNoDuration
	}
	duration, err := parseDuration(raw.Format.Duration)
	if err != nil {
		return nil, err
	}

	fps, err := firstVideoFrameRate(raw.Streams)
	if err != nil {
		return nil, err
	}

	return &Info{Duration: duration, FPS: fps}, nil
}

func parseDuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, ErrNoDuration
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0, fmt.Errorf("%w: %q", ErrNoDuration, s)
	}
	return d, nil
}

// firstVideoFrameRate scans streams in ffprobe order and returns the frame
// rate of the first video stream whose r_frame_rate parses. Degenerate
// values are skipped, not fatal.
func firstVideoFrameRate(streams []ffprobeStream) (float64, error) {
	for _, s := range streams {
		if s.CodecType != "video" {
			continue
		}
		rate := strings.TrimSpace(s.RFrameRate)
		if rate == "" || rate == "0/0" {
			continue
		}
		fps, err := ParseFrameRate(rate)
		if err != nil {
			continue
		}
		return fps, nil
	}
	return 0, ErrNoFrameRate
}

// ParseFrameRate converts a rational "N/D" (or a bare integer "N") to
// frames per second using exact arithmetic before the final float
// conversion, so "30000/1001" yields 29.97002997...
func ParseFrameRate(s string) (float64, error) {
	num, den, found := strings.Cut(strings.TrimSpace(s), "/")
	if !found {
		den = "1"
	}

	n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("frame rate %q: numerator: %w", s, err)
	}
	d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("frame rate %q: denominator: %w", s, err)
	}
	if d == 0 {
		return 0, fmt.Errorf("frame rate %q: zero denominator", s)
	}

	fps, _ := big.NewRat(n, d).Float64()
	return fps, nil
}
