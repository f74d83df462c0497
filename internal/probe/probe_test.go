package probe

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		duration float64
		fps      float64
		err      error
	}{
		{
			name:     "ntsc video",
			json:     `{"streams":[{"codec_type":"video","r_frame_rate":"30000/1001"}],"format":{"duration":"10.020000"}}`,
			duration: 10.02,
			fps:      30000.0 / 1001.0,
		},
		{
			name:     "audio stream first",
			json:     `{"streams":[{"codec_type":"audio","r_frame_rate":"0/0"},{"codec_type":"video","r_frame_rate":"30/1"}],"format":{"duration":"10.0"}}`,
			duration: 10,
			fps:      30,
		},
		{
			name:     "degenerate video stream skipped",
			json:     `{"streams":[{"codec_type":"video","r_frame_rate":"0/0"},{"codec_type":"video","r_frame_rate":"25/1"}],"format":{"duration":"9.6"}}`,
			duration: 9.6,
			fps:      25,
		},
		{
			name:     "unparseable rate skipped",
			json:     `{"streams":[{"codec_type":"video","r_frame_rate":"abc/1"},{"codec_type":"video","r_frame_rate":"24000/1001"}],"format":{"duration":"10.5"}}`,
			duration: 10.5,
			fps:      24000.0 / 1001.0,
		},
		{
			name:     "bare integer rate",
			json:     `{"streams":[{"codec_type":"video","r_frame_rate":"30"}],"format":{"duration":"10"}}`,
			duration: 10,
			fps:      30,
		},
		{
			name: "missing format",
			json: `{"streams":[{"codec_type":"video","r_frame_rate":"30/1"}]}`,
			err:  ErrNoDuration,
		},
		{
			name: "duration N/A",
			json: `{"streams":[{"codec_type":"video","r_frame_rate":"30/1"}],"format":{"duration":"N/A"}}`,
			err:  ErrNoDuration,
		},
		{
			name: "duration garbage",
			json: `{"streams":[{"codec_type":"video","r_frame_rate":"30/1"}],"format":{"duration":"ten"}}`,
			err:  ErrNoDuration,
		},
		{
			name: "no video stream",
			json: `{"streams":[{"codec_type":"audio","r_frame_rate":"0/0"}],"format":{"duration":"10"}}`,
			err:  ErrNoFrameRate,
		},
		{
			name: "only zero denominator",
			json: `{"streams":[{"codec_type":"video","r_frame_rate":"30/0"}],"format":{"duration":"10"}}`,
			err:  ErrNoFrameRate,
		},
		{
			name: "malformed",
			json: `{"streams":[`,
			err:  ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseJSON([]byte(tt.json))
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				assert.Nil(t, info)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.duration, info.Duration, 1e-9)
			assert.InDelta(t, tt.fps, info.FPS, 1e-9)
		})
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"30/1", 30, false},
		{"30000/1001", 29.97002997002997, false},
		{"60000/1001", 59.94005994005994, false},
		{"25", 25, false},
		{" 24/1 ", 24, false},
		{"0/0", 0, true},
		{"30/0", 0, true},
		{"x/1", 0, true},
		{"30/y", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFrameRate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestReason(t *testing.T) {
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, "timeout", Reason(ErrTimeout))
	assert.Equal(t, "no duration", Reason(ErrNoDuration))
	assert.Equal(t, "no frame rate", Reason(ErrNoFrameRate))
	assert.Equal(t, "probe failed", Reason(errors.Join(ErrProbeFailed, errors.New("exit 1"))))
	assert.Equal(t, "boom", Reason(errors.New("boom")))
}

// fakeFFProbe writes an executable shell script standing in for ffprobe.
func fakeFFProbe(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestFFProbe_Success(t *testing.T) {
	bin := fakeFFProbe(t, `echo '{"streams":[{"codec_type":"video","r_frame_rate":"30/1"}],"format":{"duration":"10.01"}}'`)

	info, err := NewFFProbe(bin, time.Second).Probe(context.Background(), "clip.mp4")
	require.NoError(t, err)
	assert.InDelta(t, 10.01, info.Duration, 1e-9)
	assert.InDelta(t, 30.0, info.FPS, 1e-9)
}

func TestFFProbe_NonZeroExit(t *testing.T) {
	bin := fakeFFProbe(t, `echo "clip.mp4: Invalid data found when processing input" >&2; exit 1`)

	_, err := NewFFProbe(bin, time.Second).Probe(context.Background(), "clip.mp4")
	require.ErrorIs(t, err, ErrProbeFailed)
	assert.Contains(t, err.Error(), "Invalid data found")
}

func TestFFProbe_Timeout(t *testing.T) {
	bin := fakeFFProbe(t, `exec sleep 5`)

	start := time.Now()
	_, err := NewFFProbe(bin, 100*time.Millisecond).Probe(context.Background(), "clip.mp4")
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "timeout", Reason(err))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestFFProbe_ParentCancelled(t *testing.T) {
	bin := fakeFFProbe(t, `exec sleep 5`)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := NewFFProbe(bin, 10*time.Second).Probe(ctx, "clip.mp4")
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestFFProbe_MissingBinary(t *testing.T) {
	_, err := NewFFProbe(filepath.Join(t.TempDir(), "nope"), time.Second).Probe(context.Background(), "clip.mp4")
	require.ErrorIs(t, err, ErrProbeFailed)
}

func TestFFProbe_RealBinary(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not available")
	}

	path := filepath.Join(t.TempDir(), "clip.mp4")
	gen := exec.Command("ffmpeg",
		"-f", "lavfi", "-i", "testsrc=duration=10:size=320x240:rate=30",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-y", path,
	)
	if err := gen.Run(); err != nil {
		t.Skipf("cannot generate fixture: %v", err)
	}

	info, err := NewFFProbe("", 0).Probe(context.Background(), path)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, info.Duration, 0.1)
	assert.InDelta(t, 30.0, info.FPS, 0.01)
}
