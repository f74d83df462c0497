//go:build unix

package probe

import (
	"context"
	"os"
	"os/signal"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFFProbe_GroupInterruptStaysWithChild(t *testing.T) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	// SIGINT to the script's whole process group, then make sure it dies
	// from a signal even if SIGINT was inherited as ignored.
	bin := fakeFFProbe(t, `kill -INT 0; kill -TERM $$; sleep 1`)

	_, err := NewFFProbe(bin, 5*time.Second).Probe(context.Background(), "clip.mp4")
	require.ErrorIs(t, err, ErrInterrupted)
	assert.NotErrorIs(t, err, ErrProbeFailed)
	assert.Equal(t, "interrupted", Reason(err))

	select {
	case <-sigs:
		t.Fatal("interrupt sent to ffprobe's group reached kprep")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFFProbe_KilledBySignal(t *testing.T) {
	bin := fakeFFProbe(t, `kill -KILL $$`)

	_, err := NewFFProbe(bin, 5*time.Second).Probe(context.Background(), "clip.mp4")
	assert.ErrorIs(t, err, ErrInterrupted)
}
