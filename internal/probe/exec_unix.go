//go:build unix

package probe

import (
	"errors"
	"os/exec"
	"syscall"
)

// isolate puts ffprobe in its own process group so a terminal interrupt
// aimed at kprep's group does not reach it. Only the context can kill it.
func isolate(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killedBySignal reports whether ffprobe exited because of a signal.
func killedBySignal(err error) bool {
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return false
	}
	ws, ok := ee.Sys().(syscall.WaitStatus)
	return ok && ws.Signaled()
}
