//go:build linux

package sandbox

import (
	"os/exec"
	"sync"

	"golang.org/x/sys/unix"
)

var noNewPrivsOnce sync.Once

// applyHardening sets PR_SET_NO_NEW_PRIVS on this process before the child is
// started. The bit is inherited across fork and exec, so setting it once on
// aegish itself is equivalent to the original's preexec_fn running in the
// forked child — no Go child ever gains new privileges through exec. The
// Landlock ruleset itself is installed separately, by the LD_PRELOAD
// constructor running inside the launched shell.
func applyHardening(cmd *exec.Cmd) {
	noNewPrivsOnce.Do(func() {
		_ = unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0)
	})
}
