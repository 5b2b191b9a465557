//go:build !linux

package sandbox

import "os/exec"

// applyHardening is a no-op off Linux: PR_SET_NO_NEW_PRIVS and the
// Landlock-preload library are both Linux-specific, matching the original's
// platform scope.
func applyHardening(cmd *exec.Cmd) {}
