//go:build !windows

package config

import (
	"os"
	"syscall"
)

// fileOwnerUID returns the owning uid of info, when the platform exposes it.
func fileOwnerUID(info os.FileInfo) (uint32, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return stat.Uid, true
}
