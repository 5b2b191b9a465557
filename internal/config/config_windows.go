//go:build windows

package config

import "os"

// fileOwnerUID has no equivalent on Windows; the root-ownership check is a
// Unix production-deployment concern only.
func fileOwnerUID(info os.FileInfo) (uint32, bool) {
	return 0, false
}
