//go:build !windows

package file

import (
	"os"

	"github.com/google/renameio/v2"
)

// writeAtomic replaces path with data in one rename.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}
