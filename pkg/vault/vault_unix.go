//go:build unix

package vault

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// checkAndWarnPermissions logs a warning when the vault file or its directory
// is accessible by group or others. It never blocks the operation.
func (s *FileStore) checkAndWarnPermissions() {
	if info, err := os.Stat(filepath.Dir(s.path)); err == nil {
		if perm := info.Mode().Perm(); perm&0077 != 0 {
			log.Warn().Str("mode", fmt.Sprintf("%04o", perm)).Msg("vault directory has insecure permissions (expected 0700)")
		}
	}
	if info, err := os.Stat(s.path); err == nil {
		if perm := info.Mode().Perm(); perm&0077 != 0 {
			log.Warn().Str("path", s.path).Str("mode", fmt.Sprintf("%04o", perm)).Msg("vault file has insecure permissions (expected 0600)")
		}
	}
}

// syncDir flushes the directory entry after a rename. Errors are ignored:
// some filesystems do not support fsync on directories.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
