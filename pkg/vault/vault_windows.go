//go:build windows

package vault

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"

	"github.com/forest6511/totpctl/pkg/failure"
)

// CheckDiskSpace reports usage of the volume holding dir, or of its parent
// when dir has not been created yet.
func CheckDiskSpace(dir string) (*DiskSpaceInfo, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		dir = filepath.Dir(dir)
	}
	root, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return nil, failure.Wrapf(failure.Storage, "vault: disk space for %s: %w", dir, err)
	}

	var info DiskSpaceInfo
	if err := windows.GetDiskFreeSpaceEx(root, &info.Available, &info.Total, &info.Free); err != nil {
		return nil, failure.Wrapf(failure.Storage, "vault: disk space for %s: %w", dir, err)
	}
	if info.Total > 0 {
		info.UsedPct = int((info.Total - info.Free) * 100 / info.Total)
	}
	return &info, nil
}

// checkAndWarnPermissions is a no-op: NTFS ACLs are not expressed in mode bits.
func (s *FileStore) checkAndWarnPermissions() {}

// syncDir is a no-op: directories cannot be opened for sync on Windows.
func syncDir(string) {}
