//go:build linux || darwin || freebsd

package vault

import (
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// CheckDiskSpace returns disk space information for the filesystem holding dir.
func CheckDiskSpace(dir string) (*DiskSpaceInfo, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		// If the directory doesn't exist yet, check its parent
		if err := unix.Statfs(filepath.Dir(dir), &stat); err != nil {
			return nil, fmt.Errorf("vault: failed to get disk stats: %w", err)
		}
	}

	bsize := uint64(stat.Bsize)
	total := uint64(stat.Blocks) * bsize
	free := uint64(stat.Bfree) * bsize
	available := uint64(stat.Bavail) * bsize

	usedPct := 0
	if total > 0 {
		usedPct = int(100 * (total - free) / total)
	}

	return &DiskSpaceInfo{
		Total:     total,
		Free:      free,
		Available: available,
		UsedPct:   usedPct,
	}, nil
}
