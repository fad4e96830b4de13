//go:build !linux && !darwin && !freebsd && !windows

package vault

import "errors"

// CheckDiskSpace is unsupported on this platform; saves proceed without the check.
func CheckDiskSpace(string) (*DiskSpaceInfo, error) {
	return nil, errors.New("vault: disk statistics unsupported on this platform")
}
