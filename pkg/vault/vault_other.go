//go:build !unix && !windows

package vault

func (s *FileStore) checkAndWarnPermissions() {}

func syncDir(string) {}
