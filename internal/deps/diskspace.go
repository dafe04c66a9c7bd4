//go:build !windows

package deps

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MinFreeBytes is the free-space floor for a render workspace. High quality
// renders can easily exceed a gigabyte of intermediate segments.
const MinFreeBytes = 2 << 30

// DiskSpace reports the free bytes on the filesystem holding path.
func DiskSpace(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// CheckDiskSpace verifies the workspace filesystem has at least MinFreeBytes
// available.
func CheckDiskSpace(path string) Status {
	status := Status{
		Name:        "Disk space",
		Description: fmt.Sprintf("free space under %s", path),
	}
	free, err := DiskSpace(path)
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	if free < MinFreeBytes {
		status.Detail = fmt.Sprintf("only %d MiB free, need %d MiB", free>>20, uint64(MinFreeBytes)>>20)
		return status
	}
	status.Available = true
	return status
}
