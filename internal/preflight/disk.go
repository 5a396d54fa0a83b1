package preflight

import (
	"fmt"
	"syscall"
)

// MinDiskSpaceBytes is the free space the data directory needs for logs,
// the search log and the embedding snapshot (100 MB).
const MinDiskSpaceBytes = 100 * 1024 * 1024

// CheckDiskSpace checks the free space on the file system holding the data
// directory.
func (c *Checker) CheckDiskSpace(dataDir string) CheckResult {
	result := CheckResult{Name: "disk_space", Required: true}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(dataDir, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot stat %s: %v", dataDir, err)
		return result
	}

	free := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free for %s", formatBytes(free), dataDir)
	if free < MinDiskSpaceBytes {
		result.Status = StatusFail
		result.Details = "At least " + formatBytes(MinDiskSpaceBytes) + " are needed"
		return result
	}
	result.Status = StatusPass
	return result
}

// formatBytes formats a byte count with binary units.
func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d bytes", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit && exp < 3; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
