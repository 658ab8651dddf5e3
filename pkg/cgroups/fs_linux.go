//go:build linux
// +build linux

package cgroups

import (
	"os"

	"github.com/giuseppe/crun/pkg/crunerr"
	"golang.org/x/sys/unix"
)

// Mode detects and caches the cgroup regime rooted at fs.Root(), exactly
// once for this FS's lifetime (spec §4.1, invariant P1). Concurrent first
// callers block on the same sync.Once and observe the identical result.
func (fs *FS) Mode() (Mode, error) {
	fs.once.Do(func() {
		fs.mode, fs.modeErr = detectMode(fs.root)
	})
	return fs.mode, fs.modeErr
}

func detectMode(root string) (Mode, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(root, &st); err != nil {
		return 0, crunerr.Syscall("statfs", root, err)
	}
	if isFsType(st, unix.CGROUP2_SUPER_MAGIC) {
		return Unified, nil
	}
	if !isFsType(st, unix.TMPFS_MAGIC) {
		return 0, crunerr.Env("statfs", root, os.ErrInvalid)
	}

	unifiedPath := root + "/" + unifiedSubtree
	if err := unix.Statfs(unifiedPath, &st); err != nil {
		if err == unix.ENOENT {
			return Legacy, nil
		}
		return 0, crunerr.Syscall("statfs", unifiedPath, err)
	}
	if isFsType(st, unix.CGROUP2_SUPER_MAGIC) {
		return Hybrid, nil
	}
	return Legacy, nil
}

// isFsType compares a Statfs_t.Type field (whose width varies by
// architecture) against one of the untyped f_type magic constants.
func isFsType(st unix.Statfs_t, want int64) bool {
	return int64(st.Type) == want
}
