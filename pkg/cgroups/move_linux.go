package cgroups

import (
	"os"
	"strconv"

	"github.com/giuseppe/crun/pkg/crunerr"
)

// Move writes pid into <root>/<subsystem>/<path>/cgroup.procs. subsystem
// is empty for unified mode (spec §4.2). This is a single write; there is
// no caching and no retry.
func (fs *FS) Move(pid int, subsystem string, path CgroupPath) error {
	procsFile := join(fs.root, subsystem, string(path), "cgroup.procs")

	if err := os.WriteFile(procsFile, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return crunerr.Syscall("write", procsFile, err)
	}
	return nil
}
