package cgroups

import (
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/giuseppe/crun/pkg/crunerr"
)

// delegateFile lists the kernel-sanctioned set of attribute files a
// container owner may modify, per /sys/kernel/cgroup/delegate.
const delegateFile = "/sys/kernel/cgroup/delegate"

// ChownDelegated gives uid/gid ownership of path's cgroup directory and
// every file /sys/kernel/cgroup/delegate lists relative to it. A missing
// delegate file means the kernel doesn't support delegation and is
// treated as success; a delegate entry that doesn't exist in this
// particular cgroup is skipped (spec §4.5).
func (fs *FS) ChownDelegated(path CgroupPath, uid, gid int) error {
	cgroupPath := join(fs.root, string(path))

	dfd, err := unix.Open(cgroupPath, unix.O_PATH, 0)
	if err != nil {
		return crunerr.Syscall("open", cgroupPath, err)
	}
	defer unix.Close(dfd)

	delegate, err := os.ReadFile(delegateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return crunerr.Syscall("read", delegateFile, err)
	}

	if err := unix.Fchownat(dfd, "", uid, gid, unix.AT_EMPTY_PATH|unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return crunerr.Syscall("fchownat", cgroupPath, err)
	}

	for _, name := range strings.Split(string(delegate), "\n") {
		if name == "" {
			continue
		}
		if err := unix.Fchownat(dfd, name, uid, gid, unix.AT_SYMLINK_NOFOLLOW); err != nil {
			if err == unix.ENOENT {
				continue
			}
			return crunerr.Syscall("fchownat", cgroupPath+"/"+name, err)
		}
	}
	return nil
}
