package cgroups

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/giuseppe/crun/pkg/crunerr"
)

// symlinkEntry is one alias -> canonical-controller-directory mapping.
type symlinkEntry struct {
	Alias  string
	Target string
}

// symlinkTable is the static set of aliases userspace expects when two
// v1 controllers are co-mounted under a combined directory name (spec
// §3's SymlinkTable).
var symlinkTable = []symlinkEntry{
	{Alias: "cpu", Target: "cpu,cpuacct"},
	{Alias: "cpuacct", Target: "cpu,cpuacct"},
	{Alias: "net_cls", Target: "net_cls,net_prio"},
	{Alias: "net_prio", Target: "net_cls,net_prio"},
}

// CreateSymlinks creates every alias->target symlink in symlinkTable
// relative to dir. It is idempotent: both EEXIST (already created) and
// ENOENT are tolerated (spec §4.6, P4). symlinkat does not check that the
// target exists, so an alias whose combined controller directory is absent
// is still created, as a dangling link.
func CreateSymlinks(dir *os.File) error {
	dirFd := int(dir.Fd())
	for _, entry := range symlinkTable {
		err := unix.Symlinkat(entry.Target, dirFd, entry.Alias)
		if err == nil || err == unix.EEXIST || err == unix.ENOENT {
			continue
		}
		return crunerr.Syscall("symlinkat", entry.Alias, err)
	}
	return nil
}
