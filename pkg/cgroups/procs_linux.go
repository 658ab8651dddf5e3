package cgroups

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/giuseppe/crun/pkg/crunerr"
	"golang.org/x/sys/unix"
)

// PidList is an ordered set of process identifiers read from a
// cgroup.procs file. The C ABI this is grounded on (read_pids_cgroup in
// cgroup-utils.c) represents this as a zero-terminated, geometrically
// grown C array; a Go slice already carries its length and grows
// geometrically under append, so no sentinel or running-allocation
// parameter is needed here.
type PidList []int

// ReadPIDs reads cgroup.procs from dir and, if recurse is true, every
// subdirectory beneath it, accumulating all PIDs found. ReadPIDs takes
// ownership of dir: it is closed on every exit path, including errors,
// so recursive callers never leak descriptors (spec §4.3).
//
// Traversal order is directory readdir order, same as the C original;
// callers must not depend on it.
func ReadPIDs(dir *os.File, recurse bool) (PidList, error) {
	defer dir.Close()

	dirFd := int(dir.Fd())

	procsFd, err := unix.Openat(dirFd, "cgroup.procs", unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, crunerr.Syscall("openat", dir.Name()+"/cgroup.procs", err)
	}
	procsFile := os.NewFile(uintptr(procsFd), "cgroup.procs")
	data, err := io.ReadAll(procsFile)
	procsFile.Close()
	if err != nil {
		return nil, crunerr.Syscall("read", "cgroup.procs", err)
	}

	var pids PidList
	for _, tok := range strings.Split(string(data), "\n") {
		if tok == "" {
			continue
		}
		pid, err := strconv.Atoi(tok)
		if err != nil || pid <= 0 {
			// The kernel may emit blank lines; any non-numeric or
			// non-positive token is silently dropped (spec §4.3).
			continue
		}
		pids = append(pids, pid)
	}

	if !recurse {
		return pids, nil
	}

	entries, err := dir.ReadDir(-1)
	if err != nil {
		return nil, crunerr.Syscall("readdir", dir.Name(), err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if name == "." || name == ".." {
			continue
		}
		if entry.Type()&os.ModeDir == 0 {
			continue
		}
		childFd, err := unix.Openat(dirFd, name, unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
		if err != nil {
			return nil, crunerr.Syscall("openat", name, err)
		}
		child := os.NewFile(uintptr(childFd), name)
		childPids, err := ReadPIDs(child, recurse)
		if err != nil {
			return nil, err
		}
		pids = append(pids, childPids...)
	}
	return pids, nil
}

// PIDsFromPath opens <root>/<controller>/<path> and enumerates PIDs
// beneath it. For legacy and hybrid mode it uses "memory" as the
// representative controller, matching
// libcrun_cgroup_read_pids_from_path's hardcoded choice in
// cgroup-utils.c (a detail the distilled spec elides).
func (fs *FS) PIDsFromPath(path CgroupPath, recurse bool) (PidList, error) {
	if path == "" {
		return nil, nil
	}

	mode, err := fs.Mode()
	if err != nil {
		return nil, err
	}

	var dirPath string
	switch mode {
	case Unified:
		dirPath = join(fs.root, string(path))
	case Legacy, Hybrid:
		dirPath = join(fs.root, "memory", string(path))
	default:
		return nil, crunerr.ContractErr("pids-from-path", errInvalidMode(mode))
	}

	dir, err := os.OpenFile(dirPath, os.O_RDONLY|unix.O_DIRECTORY, 0)
	if err != nil {
		return nil, crunerr.Syscall("open", dirPath, err)
	}
	return ReadPIDs(dir, recurse)
}
