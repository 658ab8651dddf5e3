package cgroups

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// killAll sends sig to every pid in the list. A process that has already
// exited (ESRCH) is not an error: the destroyer races the kernel removing
// zombies the moment they're reaped.
func killAll(pids PidList, sig unix.Signal) {
	for _, pid := range pids {
		if err := unix.Kill(pid, sig); err != nil && err != unix.ESRCH {
			logrus.WithError(err).WithField("pid", pid).Warn("failed to signal process")
		}
	}
}

// KillSubtree enumerates every process under path (recursively) and sends
// it SIGKILL. This is the "external killer utility" spec §4.4 calls out
// as a cooperating component of the destroyer's outer retry loop.
func (fs *FS) KillSubtree(path CgroupPath) error {
	pids, err := fs.PIDsFromPath(path, true)
	if err != nil {
		return err
	}
	killAll(pids, unix.SIGKILL)
	return nil
}
