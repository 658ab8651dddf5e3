// Package cglog centralizes the logrus field conventions used across
// pkg/cgroups and pkg/seccompnotify, mirroring the teacher's
// logrus.WithField/Debugf/Warnf idiom.
package cglog

import "github.com/sirupsen/logrus"

// ForPath returns a field logger scoped to a cgroup path, used by the
// destroyer's retry and per-controller failure logging.
func ForPath(path string) *logrus.Entry {
	return logrus.WithField("cgroup", path)
}

// ForPlugin returns a field logger scoped to a seccomp plugin's path.
func ForPlugin(path string) *logrus.Entry {
	return logrus.WithField("plugin", path)
}
