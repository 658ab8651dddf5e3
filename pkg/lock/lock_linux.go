//go:build linux

/*
Copyright 2016 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package lock serializes operations against a single cgroup path. Spec §5
// makes this the caller's contract ("two concurrent destroyers on the same
// path are forbidden by contract"); this package is the enforcement the
// cmd/crun-cgroup CLI and any other in-process caller uses to honor it,
// both within one process and, via flock, across processes sharing the
// same lock directory.
package lock

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// DefaultDir is where PathLock derives its on-disk lock files when no
// directory is supplied. /run is tmpfs on every Linux system crun targets,
// matching where the teacher's Acquire/Release callers keep their PID file.
const DefaultDir = "/run/crun-cgroup/locks"

// PathLock holds both an in-process mutex (fast path, no syscall) and an
// flock'd file descriptor (cross-process). Acquire blocks until both are
// held; Release drops both in reverse order.
type PathLock struct {
	path string
	dir  string

	fd int
}

var registry sync.Map // map[string]*sync.Mutex, keyed by cleaned cgroup path

// NewPathLock returns a lock for cgroupPath. dir overrides DefaultDir when
// non-empty; it must be writable and ideally on tmpfs.
func NewPathLock(cgroupPath, dir string) *PathLock {
	if dir == "" {
		dir = DefaultDir
	}
	return &PathLock{path: filepath.Clean(cgroupPath), dir: dir, fd: -1}
}

// Acquire blocks until the lock for this path is held exclusively, first
// in-process, then via flock on a derived lock file. This method is not
// reentrant: a second Acquire from the same goroutine deadlocks, matching
// the non-reentrant dispatch contract described in spec §9.
func (l *PathLock) Acquire() error {
	mu, _ := registry.LoadOrStore(l.path, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		mu.(*sync.Mutex).Unlock()
		return err
	}

	lockPath := filepath.Join(l.dir, sanitize(l.path)+".lock")
	fd, err := unix.Open(lockPath, unix.O_CREAT|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		mu.(*sync.Mutex).Unlock()
		return err
	}
	if err := unix.Flock(fd, unix.LOCK_EX); err != nil {
		unix.Close(fd)
		mu.(*sync.Mutex).Unlock()
		return err
	}

	l.fd = fd
	return nil
}

// Release drops the flock and the in-process mutex acquired by Acquire.
func (l *PathLock) Release() error {
	var err error
	if l.fd >= 0 {
		err = unix.Flock(l.fd, unix.LOCK_UN)
		unix.Close(l.fd)
		l.fd = -1
	}
	if mu, ok := registry.Load(l.path); ok {
		mu.(*sync.Mutex).Unlock()
	}
	return err
}

func sanitize(path string) string {
	r := strings.NewReplacer("/", "_", " ", "_")
	s := r.Replace(path)
	if s == "" {
		s = "root"
	}
	return strings.TrimPrefix(s, "_")
}
