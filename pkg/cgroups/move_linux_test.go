//go:build linux

package cgroups

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestMoveWritesPID(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFS(root)
	if err != nil {
		t.Fatal(err)
	}

	path := CgroupPath("machine.slice/container-a")
	dir := filepath.Join(root, "memory", string(path))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeProcs(t, dir, "")

	if err := fs.Move(os.Getpid(), "memory", path); err != nil {
		t.Fatalf("Move: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "cgroup.procs"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != strconv.Itoa(os.Getpid()) {
		t.Errorf("cgroup.procs = %q, want %q", got, strconv.Itoa(os.Getpid()))
	}
}

func TestMoveUnifiedEmptySubsystem(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFS(root)
	if err != nil {
		t.Fatal(err)
	}

	path := CgroupPath("machine.slice/container-a")
	dir := filepath.Join(root, string(path))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeProcs(t, dir, "")

	if err := fs.Move(1234, "", path); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "cgroup.procs"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "1234" {
		t.Errorf("cgroup.procs = %q, want 1234", got)
	}
}
