//go:build linux

package cgroups

import (
	"os"
	"path/filepath"
	"testing"
)

// newUnifiedFS returns an FS over a fresh tmpdir, with the Unified mode
// pre-seeded so tests don't need a real cgroup2 mount just to exercise
// the destroy/rmdir tree-walking logic (statfs-based detection is
// covered separately in fs_linux_test.go).
func newUnifiedFS(t *testing.T, root string) *FS {
	t.Helper()
	fs, err := NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	fs.once.Do(func() { fs.mode = Unified })
	return fs
}

func TestDestroyAbsentPathIsNoop(t *testing.T) {
	root := t.TempDir()
	fs := newUnifiedFS(t, root)

	// P2: destroying an already-absent path succeeds and is a no-op.
	if err := fs.Destroy("machine.slice/never-existed", DestroyOptions{}); err != nil {
		t.Fatalf("Destroy on absent path: %v", err)
	}
}

func TestDestroyIdempotent(t *testing.T) {
	root := t.TempDir()
	fs := newUnifiedFS(t, root)

	path := CgroupPath("machine.slice/container-a")
	full := filepath.Join(root, string(path))
	if err := os.MkdirAll(full, 0o755); err != nil {
		t.Fatal(err)
	}
	// No cgroup.procs here: on a plain directory a regular file makes
	// rmdir fail with ENOTEMPTY (see TestDestroyNonBusyFailureAbortsBranch),
	// whereas cgroupfs interface files never block removal.

	if err := fs.Destroy(path, DestroyOptions{}); err != nil {
		t.Fatalf("first Destroy: %v", err)
	}
	if _, err := os.Stat(full); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed, stat err = %v", full, err)
	}

	// P2: a second destroy of the same (now-gone) path is a no-op success.
	if err := fs.Destroy(path, DestroyOptions{}); err != nil {
		t.Fatalf("second Destroy: %v", err)
	}
}

func TestDestroyRecursivelyRemovesEmptySubtree(t *testing.T) {
	root := t.TempDir()
	fs := newUnifiedFS(t, root)

	path := CgroupPath("machine.slice/container-b")
	full := filepath.Join(root, string(path))
	nested := filepath.Join(full, "nested")
	sibling := filepath.Join(full, "sibling")
	for _, d := range []string{nested, sibling} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, d := range []string{full, nested, sibling} {
		writeProcs(t, d, "")
	}

	// A plain (non-cgroupfs) directory never returns EBUSY (that's a
	// cgroupfs-specific errno for "populated"), and unlinkat on a plain
	// child that still holds subdirectories fails with ENOTEMPTY, which
	// rmdirAllFD reports as an error. So the fixture is one level of
	// empty child directories: enough to exercise rmdirAllFD's
	// readdir+unlinkat walk and the final rmdir of the top directory
	// without needing the busy-retry path.
	if err := os.Remove(filepath.Join(sibling, "cgroup.procs")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(nested, "cgroup.procs")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(full, "cgroup.procs")); err != nil {
		t.Fatal(err)
	}

	if busy, err := fs.rmdirAll(full); err != nil || busy {
		t.Fatalf("rmdirAll(%s) = busy=%v, err=%v", full, busy, err)
	}
	if _, err := os.Stat(full); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, got err = %v", full, err)
	}
}

func TestDestroyNonBusyFailureAbortsBranch(t *testing.T) {
	root := t.TempDir()
	fs := newUnifiedFS(t, root)

	path := CgroupPath("machine.slice/container-c")
	full := filepath.Join(root, string(path))
	if err := os.MkdirAll(full, 0o755); err != nil {
		t.Fatal(err)
	}
	// A regular file left inside (not a subdirectory with its own
	// cgroup.procs) makes the final rmdir fail with ENOTEMPTY, not
	// EBUSY: the destroyer must surface this rather than silently
	// succeed, since only EBUSY triggers the kill-and-retry path.
	if err := os.WriteFile(filepath.Join(full, "stray-file"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := fs.Destroy(path, DestroyOptions{MaxIterations: 2})
	if err == nil {
		t.Fatal("expected Destroy to fail on a non-EBUSY rmdir error, got nil")
	}
}

func TestCreateSymlinksIdempotent(t *testing.T) {
	root := t.TempDir()
	for _, target := range []string{"cpu,cpuacct", "net_cls,net_prio"} {
		if err := os.Mkdir(filepath.Join(root, target), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	dir, err := os.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	defer dir.Close()

	if err := CreateSymlinks(dir); err != nil {
		t.Fatalf("first CreateSymlinks: %v", err)
	}
	// P4: running twice must succeed (EEXIST tolerated).
	if err := CreateSymlinks(dir); err != nil {
		t.Fatalf("second CreateSymlinks: %v", err)
	}

	for _, alias := range []string{"cpu", "cpuacct", "net_cls", "net_prio"} {
		if _, err := os.Lstat(filepath.Join(root, alias)); err != nil {
			t.Errorf("expected symlink %s to exist: %v", alias, err)
		}
	}
}
