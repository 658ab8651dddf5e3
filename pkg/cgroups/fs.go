package cgroups

import (
	"sync"

	"github.com/pkg/errors"
)

// DefaultRoot is the standard cgroup mount point.
const DefaultRoot = "/sys/fs/cgroup"

// unifiedSubtree is where a v2 subtree is mounted under hybrid mode,
// relative to the FS root.
const unifiedSubtree = "unified"

// FS is a handle on a cgroup root, mirroring the mount-point-parameterized
// "FS" pattern used by prometheus/procfs: DefaultFS returns a shared
// process-wide instance, while NewFS builds a separate one over any root
// (the CLI uses it with DefaultRoot, tests with a tmpdir fixture) without
// touching any process-wide global.
type FS struct {
	root string

	once    sync.Once
	mode    Mode
	modeErr error
}

var (
	defaultOnce sync.Once
	defaultFS   *FS
)

// DefaultFS returns the process-wide FS rooted at DefaultRoot. It is
// constructed exactly once; every caller observes the same *FS instance,
// which is what gives Mode() its "detected once per process lifetime"
// invariant (spec P1).
func DefaultFS() *FS {
	defaultOnce.Do(func() {
		defaultFS = &FS{root: DefaultRoot}
	})
	return defaultFS
}

// NewFS returns an FS rooted at an arbitrary path. Used by tests to
// exercise the full detection/enumeration/destruction logic against a
// fixture tree instead of the real /sys/fs/cgroup.
func NewFS(root string) (*FS, error) {
	if root == "" {
		return nil, errors.New("cgroups: root must not be empty")
	}
	return &FS{root: root}, nil
}

// Root returns the cgroup root this FS was constructed over.
func (fs *FS) Root() string { return fs.root }
