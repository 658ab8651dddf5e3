package cgroups

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/giuseppe/crun/pkg/crunerr"
)

// CgroupPath is a logical, leading-slash-relative cgroup identifier, e.g.
// "machine.slice/container-abc". It names the same subtree across every
// controller in legacy/hybrid mode, or a v2 cgroup directly in unified
// mode. The core treats it as opaque.
type CgroupPath string

// ControllerName identifies a v1 subsystem ("cpu", "memory", ...) or the
// pseudo-subsystem "unified" for the v2 subtree under hybrid mode.
type ControllerName string

// unifiedController is the pseudo-controller name used for the v2 subtree line in
// /proc/self/cgroup (an empty controller list) and for the hybrid v2
// subtree mount.
const unifiedController ControllerName = "unified"

// join safely joins path segments under root, skipping empty segments
// such as the empty subsystem of unified mode (mirrors append_paths in
// cgroup-utils.c, which tolerates empty subsystem/path segments).
func join(root string, segments ...string) string {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, root)
	for _, s := range segments {
		if s == "" {
			continue
		}
		parts = append(parts, strings.TrimPrefix(s, "/"))
	}
	return filepath.Join(parts...)
}

// procSelfCgroupLine is one parsed line of /proc/self/cgroup:
// "<id>:<controller_list>:<path>".
type procSelfCgroupLine struct {
	Controller ControllerName
	Path       string
}

// canonicalController strips the "name=<foo>" prefix kernels use for
// named hierarchies, and maps an empty controller list (v2's line shape)
// to the "unified" pseudo-subsystem.
func canonicalController(raw string) ControllerName {
	raw = strings.TrimPrefix(raw, "name=")
	if raw == "" {
		return unifiedController
	}
	return ControllerName(raw)
}

// readProcSelfCgroup parses /proc/self/cgroup. A missing file is reported
// via os.IsNotExist on the returned error so callers can special-case it
// (spec §4.4: "missing is treated as success").
func readProcSelfCgroup() ([]procSelfCgroupLine, error) {
	f, err := os.Open("/proc/self/cgroup")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []procSelfCgroupLine
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		text := scanner.Text()
		fields := strings.SplitN(text, ":", 3)
		if len(fields) != 3 {
			continue
		}
		lines = append(lines, procSelfCgroupLine{
			Controller: canonicalController(fields[1]),
			Path:       fields[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, crunerr.Env("parse", "/proc/self/cgroup", err)
	}
	return lines, nil
}
