package cgroups

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalController(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		name string
		raw  string
		want ControllerName
	}{
		{name: "plain controller", raw: "memory", want: "memory"},
		{name: "named hierarchy strips prefix", raw: "name=systemd", want: "systemd"},
		{name: "empty controller list is unified", raw: "", want: unifiedController},
		{name: "comounted list kept verbatim", raw: "cpu,cpuacct", want: "cpu,cpuacct"},
	}
	for _, tt := range tests {
		got := canonicalController(tt.raw)
		assert.Equal(tt.want, got, tt.name)
	}
}

func TestJoin(t *testing.T) {
	assert := assert.New(t)

	tests := []struct {
		name     string
		root     string
		segments []string
		want     string
	}{
		{name: "unified mode, empty subsystem", root: "/sys/fs/cgroup", segments: []string{"", "machine.slice/foo", "cgroup.procs"}, want: "/sys/fs/cgroup/machine.slice/foo/cgroup.procs"},
		{name: "legacy mode with subsystem", root: "/sys/fs/cgroup", segments: []string{"memory", "machine.slice/foo"}, want: "/sys/fs/cgroup/memory/machine.slice/foo"},
		{name: "leading slash in logical path is tolerated", root: "/sys/fs/cgroup", segments: []string{"memory", "/machine.slice/foo"}, want: "/sys/fs/cgroup/memory/machine.slice/foo"},
	}
	for _, tt := range tests {
		got := join(tt.root, tt.segments...)
		assert.Equal(tt.want, got, tt.name)
	}
}
