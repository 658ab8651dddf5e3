//go:build linux

// Package seccompnotify hosts dynamically-loaded seccomp user-notification
// plugins: an ordered chain of shared objects implementing the four-entry-
// point ABI documented in crun's seccomp_notify.h, dispatched in load order
// until one claims a kernel seccomp notification.
package seccompnotify

/*
#include <stdlib.h>

typedef struct {
	const char *runtime_root_path;
	const char *name;
	const char *bundle_path;
	const char *oci_config_path;
} crun_seccomp_notify_conf;
*/
import "C"

import "unsafe"

// Config mirrors struct libcrun_load_seccomp_notify_conf_s from
// original_source/src/libcrun/seccomp_notify.h: four null-terminated
// string pointers, in this exact order. The struct's in-memory size is
// ABI-significant — every plugin validates sizeof(conf) against its own
// compiled-in expectation before using it (spec §6/§7, Contract errors).
type Config struct {
	RuntimeRootPath string
	Name            string
	BundlePath      string
	OCIConfigPath   string
}

// cConfig owns the C string duplicates backing a marshalled Config for
// the duration of a single plugin's start() call.
type cConfig struct {
	native C.crun_seccomp_notify_conf
	strs   [4]*C.char
}

func newCConfig(conf Config) *cConfig {
	cc := &cConfig{}
	cc.strs[0] = C.CString(conf.RuntimeRootPath)
	cc.strs[1] = C.CString(conf.Name)
	cc.strs[2] = C.CString(conf.BundlePath)
	cc.strs[3] = C.CString(conf.OCIConfigPath)

	cc.native.runtime_root_path = cc.strs[0]
	cc.native.name = cc.strs[1]
	cc.native.bundle_path = cc.strs[2]
	cc.native.oci_config_path = cc.strs[3]
	return cc
}

func (c *cConfig) free() {
	for _, s := range c.strs {
		C.free(unsafe.Pointer(s))
	}
}

func (c *cConfig) ptr() unsafe.Pointer { return unsafe.Pointer(&c.native) }

func (c *cConfig) size() uintptr { return unsafe.Sizeof(c.native) }
