//go:build linux

package seccompnotify

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
#include <linux/seccomp.h>

typedef int (*crun_plugin_version_fn)(void);
typedef int (*crun_plugin_start_fn)(void **opaque, void *conf, size_t conf_size);
typedef int (*crun_plugin_handle_request_fn)(void *opaque, struct seccomp_notif *req,
                                              struct seccomp_notif_resp *resp, int fd, int *handled);
typedef int (*crun_plugin_stop_fn)(void *opaque);

static int crun_call_version(void *fn) {
	return ((crun_plugin_version_fn) fn)();
}

static int crun_call_start(void *fn, void **opaque, void *conf, size_t conf_size) {
	return ((crun_plugin_start_fn) fn)(opaque, conf, conf_size);
}

static int crun_call_handle_request(void *fn, void *opaque, struct seccomp_notif *req,
                                     struct seccomp_notif_resp *resp, int fd, int *handled) {
	return ((crun_plugin_handle_request_fn) fn)(opaque, req, resp, fd, handled);
}

static int crun_call_stop(void *fn, void *opaque) {
	return ((crun_plugin_stop_fn) fn)(opaque);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/giuseppe/crun/pkg/cglog"
	"github.com/giuseppe/crun/pkg/crunerr"
)

// requiredVersion is the only plugin ABI version this host accepts
// (spec §4.7 step 3).
const requiredVersion = 1

const (
	symVersion       = "run_oci_seccomp_notify_plugin_version"
	symStart         = "run_oci_seccomp_notify_start"
	symHandleRequest = "run_oci_seccomp_notify_handle_request"
	symStop          = "run_oci_seccomp_notify_stop"
)

// plugin wraps one dlopen'd module and its four resolved entry points.
// The void* opaque state the C ABI hands back from start() is carried
// as-is and never inspected on the Go side (spec §9 design note).
type plugin struct {
	path string

	handle  unsafe.Pointer
	version unsafe.Pointer
	start   unsafe.Pointer
	handleR unsafe.Pointer
	stop    unsafe.Pointer

	opaque unsafe.Pointer
}

// openPlugin opens path, resolves its four required symbols and checks
// its reported ABI version. It does not call start(); callers finish
// bringing the plugin up via (*plugin).bringUp so that load-failure
// rollback (spec §4.7 state machine) has a single place to happen.
func openPlugin(path string) (*plugin, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	handle := C.dlopen(cpath, C.RTLD_NOW|C.RTLD_LOCAL)
	if handle == nil {
		return nil, crunerr.Load(path, fmt.Errorf("dlopen: %s", C.GoString(C.dlerror())))
	}

	p := &plugin{path: path, handle: handle}

	for sym, dst := range map[string]*unsafe.Pointer{
		symVersion:       &p.version,
		symStart:         &p.start,
		symHandleRequest: &p.handleR,
		symStop:          &p.stop,
	} {
		resolved, err := resolveSymbol(handle, sym)
		if err != nil {
			C.dlclose(handle)
			return nil, crunerr.Load(path, err)
		}
		*dst = resolved
	}

	version := int(C.crun_call_version(p.version))
	if version != requiredVersion {
		C.dlclose(handle)
		return nil, crunerr.Load(path, fmt.Errorf("unsupported plugin version %d, want %d", version, requiredVersion))
	}

	return p, nil
}

func resolveSymbol(handle unsafe.Pointer, name string) (unsafe.Pointer, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	sym := C.dlsym(handle, cname)
	if sym == nil {
		return nil, fmt.Errorf("missing required symbol %q: %s", name, C.GoString(C.dlerror()))
	}
	return sym, nil
}

// bringUp calls the plugin's start() with conf, storing the returned
// opaque state. A size mismatch or any other non-zero return is a
// Contract/PluginLoad failure respectively (spec §4.7 step 4, §7).
func (p *plugin) bringUp(conf Config) error {
	cc := newCConfig(conf)
	defer cc.free()

	var opaque unsafe.Pointer
	ret := C.crun_call_start(p.start, (*unsafe.Pointer)(unsafe.Pointer(&opaque)), cc.ptr(), C.size_t(cc.size()))
	if ret != 0 {
		if unix.Errno(-ret) == unix.EINVAL {
			return crunerr.ContractErr("start", fmt.Errorf("plugin %s rejected config size", p.path))
		}
		return crunerr.Load(p.path, fmt.Errorf("start failed: %w", unix.Errno(-ret)))
	}
	p.opaque = opaque
	return nil
}

// handleRequest calls handle_request for one seccomp notification. It
// reports handled=true only when the plugin set *handled = 1.
func (p *plugin) handleRequest(req *Notif, resp *NotifResp, fd int) (handled bool, err error) {
	var chandled C.int
	ret := C.crun_call_handle_request(p.handleR, p.opaque, req, resp, C.int(fd), &chandled)
	if ret != 0 {
		return false, crunerr.Runtime("handle_request", p.path, unix.Errno(-ret))
	}
	return chandled != 0, nil
}

// shutDown calls stop() on the plugin. Errors are logged, never
// propagated: teardown of the remaining chain must continue regardless
// (spec §4.7 teardown).
func (p *plugin) shutDown() {
	if ret := C.crun_call_stop(p.stop, p.opaque); ret != 0 {
		cglog.ForPlugin(p.path).WithError(unix.Errno(-ret)).Warn("plugin stop returned an error")
	}
}

// release closes the dlopen handle. Call only after shutDown.
func (p *plugin) release() {
	C.dlclose(p.handle)
}
