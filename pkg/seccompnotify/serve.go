//go:build linux

package seccompnotify

/*
#include <string.h>
#include <sys/ioctl.h>
#include <linux/seccomp.h>

static int crun_notif_recv(int fd, struct seccomp_notif *req) {
	memset(req, 0, sizeof(*req));
	return ioctl(fd, SECCOMP_IOCTL_NOTIF_RECV, req);
}

static int crun_notif_send(int fd, struct seccomp_notif_resp *resp) {
	return ioctl(fd, SECCOMP_IOCTL_NOTIF_SEND, resp);
}

static void crun_notif_resp_zero(struct seccomp_notif_resp *resp, __u64 id) {
	memset(resp, 0, sizeof(*resp));
	resp->id = id;
}
*/
import "C"

import (
	"context"
	"syscall"

	"github.com/giuseppe/crun/pkg/cglog"
	"github.com/giuseppe/crun/pkg/crunerr"
)

// Serve blocks reading seccomp notifications from seccompFD and
// dispatching each to h, until ctx is cancelled or a non-recoverable
// ioctl error occurs. Per spec §5, handle_request may block arbitrarily
// and the host imposes no timeout; Serve does not either.
//
// When no plugin claims a request, Serve submits a default "no-op"
// response (error 0, no returned fd) — the policy of what "unhandled"
// should mean is the surrounding OCI runtime's call, the plugin host
// itself only signals that nothing claimed it (spec §4.7).
func Serve(ctx context.Context, h *Host, seccompFD int) error {
	log := cglog.ForPlugin("").WithField("seccomp_fd", seccompFD)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var req Notif
		// The two-value cgo call form captures the real errno glibc's
		// ioctl() sets on failure; crun_notif_recv returns the raw -1/0
		// libc result, not -errno, so errno must come from here, not from
		// negating the return value.
		if ret, cerr := C.crun_notif_recv(C.int(seccompFD), &req); ret != 0 {
			errno, _ := cerr.(syscall.Errno)
			if errno == syscall.EINTR {
				continue
			}
			if errno == syscall.ENOENT {
				// The notification was already addressed by the kernel
				// (e.g. the target process died); move on to the next one.
				continue
			}
			return crunerr.Syscall("ioctl(NOTIF_RECV)", "", cerr)
		}

		var resp NotifResp
		C.crun_notif_resp_zero(&resp, req.id)

		handled, err := h.Dispatch(&req, &resp, seccompFD)
		if err != nil {
			log.WithError(err).Warn("plugin chain failed to handle seccomp notification")
		}
		if !handled {
			log.WithField("syscall_nr", int(req.data.nr)).Debug("no plugin claimed seccomp notification, submitting default response")
		}

		if ret, cerr := C.crun_notif_send(C.int(seccompFD), &resp); ret != 0 {
			if errno, ok := cerr.(syscall.Errno); ok && errno == syscall.ENOENT {
				// Target died between recv and send; nothing to do.
				continue
			}
			return crunerr.Syscall("ioctl(NOTIF_SEND)", "", cerr)
		}
	}
}
