//go:build linux

package seccompnotify

/*
#include <linux/seccomp.h>
*/
import "C"

// Notif and NotifResp are Go aliases for the kernel's
// struct seccomp_notif / struct seccomp_notif_resp (linux/seccomp.h).
// The host reads one Notif per dispatch and zeros a NotifResp before
// offering both to each plugin in load order (spec §4.7/§6).
type Notif = C.struct_seccomp_notif
type NotifResp = C.struct_seccomp_notif_resp
