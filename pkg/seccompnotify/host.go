//go:build linux

package seccompnotify

import (
	"github.com/giuseppe/crun/pkg/cglog"
)

// Host holds an ordered, loaded plugin chain and dispatches kernel
// seccomp notifications to it. Dispatch order is load order, and is not
// reentrant per spec §5/§9 ("the seccomp context is exclusively owned by
// its holder; dispatch is not reentrant").
type Host struct {
	plugins []*plugin
}

// Load opens every path in pluginPaths, in order, resolving symbols and
// calling start() on each. If any plugin fails to load or start, every
// previously-loaded plugin is stopped (in reverse order) and released
// before the original error is returned — no partially-loaded chain
// survives a failed Load (spec §4.7 state machine, P6).
func Load(pluginPaths []string, conf Config) (*Host, error) {
	h := &Host{}
	for _, path := range pluginPaths {
		p, err := openPlugin(path)
		if err != nil {
			h.rollback()
			return nil, err
		}
		if err := p.bringUp(conf); err != nil {
			p.release()
			h.rollback()
			return nil, err
		}
		h.plugins = append(h.plugins, p)
	}
	return h, nil
}

// rollback stops and releases every plugin already in h.plugins, in
// reverse load order, used both by a failed Load and by Close.
func (h *Host) rollback() {
	for i := len(h.plugins) - 1; i >= 0; i-- {
		h.plugins[i].shutDown()
		h.plugins[i].release()
	}
	h.plugins = nil
}

// Dispatch offers one seccomp notification (already read from
// seccompFD's struct seccomp_notif) to each plugin in load order. The
// first plugin to set handled=1 wins and its response is returned
// immediately; no further plugins are consulted (spec §4.7, P5). If no
// plugin claims the request, handled is reported false and the caller is
// responsible for submitting whatever default policy applies (the host
// itself only signals "unhandled").
func (h *Host) Dispatch(req *Notif, resp *NotifResp, seccompFD int) (handled bool, err error) {
	for _, p := range h.plugins {
		ok, err := p.handleRequest(req, resp, seccompFD)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Close calls stop() on every plugin in reverse load order and releases
// every module handle. Individual stop() errors are logged but never
// abort teardown of the remaining chain (spec §4.7 teardown).
func (h *Host) Close() error {
	if len(h.plugins) == 0 {
		return nil
	}
	cglog.ForPlugin("").WithField("count", len(h.plugins)).Debug("tearing down seccomp notify plugin chain")
	h.rollback()
	return nil
}

// PluginCount reports how many plugins are currently loaded; used by the
// CLI's seccomp-serve subcommand for startup logging.
func (h *Host) PluginCount() int { return len(h.plugins) }
