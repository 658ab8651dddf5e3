// Package crunerr defines the error-kind taxonomy shared by the cgroup
// lifecycle engine and the seccomp notification plugin host.
package crunerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure the way callers are expected to react to it,
// rather than by Go type. See spec §7.
type Kind int

const (
	// SystemCall is a Linux syscall that returned an error.
	SystemCall Kind = iota
	// InvalidEnvironment means the cgroup root is of an unexpected
	// filesystem type, or /proc/self/cgroup is malformed.
	InvalidEnvironment
	// PluginLoad means a plugin module could not be opened, a required
	// symbol was missing, or its reported version is unsupported.
	PluginLoad
	// PluginRuntime means a plugin entry point returned a non-zero
	// status during dispatch or teardown.
	PluginRuntime
	// Contract means the caller violated a serialization or
	// configuration requirement (e.g. a mismatched config size, or a
	// destroy loop that could not converge).
	Contract
)

func (k Kind) String() string {
	switch k {
	case SystemCall:
		return "syscall"
	case InvalidEnvironment:
		return "invalid-environment"
	case PluginLoad:
		return "plugin-load"
	case PluginRuntime:
		return "plugin-runtime"
	case Contract:
		return "contract"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by pkg/cgroups and
// pkg/seccompnotify. Op names the syscall or plugin entry point that
// failed; Path is the target path or plugin path involved.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Syscall wraps a failed syscall with context, mirroring the teacher's
// errors.Wrap(err, "context") idiom.
func Syscall(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: SystemCall, Op: op, Path: path, Err: errors.Wrap(err, op)}
}

// Env reports an invalid-environment condition.
func Env(op, path string, err error) error {
	return &Error{Kind: InvalidEnvironment, Op: op, Path: path, Err: errors.Wrap(err, op)}
}

// Load reports a plugin load failure.
func Load(pluginPath string, err error) error {
	return &Error{Kind: PluginLoad, Op: "load", Path: pluginPath, Err: err}
}

// Runtime reports a plugin entry point failure during operation.
func Runtime(op, pluginPath string, err error) error {
	return &Error{Kind: PluginRuntime, Op: op, Path: pluginPath, Err: err}
}

// ContractErr reports a contract violation (e.g. config-size mismatch,
// or a retry loop that hit its cap).
func ContractErr(op string, err error) error {
	return &Error{Kind: Contract, Op: op, Err: err}
}
