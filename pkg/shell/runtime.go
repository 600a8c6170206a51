package shell

import (
	"encoding/json"
	"time"
)

// RuntimeFlags are build-time switches handed to the view runtime. They
// are fixed once the runtime is constructed.
type RuntimeFlags struct {
	// HydrationMismatchDetails enables detailed diagnostics when
	// server-rendered markup and client state disagree. Off in production.
	HydrationMismatchDetails bool `json:"hydrationMismatchDetails" yaml:"hydrationMismatchDetails"`
}

// Runtime is the view runtime an App mounts into.
type Runtime struct {
	flags     RuntimeFlags
	startedAt time.Time
}

func newRuntime(flags RuntimeFlags) *Runtime {
	return &Runtime{flags: flags, startedAt: time.Now()}
}

// Flags returns the runtime's flags.
func (rt *Runtime) Flags() RuntimeFlags {
	return rt.flags
}

// StartedAt returns when the runtime was constructed.
func (rt *Runtime) StartedAt() time.Time {
	return rt.startedAt
}

// flagsScript returns the inline script exposing flags to the page.
func (rt *Runtime) flagsScript() (string, error) {
	b, err := json.Marshal(rt.flags)
	if err != nil {
		return "", err
	}
	return "window.__SIGNALSHELL_FLAGS__ = " + string(b) + ";", nil
}
