package router

import (
	"context"

	"github.com/vango-dev/signalshell/pkg/view"
)

// State is a router state machine state.
type State int

const (
	Idle State = iota
	Resolving
	Mounted
	NotFoundMounted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case Mounted:
		return "mounted"
	case NotFoundMounted:
		return "not-found"
	default:
		return "unknown"
	}
}

// Kind describes how a navigation affects history.
type Kind int

const (
	// Push appends a new history entry after the current one.
	Push Kind = iota
	// Replace overwrites the current history entry.
	Replace
	// Pop moves within existing history entries (back/forward).
	Pop
)

func (k Kind) String() string {
	switch k {
	case Push:
		return "push"
	case Replace:
		return "replace"
	case Pop:
		return "pop"
	default:
		return "unknown"
	}
}

// NavigationState is a read-only snapshot of the router.
type NavigationState struct {
	State State

	// Route is the mounted entry; nil when Idle or NotFoundMounted.
	Route *RouteEntry

	// Path is the canonical path of the current location.
	Path string

	// Query is the raw query string of the current location.
	Query string

	// Params holds captured path parameters.
	Params map[string]string

	// History is a copy of the history stack and Index the position of
	// the current entry in it.
	History []string
	Index   int
}

// URL returns the current path with its query string.
func (s NavigationState) URL() string {
	if s.Query == "" {
		return s.Path
	}
	return s.Path + "?" + s.Query
}

// Transition describes a view change about to be committed.
type Transition struct {
	From NavigationState
	To   NavigationState
	Kind Kind

	// Factory builds the view to mount. Nil when the target is blank.
	Factory view.Factory
}

// Listener is notified of every transition before it is committed. An
// error rejects the transition: the router keeps its previous state and
// history.
type Listener interface {
	Transition(ctx context.Context, t Transition) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, t Transition) error

// Transition implements Listener.
func (f ListenerFunc) Transition(ctx context.Context, t Transition) error {
	return f(ctx, t)
}
