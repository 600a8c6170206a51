package router

import (
	"errors"

	"github.com/vango-dev/signalshell/pkg/routepath"
)

// Table construction errors.
var (
	ErrDuplicatePath = errors.New("duplicate route path")
	ErrDuplicateName = errors.New("duplicate route name")
	ErrInvalidPath   = routepath.ErrInvalidPath
	ErrNoComponent   = errors.New("route must declare exactly one of component or lazy loader")
)

// Navigation errors.
var (
	ErrNotFound       = errors.New("no route matches path")
	ErrSuperseded     = errors.New("navigation superseded by a newer navigation")
	ErrViewLoad       = errors.New("view failed to load")
	ErrNoHistory      = errors.New("no history entry at offset")
	ErrNotStarted     = errors.New("router not started")
	ErrAlreadyStarted = errors.New("router already started")
	ErrStopped        = errors.New("router stopped")
)
