// Package view defines the renderable unit bound to a route and the
// keep-alive cache that retains view instances across navigations.
//
// A View has exactly one required method, Render. Lifecycle hooks are
// optional interfaces a view may implement:
//
//	Mounter    Mount() is called once, when the instance is first attached
//	Unmounter  Unmount() is called once, when the instance is destroyed
//	Activator  Activate()/Deactivate() bracket every period a retained
//	           instance spends on screen
//
// Route tables hold Factory values, never view names, so dispatch from a
// route to its view is a plain interface call.
package view

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// View is a unit of renderable UI bound to a route.
type View interface {
	// Render writes the view's markup to w.
	Render(w io.Writer) error
}

// Mounter is implemented by views that need a hook when first attached.
type Mounter interface {
	Mount()
}

// Unmounter is implemented by views that release resources when destroyed.
type Unmounter interface {
	Unmount()
}

// Activator is implemented by retained views that track visibility.
type Activator interface {
	Activate()
	Deactivate()
}

// Factory constructs fresh view instances.
type Factory interface {
	New() View
}

// FactoryFunc adapts an ordinary function to Factory.
type FactoryFunc func() View

// New implements Factory.
func (f FactoryFunc) New() View {
	return f()
}

// Loader resolves a Factory on demand. Routes declared with a Loader are
// lazily loaded: the router calls the loader the first time the route is
// navigated to and reuses the returned Factory afterwards.
type Loader func(ctx context.Context) (Factory, error)

// Instance is a live view attached to a route.
type Instance struct {
	// ID uniquely identifies this instance. A retained instance keeps its
	// ID across navigations; a reconstructed view gets a new one.
	ID uuid.UUID

	// Route is the name of the route the instance was created for.
	Route string

	// View is the underlying view.
	View View

	// CreatedAt is when the instance was constructed.
	CreatedAt time.Time

	mounted bool
	active  bool
}

// NewInstance constructs an instance from a factory.
func NewInstance(route string, f Factory) *Instance {
	return &Instance{
		ID:        uuid.New(),
		Route:     route,
		View:      f.New(),
		CreatedAt: time.Now(),
	}
}

// Render renders the underlying view.
func (i *Instance) Render(w io.Writer) error {
	return i.View.Render(w)
}

// Active reports whether the instance is currently on screen.
func (i *Instance) Active() bool {
	return i.active
}

// Activate runs the mount hook on first use and the activate hook on
// every call.
func (i *Instance) Activate() {
	if !i.mounted {
		i.mounted = true
		if m, ok := i.View.(Mounter); ok {
			m.Mount()
		}
	}
	if i.active {
		return
	}
	i.active = true
	if a, ok := i.View.(Activator); ok {
		a.Activate()
	}
}

// Deactivate marks the instance as off screen without destroying it.
func (i *Instance) Deactivate() {
	if !i.active {
		return
	}
	i.active = false
	if a, ok := i.View.(Activator); ok {
		a.Deactivate()
	}
}

// Destroy deactivates the instance and runs its unmount hook.
func (i *Instance) Destroy() {
	i.Deactivate()
	if !i.mounted {
		return
	}
	i.mounted = false
	if u, ok := i.View.(Unmounter); ok {
		u.Unmount()
	}
}
