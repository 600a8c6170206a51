// Package router maps navigation paths to views and owns the navigation
// state machine.
//
// # Route Table
//
// A Table is an immutable, ordered list of RouteEntry values. Paths and
// names must be unique; each entry binds either an eager Component factory
// or a Lazy loader. Construction fails fast so a misconfigured table never
// reaches the screen:
//
//	table, err := router.NewTable(
//	    router.RouteEntry{Path: "/", Name: "Home", Component: views.Home, KeepAlive: true},
//	    router.RouteEntry{Path: "/analysis", Name: "Analysis", Component: views.Analysis},
//	)
//
// Lookup walks the entries in order and returns the first match. Literal
// segments match exactly; ":name" captures one segment and "*name"
// captures the rest of the path.
//
// # Router
//
// A Router processes navigation events one at a time on a single loop
// goroutine:
//
//	Idle ──navigate/pop──▶ Resolving ──match──▶ Mounted
//	                           │
//	                           └──no match──▶ NotFoundMounted
//
// A navigation that arrives while a lazy view is still loading supersedes
// it: the older call returns ErrSuperseded and its view is never mounted.
// History is only committed once a transition has been accepted by the
// Listener.
//
//	r := router.New(table, router.WithListener(app))
//	if err := r.Start(ctx); err != nil {
//	    return err
//	}
//	defer r.Stop()
//
//	state, err := r.Navigate(ctx, "/upload")
package router
