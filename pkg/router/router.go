package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/vango-dev/signalshell/pkg/routepath"
	"github.com/vango-dev/signalshell/pkg/view"
)

const tracerName = "github.com/vango-dev/signalshell/pkg/router"

// Router resolves navigations against a Table. All state changes happen
// on a single loop goroutine started by Start; the exported methods are
// safe for concurrent use.
type Router struct {
	table    *Table
	listener Listener
	notFound NotFoundPolicy
	history  History
	logger   *slog.Logger
	tracer   trace.Tracer

	requests chan request
	loads    chan loadResult

	mu     sync.RWMutex
	state  NavigationState
	done   chan struct{}
	cancel context.CancelFunc

	// Owned by the loop goroutine.
	seq      uint64
	pending  *navigation
	resolved map[string]view.Factory
	group    singleflight.Group
}

type request struct {
	ctx   context.Context
	kind  Kind
	url   string
	delta int
	reply chan reply
}

type reply struct {
	state NavigationState
	err   error
}

type loadResult struct {
	seq     uint64
	name    string
	factory view.Factory
	err     error
}

// navigation is a request being resolved.
type navigation struct {
	req    request
	ctx    context.Context
	span   trace.Span
	seq    uint64
	kind   Kind
	target int   // history index for pops
	prev   State // state before Resolving
	match  *Match
}

// New creates a router over table. The router is idle until Start.
func New(table *Table, opts ...Option) *Router {
	r := &Router{
		table:    table,
		notFound: NotFoundView(nil),
		logger:   slog.Default(),
		requests: make(chan request),
		loads:    make(chan loadResult),
		resolved: make(map[string]view.Factory),
		state:    NavigationState{State: Idle, Index: -1},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.history == nil {
		r.history = NewMemoryHistory()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	if r.notFound.Mode == NotFoundShowView && r.notFound.Factory == nil {
		r.notFound = NotFoundView(nil)
	}
	return r
}

// Table returns the router's route table.
func (r *Router) Table() *Table {
	return r.table
}

// Start launches the event loop. It runs until ctx is cancelled or Stop
// is called.
func (r *Router) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil {
		return ErrAlreadyStarted
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(loopCtx, r.done)
	return nil
}

// Stop terminates the event loop and waits for it to exit. A navigation
// still waiting on a lazy view fails with ErrStopped.
func (r *Router) Stop() {
	r.mu.RLock()
	cancel, done := r.cancel, r.done
	r.mu.RUnlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Current returns a snapshot of the navigation state.
func (r *Router) Current() NavigationState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.clone()
}

// Navigate resolves path and mounts its view, pushing a history entry
// (or replacing the current one with WithReplace). It returns once the
// navigation is committed, rejected or superseded. Cancelling ctx stops
// the wait but not a navigation the loop has already accepted.
func (r *Router) Navigate(ctx context.Context, path string, opts ...NavigateOption) (NavigationState, error) {
	var o navigateOptions
	for _, opt := range opts {
		opt(&o)
	}

	res, err := routepath.NavPath(path)
	if err != nil {
		return r.Current(), fmt.Errorf("navigate %q: %w", path, err)
	}

	kind := Push
	if o.replace {
		kind = Replace
	}
	return r.submit(request{ctx: ctx, kind: kind, url: res.String()})
}

// Back moves one entry back in history.
func (r *Router) Back(ctx context.Context) (NavigationState, error) {
	return r.Go(ctx, -1)
}

// Forward moves one entry forward in history.
func (r *Router) Forward(ctx context.Context) (NavigationState, error) {
	return r.Go(ctx, 1)
}

// Go moves delta entries through history, as a browser popstate event
// would. Go(ctx, 0) re-resolves the current entry.
func (r *Router) Go(ctx context.Context, delta int) (NavigationState, error) {
	return r.submit(request{ctx: ctx, kind: Pop, delta: delta})
}

func (r *Router) submit(req request) (NavigationState, error) {
	r.mu.RLock()
	done := r.done
	r.mu.RUnlock()
	if done == nil {
		return r.Current(), ErrNotStarted
	}

	req.reply = make(chan reply, 1)
	select {
	case r.requests <- req:
	case <-done:
		return r.Current(), ErrStopped
	case <-req.ctx.Done():
		return r.Current(), req.ctx.Err()
	}

	select {
	case rep := <-req.reply:
		return rep.state, rep.err
	case <-req.ctx.Done():
		return r.Current(), req.ctx.Err()
	}
}

func (r *Router) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			if nav := r.pending; nav != nil {
				r.pending = nil
				r.restore(nav.prev)
				r.fail(nav, ErrStopped)
			}
			return
		case req := <-r.requests:
			r.handle(ctx, req)
		case res := <-r.loads:
			r.finishLoad(ctx, res)
		}
	}
}

func (r *Router) handle(loopCtx context.Context, req request) {
	if err := req.ctx.Err(); err != nil {
		req.reply <- reply{state: r.Current(), err: err}
		return
	}

	r.seq++
	if old := r.pending; old != nil {
		r.pending = nil
		r.logger.Debug("navigation superseded", "url", old.req.url, "kind", old.kind)
		r.restore(old.prev)
		r.fail(old, fmt.Errorf("navigate %q: %w", old.req.url, ErrSuperseded))
	}

	ctx, span := r.tracer.Start(req.ctx, "router.navigate",
		trace.WithAttributes(attribute.String("router.kind", req.kind.String())))

	current := r.Current()
	nav := &navigation{
		req:    req,
		ctx:    ctx,
		span:   span,
		seq:    r.seq,
		kind:   req.kind,
		target: -1,
		prev:   current.State,
	}

	url := req.url
	switch req.kind {
	case Pop:
		entries := r.history.Entries()
		nav.target = r.history.Index() + req.delta
		if nav.target < 0 || nav.target >= len(entries) {
			r.fail(nav, fmt.Errorf("go %d: %w", req.delta, ErrNoHistory))
			return
		}
		url = entries[nav.target]
	case Push:
		// Pushing the location already shown does not grow history.
		if current.State != Idle && current.URL() == url {
			nav.kind = Replace
		}
	}
	nav.req.url = url
	span.SetAttributes(attribute.String("router.url", url))

	r.mu.Lock()
	r.state.State = Resolving
	r.mu.Unlock()

	r.resolve(loopCtx, nav, url, false)
}

func (r *Router) resolve(loopCtx context.Context, nav *navigation, url string, redirected bool) {
	match, err := r.table.Lookup(url)
	if errors.Is(err, ErrNotFound) {
		r.resolveNotFound(loopCtx, nav, url, redirected)
		return
	}
	if err != nil {
		r.restore(nav.prev)
		r.fail(nav, err)
		return
	}
	nav.match = match

	entry := match.Entry
	if f := r.factoryFor(entry); f != nil {
		r.commit(nav, r.mountedState(match), f)
		return
	}

	r.logger.Debug("loading lazy view", "route", entry.Name)
	r.pending = nav
	go r.load(loopCtx, nav.seq, entry)
}

func (r *Router) resolveNotFound(loopCtx context.Context, nav *navigation, url string, redirected bool) {
	// The location shown is always the one requested, even when a
	// redirect target is missing too.
	res, err := routepath.Canonicalize(nav.req.url)
	if err != nil {
		r.restore(nav.prev)
		r.fail(nav, err)
		return
	}
	to := NavigationState{State: NotFoundMounted, Path: res.Path, Query: res.Query}

	switch r.notFound.Mode {
	case NotFoundRedirectTo:
		if !redirected {
			r.logger.Debug("redirecting unmatched path", "from", url, "to", r.notFound.Target)
			r.resolve(loopCtx, nav, r.notFound.Target, true)
			return
		}
		r.commit(nav, to, nil)
	case NotFoundShowBlank:
		r.commit(nav, to, nil)
	default:
		r.commit(nav, to, r.notFound.Factory)
	}
}

func (r *Router) factoryFor(entry *RouteEntry) view.Factory {
	if entry.Component != nil {
		return entry.Component
	}
	return r.resolved[entry.Name]
}

func (r *Router) load(ctx context.Context, seq uint64, entry *RouteEntry) {
	v, err, _ := r.group.Do(entry.Name, func() (any, error) {
		return entry.Lazy(ctx)
	})
	f, _ := v.(view.Factory)
	if err == nil && f == nil {
		err = errors.New("loader returned no factory")
	}

	select {
	case r.loads <- loadResult{seq: seq, name: entry.Name, factory: f, err: err}:
	case <-ctx.Done():
	}
}

func (r *Router) finishLoad(ctx context.Context, res loadResult) {
	if res.err == nil {
		r.resolved[res.name] = res.factory
	}

	nav := r.pending
	if nav == nil || nav.seq != res.seq {
		return
	}
	r.pending = nil

	if res.err != nil {
		r.restore(nav.prev)
		r.fail(nav, fmt.Errorf("route %q: %w: %w", res.name, ErrViewLoad, res.err))
		return
	}
	r.commit(nav, r.mountedState(nav.match), res.factory)
}

func (r *Router) mountedState(m *Match) NavigationState {
	return NavigationState{
		State:  Mounted,
		Route:  m.Entry,
		Path:   m.Path,
		Query:  m.Query,
		Params: m.Params,
	}
}

// commit hands the transition to the listener and, if accepted, applies
// it to history and state.
func (r *Router) commit(nav *navigation, to NavigationState, f view.Factory) {
	url := to.URL()
	from := r.Current()
	from.State = nav.prev

	// Checked again here since a not-found redirect can land on the
	// location already shown.
	if nav.kind == Push && nav.prev != Idle && from.URL() == url {
		nav.kind = Replace
	}
	to.History, to.Index = plannedHistory(r.history, nav.kind, url, nav.target)

	if r.listener != nil {
		err := r.listener.Transition(nav.ctx, Transition{From: from, To: to.clone(), Kind: nav.kind, Factory: f})
		if err != nil {
			r.restore(nav.prev)
			r.fail(nav, fmt.Errorf("navigate %q: %w", url, err))
			return
		}
	}

	applyHistory(r.history, nav.kind, url, nav.target)

	r.mu.Lock()
	r.state = to
	r.mu.Unlock()

	route := ""
	if to.Route != nil {
		route = to.Route.Name
	}
	nav.span.SetAttributes(
		attribute.String("router.route", route),
		attribute.String("router.state", to.State.String()),
	)
	nav.span.End()
	r.logger.Debug("navigation committed", "url", url, "route", route, "state", to.State, "kind", nav.kind)

	nav.req.reply <- reply{state: to.clone()}
}

func (r *Router) fail(nav *navigation, err error) {
	nav.span.RecordError(err)
	nav.span.SetStatus(codes.Error, err.Error())
	nav.span.End()
	nav.req.reply <- reply{state: r.Current(), err: err}
}

func (r *Router) restore(s State) {
	r.mu.Lock()
	r.state.State = s
	r.mu.Unlock()
}

func (s NavigationState) clone() NavigationState {
	if s.History != nil {
		s.History = append([]string(nil), s.History...)
	}
	if s.Params != nil {
		params := make(map[string]string, len(s.Params))
		for k, v := range s.Params {
			params[k] = v
		}
		s.Params = params
	}
	return s
}
