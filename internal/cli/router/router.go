// Package router is the client-side navigation layer: the route table,
// guards that gate routes on the cached session, and a navigator.
package router

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hireloop-dev/hireloop/internal/cli/session"
)

// ErrNotFound is returned when no route matches a path
var ErrNotFound = errors.New("route not found")

// Decision is the outcome of a guard check
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectHome
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Target is the path a redirecting decision leads to
func (d Decision) Target() string {
	switch d {
	case RedirectLogin:
		return LoginPath
	case RedirectHome:
		return HomePath
	default:
		return ""
	}
}

// Guard gates routes on the current session. It only reads the store.
type Guard struct {
	Session session.Reader
}

// Check decides whether the current identity may enter route
func (g Guard) Check(route Route) Decision {
	if !route.RequiresAuth && route.Role == "" {
		return Allow
	}

	id := g.Session.Read()
	if id == nil {
		return RedirectLogin
	}
	if route.Role != "" && !id.HasRole(route.Role) {
		return RedirectHome
	}
	return Allow
}

// Navigator performs client-side navigation
type Navigator interface {
	Push(path string) error
}

// Router is an in-memory Navigator over a route table
type Router struct {
	mu        sync.Mutex
	routes    []Route
	guard     *Guard
	current   Match
	listeners []func(Match)
}

var _ Navigator = (*Router)(nil)

// Option configures a Router
type Option func(*Router)

// WithGuard runs every navigation through a guard on the given session
func WithGuard(s session.Reader) Option {
	return func(r *Router) {
		r.guard = &Guard{Session: s}
	}
}

// New creates a router positioned at the home route
func New(routes []Route, opts ...Option) *Router {
	r := &Router{routes: routes}
	if home, ok := Resolve(routes, HomePath); ok {
		r.current = home
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Push navigates to path, following at most one guard redirect
func (r *Router) Push(path string) error {
	match, ok := Resolve(r.routes, path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	if r.guard != nil {
		if decision := r.guard.Check(match.Route); decision != Allow {
			redirect, ok := Resolve(r.routes, decision.Target())
			if !ok {
				return fmt.Errorf("%w: %s", ErrNotFound, decision.Target())
			}
			match = redirect
		}
	}

	r.mu.Lock()
	r.current = match
	listeners := append([]func(Match){}, r.listeners...)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(match)
	}
	return nil
}

// Current returns the route the router is positioned at
func (r *Router) Current() Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// OnNavigate registers fn to be called after each navigation
func (r *Router) OnNavigate(fn func(Match)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}
