// Package guard decides whether a page has to be left given the current
// authentication state, and navigates away when it does.
//
// The decision table is:
//
//	signed out, restricted page       -> login page
//	signed in, login or register page -> home page
//	anything else                     -> stay
package guard

import (
	"log/slog"
	"path"

	"github.com/kschaper/page-guard/identity"
)

// StateSource notifies about authentication state changes. The callback gets
// nil when nobody is signed in.
type StateSource interface {
	OnAuthStateChanged(fn func(*identity.User)) (unsubscribe func())
}

// Location is the current page as seen by the guard.
type Location interface {
	Path() string
	Assign(target string) error
}

// Pages names the pages taking part in the decision.
type Pages struct {
	Login      string
	Register   string
	Home       string
	Restricted string
}

// Decision is the outcome of one evaluation. An empty Target means stay.
type Decision struct {
	Target string
}

// Redirect reports whether the decision asks for navigation.
func (d Decision) Redirect() bool {
	return d.Target != ""
}

// is reports whether p is the page named by name, comparing the last path segment.
func is(p, name string) bool {
	return name != "" && path.Base(p) == name
}

// Decide returns where a visitor of p has to go.
func (pages Pages) Decide(signedIn bool, p string) Decision {
	switch {
	case !signedIn && is(p, pages.Restricted):
		return Decision{Target: pages.Login}
	case signedIn && (is(p, pages.Login) || is(p, pages.Register)):
		return Decision{Target: pages.Home}
	}
	return Decision{}
}

// Guard applies the decision to every notification of a state source.
type Guard struct {
	Pages  Pages
	Logger *slog.Logger
}

// New returns a guard over pages. A nil logger discards.
func New(pages Pages, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Guard{Pages: pages, Logger: logger}
}

// Attach subscribes to source once and evaluates every notification against
// loc. It must be called after the page content has loaded. The returned
// function detaches the guard.
func (g *Guard) Attach(source StateSource, loc Location) (detach func()) {
	return source.OnAuthStateChanged(func(user *identity.User) {
		g.evaluate(user, loc)
	})
}

func (g *Guard) evaluate(user *identity.User, loc Location) {
	p := loc.Path()
	d := g.Pages.Decide(user != nil, p)
	if !d.Redirect() {
		return
	}

	g.Logger.Debug("redirect", "path", p, "signed_in", user != nil, "target", d.Target)

	// a failed navigation leaves the visitor where they are
	if err := loc.Assign(d.Target); err != nil {
		g.Logger.Warn("redirect failed", "path", p, "target", d.Target, "error", err)
	}
}
