package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kschaper/page-guard/guard"
	"github.com/kschaper/page-guard/identity"
	"github.com/kschaper/page-guard/services"
)

var errAlreadyRedirected = errors.New("already redirected")

// requestLocation is the page requested by r. Assign answers with a redirect.
type requestLocation struct {
	w          http.ResponseWriter
	r          *http.Request
	redirected bool
}

func (l *requestLocation) Path() string {
	return l.r.URL.Path
}

// Assign redirects to target, which is resolved relative to the request path.
func (l *requestLocation) Assign(target string) error {
	if l.redirected {
		return errAlreadyRedirected
	}
	http.Redirect(l.w, l.r, target, http.StatusFound)
	l.redirected = true
	return nil
}

// GuardHandler resolves the session of every request and runs the guard on it
// before next gets to serve the page. A session that can't be resolved counts
// as signed out.
func GuardHandler(g *guard.Guard, resolver services.SessionResolver, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := resolver.Resolve(r)
		if err != nil {
			logger.Info("session not resolved", "path", r.URL.Path, "error", err)
			user = nil
		}

		loc := &requestLocation{w: w, r: r}
		detach := g.Attach(identity.Static(user), loc)
		detach()

		if loc.redirected {
			return
		}
		next.ServeHTTP(w, r)
	})
}
