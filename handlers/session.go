package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"path"

	"github.com/kschaper/page-guard/guard"
	"github.com/kschaper/page-guard/identity"
	"github.com/kschaper/page-guard/services"
)

// navigation is the answer to a sign-in or sign-out when the page the
// visitor is on has to be left.
type navigation struct {
	Location string `json:"location"`
}

// replyLocation is the page a sign-in or sign-out was reported from. Assign
// records the target instead of redirecting the POST itself.
type replyLocation struct {
	page   string
	target string
}

func (l *replyLocation) Path() string {
	return l.page
}

func (l *replyLocation) Assign(target string) error {
	if l.target != "" {
		return errAlreadyRedirected
	}
	if !path.IsAbs(target) {
		target = path.Join(path.Dir(l.page), target)
	}
	l.target = target
	return nil
}

// reportedPage is the path of the page the request came from: the page form
// value, else the Referer.
func reportedPage(r *http.Request) string {
	if p := r.PostFormValue("page"); p != "" {
		if u, err := url.Parse(p); err == nil {
			return u.Path
		}
	}
	if u, err := url.Parse(r.Referer()); err == nil && u.Path != "" {
		return u.Path
	}
	return "/"
}

// notify runs the guard for the state the visitor just changed to and tells
// the page where to go, if anywhere.
func notify(w http.ResponseWriter, r *http.Request, g *guard.Guard, user *identity.User) {
	loc := &replyLocation{page: reportedPage(r)}
	detach := g.Attach(identity.Static(user), loc)
	detach()

	if loc.target == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(navigation{Location: loc.target})
}

// SessionHandler records the sign-in of a verified provider ID token and
// runs the guard for the reporting page.
func SessionHandler(mirror services.SessionMirror, verifier services.TokenVerifier, g *guard.Guard, logger *slog.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		idToken := r.PostFormValue("idToken")
		if idToken == "" {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		// verify
		user, err := verifier.Verify(r.Context(), idToken)
		if err != nil {
			logger.Info("id token rejected", "error", err)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if err := mirror.Remember(w, r, user, idToken); err != nil {
			logger.Error("remember session", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		notify(w, r, g, user)
	}
}

// SignoutHandler records a sign-out and runs the guard for the reporting page.
func SignoutHandler(mirror services.SessionMirror, g *guard.Guard, logger *slog.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := mirror.Forget(w, r); err != nil {
			logger.Error("forget session", "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		notify(w, r, g, nil)
	}
}
