package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/kschaper/page-guard/config"
	"github.com/kschaper/page-guard/guard"
	"github.com/kschaper/page-guard/services"
)

// Router wires the routes of the web server.
type Router struct {
	Config *config.Config
	Guard  *guard.Guard
	// Sessions resolves page requests and records sign-ins and sign-outs.
	Sessions services.SessionMirror
	Verifier services.TokenVerifier
	Pages    http.Handler
	Logger   *slog.Logger
}

// Handler returns the routes.
func (rt *Router) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware(rt.Logger))

	r.HandleFunc("/client-config.json", ClientConfigHandler(rt.Config)).Methods("GET")
	r.HandleFunc("/session", SessionHandler(rt.Sessions, rt.Verifier, rt.Guard, rt.Logger)).Methods("POST")
	r.HandleFunc("/signout", SignoutHandler(rt.Sessions, rt.Guard, rt.Logger)).Methods("POST")
	r.PathPrefix("/").Handler(GuardHandler(rt.Guard, rt.Sessions, rt.Logger, rt.Pages)).Methods("GET", "HEAD")
	return r
}
