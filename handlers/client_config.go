package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kschaper/page-guard/config"
)

// ClientConfigHandler serves the public identity provider settings the pages
// need to initialise the provider's browser SDK.
func ClientConfigHandler(cfg *config.Config) func(w http.ResponseWriter, r *http.Request) {
	body, err := json.Marshal(cfg.Provider)
	return func(w http.ResponseWriter, r *http.Request) {
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(body)
	}
}
