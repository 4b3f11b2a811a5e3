package config

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/caarlos0/env/v11"
)

// Session modes.
const (
	// SessionModeToken reads the provider's ID token on every request.
	SessionModeToken = "token"
	// SessionModeCookie reads the user id mirrored into a cookie session.
	SessionModeCookie = "cookie"
)

// KeyLength is the required length of the cookie hash and block keys.
const KeyLength = 32

// Pages names the static pages the guard knows about.
type Pages struct {
	Login      string `env:"LOGIN"`
	Register   string `env:"REGISTER"`
	Home       string `env:"HOME"`
	Restricted string `env:"RESTRICTED"`
}

// Provider holds the external identity provider's client settings.
// Everything but JWKSURL and Issuer is handed to the browser as is.
type Provider struct {
	APIKey            string `env:"API_KEY" json:"apiKey"`
	AuthDomain        string `env:"AUTH_DOMAIN" json:"authDomain"`
	ProjectID         string `env:"PROJECT_ID" json:"projectId"`
	StorageBucket     string `env:"STORAGE_BUCKET" json:"storageBucket"`
	MessagingSenderID string `env:"MESSAGING_SENDER_ID" json:"messagingSenderId"`
	AppID             string `env:"APP_ID" json:"appId"`

	// JWKSURL is where the provider publishes its token signing keys.
	JWKSURL string `env:"JWKS_URL" json:"-"`
	// Issuer overrides the expected token issuer. Empty means derived from ProjectID.
	Issuer string `env:"ISSUER" json:"-"`
}

// ExpectedIssuer returns the issuer ID tokens must carry.
func (p Provider) ExpectedIssuer() string {
	if p.Issuer != "" {
		return p.Issuer
	}
	return "https://securetoken.google.com/" + p.ProjectID
}

// Config provides configuration.
type Config struct {
	// Addr is the listen address of the web server.
	Addr string `env:"ADDR"`
	// StaticDir is the directory holding the pages.
	StaticDir string `env:"STATIC_DIR"`

	// SessionName is the cookie name for the session
	SessionName string `env:"SESSION_NAME"`
	// UserIDKey is the user_id session key
	UserIDKey string `env:"USER_ID_KEY"`
	// SessionMode selects how the session state of a request is resolved.
	SessionMode string `env:"SESSION_MODE"`
	// IDTokenCookie is the cookie the page stores the provider's ID token in.
	IDTokenCookie string `env:"ID_TOKEN_COOKIE"`

	HashKey      string `env:"HASH_KEY"`
	BlockKey     string `env:"BLOCK_KEY"`
	SecureCookie bool   `env:"SECURE_COOKIE"`

	Pages    Pages    `envPrefix:"PAGE_"`
	Provider Provider `envPrefix:"PROVIDER_"`
}

// NewConfig returns a new configuration with default values.
func NewConfig() *Config {
	return &Config{
		Addr:          "localhost:9000",
		StaticDir:     "public",
		SessionName:   "page-guard",
		UserIDKey:     "user_id",
		SessionMode:   SessionModeToken,
		IDTokenCookie: "id_token",
		Pages: Pages{
			Login:      "login.html",
			Register:   "register.html",
			Home:       "index.html",
			Restricted: "points.html",
		},
		Provider: Provider{
			JWKSURL: "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com",
		},
	}
}

// LoadEnv overlays PAGEGUARD_* environment variables onto cfg.
// Unset variables keep the value already in cfg.
func LoadEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "PAGEGUARD_"}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports the first setting that keeps the server from starting.
func (c *Config) Validate() error {
	if c.Provider.ProjectID == "" {
		return errors.New("provider project id is required")
	}
	if c.Pages.Login == "" || c.Pages.Register == "" || c.Pages.Home == "" || c.Pages.Restricted == "" {
		return errors.New("all four pages must be named")
	}
	for _, name := range []string{c.SessionName, c.IDTokenCookie} {
		if err := (&http.Cookie{Name: name}).Valid(); err != nil {
			return fmt.Errorf("cookie name %q: %w", name, err)
		}
	}
	switch c.SessionMode {
	case SessionModeToken:
	case SessionModeCookie:
		if len(c.HashKey) != KeyLength || len(c.BlockKey) != KeyLength {
			return fmt.Errorf("cookie session mode needs hash key and block key both with %d chars", KeyLength)
		}
	default:
		return fmt.Errorf("unknown session mode %q", c.SessionMode)
	}
	return nil
}
