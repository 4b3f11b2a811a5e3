package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/jessevdk/go-flags"

	"github.com/kschaper/page-guard/config"
	"github.com/kschaper/page-guard/guard"
	"github.com/kschaper/page-guard/handlers"
	"github.com/kschaper/page-guard/identity"
	"github.com/kschaper/page-guard/services"
)

// options override the environment.
type options struct {
	Addr        string `short:"a" long:"addr" description:"listen address"`
	StaticDir   string `short:"d" long:"dir" description:"directory with the pages"`
	SessionMode string `short:"m" long:"session-mode" choice:"token" choice:"cookie" description:"how the session of a request is resolved"`
	Secure      bool   `long:"secure" description:"cookie secure flag"`
	Debug       bool   `long:"debug" description:"log every redirect"`
}

func (o *options) apply(cfg *config.Config) {
	if o.Addr != "" {
		cfg.Addr = o.Addr
	}
	if o.StaticDir != "" {
		cfg.StaticDir = o.StaticDir
	}
	if o.SessionMode != "" {
		cfg.SessionMode = o.SessionMode
	}
	if o.Secure {
		cfg.SecureCookie = true
	}
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(2)
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// config
	cfg := config.NewConfig()
	if err := config.LoadEnv(cfg); err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// identity provider
	verifier := identity.NewVerifier(
		cfg.Provider.JWKSURL,
		cfg.Provider.ExpectedIssuer(),
		cfg.Provider.ProjectID,
		&http.Client{Timeout: 5 * time.Second},
	)

	// session
	var mirror services.SessionMirror
	switch cfg.SessionMode {
	case config.SessionModeCookie:
		cookieStore := sessions.NewCookieStore([]byte(cfg.HashKey), []byte(cfg.BlockKey))
		cookieStore.Options = &sessions.Options{
			Path:     "/",
			HttpOnly: true,
			Secure:   cfg.SecureCookie,
			SameSite: http.SameSiteLaxMode,
		}
		mirror = &services.CookieResolver{Store: cookieStore, SessionName: cfg.SessionName, UserIDKey: cfg.UserIDKey}
	default:
		mirror = &services.TokenResolver{Verifier: verifier, CookieName: cfg.IDTokenCookie, Secure: cfg.SecureCookie}
	}

	// routes
	router := &handlers.Router{
		Config: cfg,
		Guard: guard.New(guard.Pages{
			Login:      cfg.Pages.Login,
			Register:   cfg.Pages.Register,
			Home:       cfg.Pages.Home,
			Restricted: cfg.Pages.Restricted,
		}, logger),
		Sessions: mirror,
		Verifier: verifier,
		Pages:    http.FileServer(http.Dir(cfg.StaticDir)),
		Logger:   logger,
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", "addr", cfg.Addr, "dir", cfg.StaticDir, "session_mode", cfg.SessionMode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
		os.Exit(1)
	}
}
