package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/kschaper/page-guard/identity"
)

// SessionResolver finds out who, if anyone, is signed in for a request.
// A nil user without error means nobody.
type SessionResolver interface {
	Resolve(r *http.Request) (*identity.User, error)
}

// SessionMirror is a SessionResolver that can also be told about sign-ins
// and sign-outs reported by the provider's browser SDK.
type SessionMirror interface {
	SessionResolver
	Remember(w http.ResponseWriter, r *http.Request, user *identity.User, rawToken string) error
	Forget(w http.ResponseWriter, r *http.Request) error
}

// TokenVerifier verifies an ID token of the identity provider.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*identity.User, error)
}

// TokenResolver reads the provider's ID token from the Authorization header
// or, failing that, from a cookie.
type TokenResolver struct {
	Verifier   TokenVerifier
	CookieName string
	// Secure sets the secure flag on the token cookie.
	Secure bool
}

// Resolve verifies the request's ID token. No token means nobody is signed in.
func (tr *TokenResolver) Resolve(r *http.Request) (*identity.User, error) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" && tr.CookieName != "" {
		if cookie, err := r.Cookie(tr.CookieName); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil, nil
	}

	user, err := tr.Verifier.Verify(r.Context(), token)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	return user, nil
}

// Remember puts the already verified token into the token cookie.
func (tr *TokenResolver) Remember(w http.ResponseWriter, _ *http.Request, _ *identity.User, rawToken string) error {
	return tr.setCookie(w, rawToken, 0)
}

// Forget expires the token cookie.
func (tr *TokenResolver) Forget(w http.ResponseWriter, _ *http.Request) error {
	return tr.setCookie(w, "", -1)
}

func (tr *TokenResolver) setCookie(w http.ResponseWriter, value string, maxAge int) error {
	if tr.CookieName == "" {
		return errors.New("no token cookie configured")
	}
	cookie := &http.Cookie{
		Name:     tr.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   tr.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if err := cookie.Valid(); err != nil {
		return err
	}
	http.SetCookie(w, cookie)
	return nil
}

func bearerToken(value string) string {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// CookieResolver reads the user id a previous sign-in stored in the cookie session.
type CookieResolver struct {
	Store       sessions.Store
	SessionName string
	UserIDKey   string
}

// Resolve gets the user_id from the session.
func (cr *CookieResolver) Resolve(r *http.Request) (*identity.User, error) {
	session, err := cr.Store.Get(r, cr.SessionName)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	uid, _ := session.Values[cr.UserIDKey].(string)
	if uid == "" {
		return nil, nil
	}
	return &identity.User{UID: uid}, nil
}

// Remember stores the user id in the session.
func (cr *CookieResolver) Remember(w http.ResponseWriter, r *http.Request, user *identity.User, _ string) error {
	session, err := cr.session(r)
	if err != nil {
		return err
	}
	session.Values[cr.UserIDKey] = user.UID
	return session.Save(r, w)
}

// Forget removes the user id from the session.
func (cr *CookieResolver) Forget(w http.ResponseWriter, r *http.Request) error {
	session, err := cr.session(r)
	if err != nil {
		return err
	}
	delete(session.Values, cr.UserIDKey)
	return session.Save(r, w)
}

// session returns the request's session. A cookie that doesn't decode is
// replaced by a fresh session; anything else is an error.
func (cr *CookieResolver) session(r *http.Request) (*sessions.Session, error) {
	session, err := cr.Store.Get(r, cr.SessionName)
	if session == nil {
		if err == nil {
			err = errors.New("no session")
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}
