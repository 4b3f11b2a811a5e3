package guard_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kschaper/page-guard/guard"
	"github.com/kschaper/page-guard/identity"
)

var pages = guard.Pages{
	Login:      "login.html",
	Register:   "register.html",
	Home:       "index.html",
	Restricted: "points.html",
}

// location records assignments.
type location struct {
	path     string
	assigned []string
	err      error
}

func (l *location) Path() string { return l.path }

func (l *location) Assign(target string) error {
	l.assigned = append(l.assigned, target)
	return l.err
}

// source delivers whatever is pushed into it to its subscribers.
type source struct {
	listeners []func(*identity.User)
}

func (s *source) OnAuthStateChanged(fn func(*identity.User)) func() {
	s.listeners = append(s.listeners, fn)
	i := len(s.listeners) - 1
	return func() { s.listeners[i] = nil }
}

func (s *source) push(u *identity.User) {
	for _, fn := range s.listeners {
		if fn != nil {
			fn(u)
		}
	}
}

func TestDecide(t *testing.T) {
	cases := map[string]struct {
		signedIn bool
		path     string
		want     string
	}{
		"signed out on restricted":        {signedIn: false, path: "/points.html", want: "login.html"},
		"signed out on nested restricted": {signedIn: false, path: "/app/points.html", want: "login.html"},
		"signed in on login":              {signedIn: true, path: "/login.html", want: "index.html"},
		"signed in on register":           {signedIn: true, path: "/register.html", want: "index.html"},
		"signed in on restricted":         {signedIn: true, path: "/points.html"},
		"signed in on home":               {signedIn: true, path: "/index.html"},
		"signed out on home":              {signedIn: false, path: "/index.html"},
		"signed out on login":             {signedIn: false, path: "/login.html"},
		"signed out on register":          {signedIn: false, path: "/register.html"},
		"signed out on root":              {signedIn: false, path: "/"},
		"signed out on lookalike":         {signedIn: false, path: "/points.html.bak"},
	}

	for n, c := range cases {
		t.Run(n, func(t *testing.T) {
			d := pages.Decide(c.signedIn, c.path)
			assert.Equal(t, c.want, d.Target)
			assert.Equal(t, c.want != "", d.Redirect())
		})
	}
}

func TestGuard(t *testing.T) {
	user := &identity.User{UID: "uid-42"}

	cases := map[string]func(t *testing.T){
		"signed out on restricted page goes to login": func(t *testing.T) {
			loc := &location{path: "/points.html"}
			guard.New(pages, nil).Attach(identity.Static(nil), loc)
			assert.Equal(t, []string{"login.html"}, loc.assigned)
		},
		"signed in on login page goes home": func(t *testing.T) {
			loc := &location{path: "/login.html"}
			guard.New(pages, nil).Attach(identity.Static(user), loc)
			assert.Equal(t, []string{"index.html"}, loc.assigned)
		},
		"signed in on restricted page stays": func(t *testing.T) {
			loc := &location{path: "/points.html"}
			guard.New(pages, nil).Attach(identity.Static(user), loc)
			assert.Empty(t, loc.assigned)
		},
		"signed out on home page stays": func(t *testing.T) {
			loc := &location{path: "/index.html"}
			guard.New(pages, nil).Attach(identity.Static(nil), loc)
			assert.Empty(t, loc.assigned)
		},
		"one evaluation per notification": func(t *testing.T) {
			src := &source{}
			loc := &location{path: "/points.html"}
			guard.New(pages, nil).Attach(src, loc)

			src.push(nil)
			src.push(user)
			src.push(nil)
			assert.Equal(t, []string{"login.html", "login.html"}, loc.assigned)
		},
		"repeated notifications decide the same": func(t *testing.T) {
			src := &source{}
			loc := &location{path: "/register.html"}
			guard.New(pages, nil).Attach(src, loc)

			for i := 0; i < 3; i++ {
				src.push(user)
			}
			assert.Equal(t, []string{"index.html", "index.html", "index.html"}, loc.assigned)
		},
		"path is read on every notification": func(t *testing.T) {
			src := &source{}
			loc := &location{path: "/index.html"}
			guard.New(pages, nil).Attach(src, loc)

			src.push(nil)
			loc.path = "/points.html"
			src.push(nil)
			assert.Equal(t, []string{"login.html"}, loc.assigned)
		},
		"failed navigation is not retried": func(t *testing.T) {
			src := &source{}
			loc := &location{path: "/points.html", err: errors.New("blocked")}
			guard.New(pages, nil).Attach(src, loc)

			src.push(nil)
			assert.Equal(t, []string{"login.html"}, loc.assigned)
		},
		"detached guard ignores notifications": func(t *testing.T) {
			src := &source{}
			loc := &location{path: "/points.html"}
			detach := guard.New(pages, nil).Attach(src, loc)

			detach()
			src.push(nil)
			assert.Empty(t, loc.assigned)
		},
	}

	for n, c := range cases {
		t.Run(n, c)
	}
}
