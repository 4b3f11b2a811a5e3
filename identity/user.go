// Package identity adapts the external identity provider for the page guard:
// the user it reports, a one-shot state source and an ID token verifier.
package identity

// User is an authenticated user as reported by the provider.
type User struct {
	UID   string
	Email string
}

// Static returns a source that reports user exactly once to every
// subscriber, synchronously, at subscription time. A nil user means no
// session.
func Static(user *User) StaticSource {
	return StaticSource{user: user}
}

// StaticSource is the provider's initial page-load notification.
type StaticSource struct {
	user *User
}

// OnAuthStateChanged calls fn with the fixed state and returns a no-op unsubscribe.
func (s StaticSource) OnAuthStateChanged(fn func(*User)) func() {
	fn(s.user)
	return func() {}
}
