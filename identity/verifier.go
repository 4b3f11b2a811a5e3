package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrMissingKeyID is returned for tokens without a kid header.
	ErrMissingKeyID = errors.New("missing kid in token header")
	// ErrUnknownKey is returned when the kid is not in the provider's key set.
	ErrUnknownKey = errors.New("unknown signing key")
	// ErrInvalidToken wraps every other verification failure.
	ErrInvalidToken = errors.New("invalid id token")
)

const (
	// DefaultKeyTTL is how long fetched signing keys are trusted before a refetch.
	DefaultKeyTTL = time.Hour
	// DefaultRefetchInterval is the minimum time between two key set downloads.
	DefaultRefetchInterval = time.Minute

	maxKeySetSize = 64 << 10
)

// claims are the ID token claims the guard cares about.
type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Verifier checks ID tokens minted by the identity provider.
type Verifier struct {
	JWKSURL  string
	Issuer   string
	Audience string
	Client   *http.Client
	KeyTTL   time.Duration
	// RefetchInterval bounds how often tokens signed with unknown or stale
	// keys can make the verifier download the key set. Zero means no bound.
	RefetchInterval time.Duration

	fetches singleflight.Group

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	fetchedAt   time.Time // last successful download
	attemptedAt time.Time // last download, successful or not
}

// NewVerifier returns a verifier for tokens issued for audience by issuer.
func NewVerifier(jwksURL, issuer, audience string, client *http.Client) *Verifier {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Verifier{
		JWKSURL:         jwksURL,
		Issuer:          issuer,
		Audience:        audience,
		Client:          client,
		KeyTTL:          DefaultKeyTTL,
		RefetchInterval: DefaultRefetchInterval,
	}
}

// Verify validates rawToken and returns the user it names.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*User, error) {
	var c claims
	_, err := jwt.ParseWithClaims(rawToken, &c, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, ErrMissingKeyID
		}
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.Issuer),
		jwt.WithAudience(v.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, ErrMissingKeyID) || errors.Is(err, ErrUnknownKey) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return &User{UID: c.Subject, Email: c.Email}, nil
}

// lookup returns the cached key for kid and whether the cache is still fresh.
func (v *Verifier) lookup(kid string) (key *rsa.PublicKey, fresh bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	ttl := v.KeyTTL
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	return v.keys[kid], !v.fetchedAt.IsZero() && time.Since(v.fetchedAt) <= ttl
}

// mayFetch reports whether enough time passed since the last download.
func (v *Verifier) mayFetch() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.attemptedAt.IsZero() || time.Since(v.attemptedAt) >= v.RefetchInterval
}

// key returns the public key for kid. The key set is downloaded again when
// kid is unknown or the cache went stale, but no more than once per
// RefetchInterval. A stale key keeps working while a download is not allowed
// or fails.
func (v *Verifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, fresh := v.lookup(kid); key != nil && fresh {
		return key, nil
	}

	if v.mayFetch() {
		// concurrent callers share one download
		_, err, _ := v.fetches.Do("jwks", func() (interface{}, error) {
			// somebody else may have just finished one
			if key, fresh := v.lookup(kid); (key != nil && fresh) || !v.mayFetch() {
				return nil, nil
			}
			return nil, v.refresh(ctx)
		})
		if err != nil {
			if key, _ := v.lookup(kid); key != nil {
				return key, nil
			}
			return nil, fmt.Errorf("refresh JWKS: %w", err)
		}
	}

	if key, _ := v.lookup(kid); key != nil {
		return key, nil
	}
	return nil, fmt.Errorf("%w: kid %q", ErrUnknownKey, kid)
}

// refresh downloads the key set and swaps it in. The lock is only taken to
// record the outcome, never during the request.
func (v *Verifier) refresh(ctx context.Context) error {
	keys, err := v.download(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()

	v.attemptedAt = time.Now()
	if err != nil {
		return err
	}
	v.keys = keys
	v.fetchedAt = v.attemptedAt
	return nil
}

// keySet is a JSON Web Key Set as published by the provider.
type keySet struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (v *Verifier) download(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.JWKSURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("key set endpoint answered %s", resp.Status)
	}

	var set keySet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxKeySetSize)).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		n, errN := base64.RawURLEncoding.DecodeString(k.N)
		e, errE := base64.RawURLEncoding.DecodeString(k.E)
		if errN != nil || errE != nil || len(n) == 0 || len(e) == 0 {
			continue
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(n),
			E: int(new(big.Int).SetBytes(e).Int64()),
		}
	}
	return keys, nil
}
