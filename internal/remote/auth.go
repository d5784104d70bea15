package remote

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenPair holds the current session credentials. The access token is a
// JWT whose exp claim drives proactive refresh; the refresh token is opaque.
type tokenPair struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func (t *tokenPair) get() (access, refresh string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.accessToken, t.refreshToken
}

func (t *tokenPair) set(access, refresh string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accessToken = access
	t.refreshToken = refresh
}

// expiryLeeway is how close to the exp claim a token is still treated as
// usable. Refreshing slightly early avoids a guaranteed 401 round trip.
const expiryLeeway = 30 * time.Second

// nearExpiry reports whether the access token expires within expiryLeeway.
// The token is not verified here; the backend remains the authority, this
// only short-circuits a doomed request. Tokens without a parseable exp
// claim are treated as usable.
func (t *tokenPair) nearExpiry(now time.Time) bool {
	access, _ := t.get()
	if access == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time.Add(-expiryLeeway))
}
