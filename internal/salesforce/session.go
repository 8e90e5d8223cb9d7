// Package salesforce implements the Salesforce-facing core: the
// JWT-bearer authenticator, the single-slot credential cache, and the
// thin REST query/create client the tools are built on.
package salesforce

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// sessionTTL is how long an access token is trusted before the next
// operation forces a re-authentication.
const sessionTTL = time.Hour

// Session is a fully established Salesforce session. A Session is never
// partially populated: it either exists with all fields set or not at all.
type Session struct {
	InstanceURL string
	AccessToken string
	AcquiredAt  time.Time
}

// AuthFunc produces a fresh Session, typically Authenticator.Authenticate.
type AuthFunc func(ctx context.Context) (*Session, error)

// CredentialCache holds at most one Session and re-authenticates when it
// is absent or older than sessionTTL. A failed authentication leaves the
// cached slot untouched, so a failure is never cached and the next call
// retries. The check-age/authenticate/replace sequence runs under one
// lock; each replacement swaps in a whole new Session, never mutates one
// in place.
type CredentialCache struct {
	mu   sync.Mutex
	auth AuthFunc
	now  func() time.Time
	cur  *Session
}

// CacheOption customizes a CredentialCache.
type CacheOption func(*CredentialCache)

// WithClock injects the time source, for expiry tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *CredentialCache) { c.now = now }
}

// NewCredentialCache creates an empty cache backed by the given AuthFunc.
func NewCredentialCache(auth AuthFunc, opts ...CacheOption) *CredentialCache {
	c := &CredentialCache{auth: auth, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached Session if it is still fresh, otherwise
// authenticates and replaces the slot. The first call at or after
// AcquiredAt+sessionTTL triggers a fresh authentication.
func (c *CredentialCache) Get(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur != nil {
		if c.now().Sub(c.cur.AcquiredAt) < sessionTTL {
			return c.cur, nil
		}
		log.Info().Msg("salesforce token expired, re-authenticating")
	}

	sess, err := c.auth(ctx)
	if err != nil {
		return nil, err
	}
	c.cur = sess
	return sess, nil
}
