package salesforce_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forcebridge/forcebridge/internal/salesforce"
)

// fakeAuth counts invocations and hands out sessions stamped with the
// test clock, or a configured error.
type fakeAuth struct {
	calls int
	err   error
	now   func() time.Time
}

func (f *fakeAuth) authenticate(ctx context.Context) (*salesforce.Session, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &salesforce.Session{
		InstanceURL: "https://na1.example.com",
		AccessToken: "tok",
		AcquiredAt:  f.now(),
	}, nil
}

func TestCredentialCache_ReusesFreshSession(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	auth := &fakeAuth{now: clock}
	cache := salesforce.NewCredentialCache(auth.authenticate, salesforce.WithClock(clock))

	ctx := context.Background()
	first, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	// All calls inside the hour reuse the same session verbatim.
	for _, age := range []time.Duration{time.Second, 30 * time.Minute, 59*time.Minute + 59*time.Second} {
		now = first.AcquiredAt.Add(age)
		got, err := cache.Get(ctx)
		if err != nil {
			t.Fatalf("Get() at age %v: error = %v", age, err)
		}
		if got != first {
			t.Errorf("Get() at age %v returned a new session, want cached", age)
		}
	}
	if auth.calls != 1 {
		t.Errorf("auth calls = %d, want 1", auth.calls)
	}
}

func TestCredentialCache_RefreshesAtExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	auth := &fakeAuth{now: clock}
	cache := salesforce.NewCredentialCache(auth.authenticate, salesforce.WithClock(clock))

	ctx := context.Background()
	first, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	// The first call at exactly T+3600s triggers a fresh authentication.
	now = first.AcquiredAt.Add(time.Hour)
	second, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("Get() after expiry: error = %v", err)
	}
	if second == first {
		t.Error("Get() after expiry returned the stale session")
	}
	if auth.calls != 2 {
		t.Errorf("auth calls = %d, want 2", auth.calls)
	}
}

func TestCredentialCache_FailureNotCached(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	auth := &fakeAuth{now: clock, err: errors.New("token endpoint down")}
	cache := salesforce.NewCredentialCache(auth.authenticate, salesforce.WithClock(clock))

	ctx := context.Background()
	if _, err := cache.Get(ctx); err == nil {
		t.Fatal("Get() with failing auth: expected error, got nil")
	}

	// Next call retries instead of serving anything cached.
	auth.err = nil
	sess, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("Get() after recovery: error = %v", err)
	}
	if sess == nil || sess.AccessToken != "tok" {
		t.Errorf("Get() after recovery = %+v, want fresh session", sess)
	}
	if auth.calls != 2 {
		t.Errorf("auth calls = %d, want 2", auth.calls)
	}
}

func TestCredentialCache_FailedRefreshKeepsCacheIntact(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	auth := &fakeAuth{now: clock}
	cache := salesforce.NewCredentialCache(auth.authenticate, salesforce.WithClock(clock))

	ctx := context.Background()
	first, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	// Expired session plus a failing authenticator: error surfaces, no
	// partial session replaces the slot.
	now = first.AcquiredAt.Add(2 * time.Hour)
	auth.err = errors.New("transient")
	if _, err := cache.Get(ctx); err == nil {
		t.Fatal("Get() with failing refresh: expected error, got nil")
	}

	auth.err = nil
	second, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("Get() after refresh recovery: error = %v", err)
	}
	if second == first {
		t.Error("Get() returned the expired session after recovery")
	}
}

func TestCredentialCache_ConcurrentGets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	auth := &fakeAuth{now: clock}
	cache := salesforce.NewCredentialCache(auth.authenticate, salesforce.WithClock(clock))

	ctx := context.Background()
	done := make(chan *salesforce.Session, 8)
	for i := 0; i < 8; i++ {
		go func() {
			s, err := cache.Get(ctx)
			if err != nil {
				t.Errorf("Get() error = %v", err)
			}
			done <- s
		}()
	}

	var sessions []*salesforce.Session
	for i := 0; i < 8; i++ {
		sessions = append(sessions, <-done)
	}
	for _, s := range sessions {
		if s != sessions[0] {
			t.Error("concurrent Get() calls returned different sessions")
			break
		}
	}
}
