package salesforce_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/forcebridge/forcebridge/internal/salesforce"
)

// testKey generates an RSA key pair and returns the private key with its
// PKCS#8 PEM encoding.
func testKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	return key, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func TestAuthenticate_Success(t *testing.T) {
	key, keyPEM := testKey(t)

	var gotGrantType, gotAssertion string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/oauth2/token" {
			t.Errorf("token path = %q, want /services/oauth2/token", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		gotGrantType = r.PostFormValue("grant_type")
		gotAssertion = r.PostFormValue("assertion")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","instance_url":"https://na1.example.com","token_type":"Bearer"}`))
	}))
	defer ts.Close()

	authn, err := salesforce.NewAuthenticator(salesforce.AuthConfig{
		ClientID:   "client-abc",
		Username:   "user@example.com",
		LoginURL:   ts.URL,
		PrivateKey: keyPEM,
	}, nil)
	require.NoError(t, err)

	before := time.Now()
	sess, err := authn.Authenticate(context.Background())
	require.NoError(t, err)

	require.Equal(t, "tok-123", sess.AccessToken)
	require.Equal(t, "https://na1.example.com", sess.InstanceURL)
	require.False(t, sess.AcquiredAt.Before(before), "AcquiredAt should not predate the call")

	require.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", gotGrantType)

	// The assertion must be a valid RS256 token with the configured claims
	// and a 300-second expiry.
	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(gotAssertion, claims, func(tok *jwt.Token) (interface{}, error) {
		if tok.Method != jwt.SigningMethodRS256 {
			return nil, errors.New("unexpected signing method")
		}
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	require.Equal(t, "client-abc", claims.Issuer)
	require.Equal(t, "user@example.com", claims.Subject)
	require.Equal(t, jwt.ClaimStrings{ts.URL}, claims.Audience)

	ttl := time.Until(claims.ExpiresAt.Time)
	require.InDelta(t, 300, ttl.Seconds(), 10, "assertion expiry should be ~300s out")
}

func TestAuthenticate_Unauthorized(t *testing.T) {
	_, keyPEM := testKey(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"user hasn't approved this consumer"}`))
	}))
	defer ts.Close()

	authn, err := salesforce.NewAuthenticator(salesforce.AuthConfig{
		ClientID:   "client-abc",
		Username:   "user@example.com",
		LoginURL:   ts.URL,
		PrivateKey: keyPEM,
	}, nil)
	require.NoError(t, err)

	_, err = authn.Authenticate(context.Background())
	var authErr *salesforce.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusUnauthorized, authErr.Status)
	require.Contains(t, err.Error(), "401")
	require.Contains(t, authErr.Body, "invalid_grant")
}

func TestAuthenticate_MissingFields(t *testing.T) {
	_, keyPEM := testKey(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 but no instance_url
		w.Write([]byte(`{"access_token":"tok-123"}`))
	}))
	defer ts.Close()

	authn, err := salesforce.NewAuthenticator(salesforce.AuthConfig{
		ClientID:   "c",
		Username:   "u",
		LoginURL:   ts.URL,
		PrivateKey: keyPEM,
	}, nil)
	require.NoError(t, err)

	_, err = authn.Authenticate(context.Background())
	var authErr *salesforce.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Contains(t, err.Error(), "instance_url")
}

func TestAuthenticate_TransportFailure(t *testing.T) {
	_, keyPEM := testKey(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // immediately, so the dial fails

	authn, err := salesforce.NewAuthenticator(salesforce.AuthConfig{
		ClientID:   "c",
		Username:   "u",
		LoginURL:   ts.URL,
		PrivateKey: keyPEM,
	}, nil)
	require.NoError(t, err)

	_, err = authn.Authenticate(context.Background())
	var authErr *salesforce.AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestNewAuthenticator_BadKey(t *testing.T) {
	_, err := salesforce.NewAuthenticator(salesforce.AuthConfig{
		ClientID:   "c",
		Username:   "u",
		LoginURL:   "https://login.example.com",
		PrivateKey: []byte("not a pem"),
	}, nil)
	if err == nil {
		t.Fatal("NewAuthenticator() with garbage key: expected error, got nil")
	}
	if !strings.Contains(err.Error(), "private key") {
		t.Errorf("error = %q, want mention of private key", err)
	}
}
