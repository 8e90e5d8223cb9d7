package salesforce

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const (
	grantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	tokenPath          = "/services/oauth2/token"

	// assertionTTL is the lifetime claimed in the signed assertion.
	assertionTTL = 300 * time.Second

	// authTimeout bounds the whole token-endpoint exchange.
	authTimeout = 15 * time.Second
)

// AuthConfig carries the credentials for the OAuth JWT-bearer flow.
type AuthConfig struct {
	ClientID   string
	Username   string
	LoginURL   string
	PrivateKey []byte // RSA private key, PEM-encoded
}

// Authenticator exchanges a signed RS256 assertion for an access token at
// the Salesforce token endpoint.
type Authenticator struct {
	clientID string
	username string
	loginURL string
	key      *rsa.PrivateKey
	client   *http.Client
	now      func() time.Time
}

// tokenResponse is the token endpoint's success body. Only access_token
// and instance_url are required; the rest is informational.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	ID          string `json:"id"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	IssuedAt    string `json:"issued_at"`
	Signature   string `json:"signature"`
}

// NewAuthenticator parses the private key and prepares the HTTP client.
// The transport may be nil, in which case the default transport is used.
func NewAuthenticator(cfg AuthConfig, transport http.RoundTripper) (*Authenticator, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Authenticator{
		clientID: cfg.ClientID,
		username: cfg.Username,
		loginURL: strings.TrimRight(cfg.LoginURL, "/"),
		key:      key,
		client: &http.Client{
			Timeout:   authTimeout,
			Transport: transport,
		},
		now: time.Now,
	}, nil
}

// Authenticate performs one JWT-bearer token exchange and returns a fully
// populated Session. Any transport failure, non-200 status, or malformed
// success body is an *AuthError; nothing is cached here.
func (a *Authenticator) Authenticate(ctx context.Context) (*Session, error) {
	start := a.now()

	// MapClaims rather than RegisteredClaims so "aud" goes out as a plain
	// string, the shape the token endpoint expects.
	claims := jwt.MapClaims{
		"iss": a.clientID,
		"sub": a.username,
		"aud": a.loginURL,
		"exp": start.Add(assertionTTL).Unix(),
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.key)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("sign assertion: %w", err)}
	}

	form := url.Values{
		"grant_type": {grantTypeJWTBearer},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.loginURL+tokenPath,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("token request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("read token response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &AuthError{Status: resp.StatusCode, Body: string(body)}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, &AuthError{Err: fmt.Errorf("decode token response: %w", err)}
	}
	if tok.AccessToken == "" || tok.InstanceURL == "" {
		return nil, &AuthError{Err: fmt.Errorf("token response missing access_token or instance_url")}
	}

	log.Info().
		Str("instance", tok.InstanceURL).
		Dur("took", a.now().Sub(start)).
		Msg("salesforce authenticated")

	return &Session{
		InstanceURL: strings.TrimRight(tok.InstanceURL, "/"),
		AccessToken: tok.AccessToken,
		AcquiredAt:  a.now(),
	}, nil
}
