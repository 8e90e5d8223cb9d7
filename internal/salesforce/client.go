package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// crmTimeout bounds every query/create round trip.
const crmTimeout = 30 * time.Second

// Record is one row from a SOQL query. Nested relationship fields
// (e.g. Account.Name) come back as nested Records.
type Record map[string]interface{}

// Str returns the string value at key, or "" if absent or not a string.
func (r Record) Str(key string) string {
	s, _ := r[key].(string)
	return s
}

// Num returns the numeric value at key. JSON numbers decode as float64.
func (r Record) Num(key string) (float64, bool) {
	f, ok := r[key].(float64)
	return f, ok
}

// Child returns the nested record at key, or nil when the relationship
// came back null or as a bare id.
func (r Record) Child(key string) Record {
	if m, ok := r[key].(map[string]interface{}); ok {
		return Record(m)
	}
	return nil
}

// CRM is the query/create surface the tools depend on. Both calls are
// pass-throughs with no business logic; their error values are what
// matters — remote rejections surface as *CRMError, network trouble as
// *TransportError, and credential failures as *AuthError.
type CRM interface {
	Query(ctx context.Context, soql string) ([]Record, error)
	Create(ctx context.Context, objectType string, fields map[string]interface{}) (string, error)
}

// Client implements CRM against the Salesforce REST API, obtaining a
// session from the credential cache at the start of every call.
type Client struct {
	creds      *CredentialCache
	apiVersion string
	http       *http.Client
}

// NewClient builds a REST client. The transport may be nil.
func NewClient(creds *CredentialCache, apiVersion string, transport http.RoundTripper) *Client {
	return &Client{
		creds:      creds,
		apiVersion: apiVersion,
		http: &http.Client{
			Timeout:   crmTimeout,
			Transport: transport,
		},
	}
}

type queryResponse struct {
	TotalSize int      `json:"totalSize"`
	Done      bool     `json:"done"`
	Records   []Record `json:"records"`
}

type createResponse struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

// apiError is one element of the error array Salesforce returns on
// non-2xx responses.
type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// Query runs a SOQL query and returns the raw records.
func (c *Client) Query(ctx context.Context, soql string) ([]Record, error) {
	sess, err := c.creds.Get(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/services/data/%s/query?q=%s",
		sess.InstanceURL, c.apiVersion, url.QueryEscape(soql))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Op: "query", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "query", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "query", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, crmError(resp.StatusCode, body)
	}

	var qr queryResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, &TransportError{Op: "query", Err: fmt.Errorf("decode response: %w", err)}
	}
	return qr.Records, nil
}

// Create inserts one record and returns its new id.
func (c *Client) Create(ctx context.Context, objectType string, fields map[string]interface{}) (string, error) {
	sess, err := c.creds.Get(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(fields)
	if err != nil {
		return "", &TransportError{Op: "create", Err: err}
	}

	endpoint := fmt.Sprintf("%s/services/data/%s/sobjects/%s/",
		sess.InstanceURL, c.apiVersion, objectType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &TransportError{Op: "create", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Op: "create", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: "create", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", crmError(resp.StatusCode, body)
	}

	var cr createResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", &TransportError{Op: "create", Err: fmt.Errorf("decode response: %w", err)}
	}
	if cr.ID == "" {
		return "", &CRMError{Status: resp.StatusCode, Message: "create response missing id"}
	}
	return cr.ID, nil
}

// crmError converts a Salesforce error body into a *CRMError, keeping the
// remote message when it parses.
func crmError(status int, body []byte) error {
	var errs []apiError
	if err := json.Unmarshal(body, &errs); err == nil && len(errs) > 0 {
		return &CRMError{Status: status, Code: errs[0].ErrorCode, Message: errs[0].Message}
	}
	return &CRMError{Status: status, Message: strings.TrimSpace(string(body))}
}

// QuoteSOQLString escapes a value for embedding in a single-quoted SOQL
// literal.
func QuoteSOQLString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
