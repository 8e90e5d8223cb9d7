package salesforce

import "fmt"

// The error taxonomy below lets callers tell apart bad input, missing
// data, credential failures, remote rejections, and network trouble with
// errors.As. The quote workflow folds all of them into a plain message at
// its boundary; tests and the account-detail fallback rely on the types.

// ValidationError reports bad or missing caller input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// PreconditionError reports an entity that exists but lacks a required
// related field.
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return e.Msg }

// AuthError reports a failed credential acquisition. Status and Body are
// populated when the token endpoint answered with a non-200 response.
type AuthError struct {
	Status int
	Body   string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth failed: %v", e.Err)
	}
	return fmt.Sprintf("Auth failed: %d %s", e.Status, e.Body)
}

func (e *AuthError) Unwrap() error { return e.Err }

// CRMError reports a query or create the remote CRM rejected.
type CRMError struct {
	Status  int
	Code    string
	Message string
}

func (e *CRMError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// TransportError reports a network failure or timeout talking to the CRM.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
