package provider

import "fmt"

// AuthError reports a failed credential exchange. It carries the backend
// status and body so the caller can decide whether to retry; the credential
// manager itself never retries.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("credential exchange failed: status %d: %s", e.Status, e.Body)
}

// ProviderError reports an unusable backend response: unreachable host,
// malformed body, or a rejected request after allowed retries.
type ProviderError struct {
	Status int    // HTTP status, 0 for transport-level failures
	Body   string // response body or transport error text
	Err    error  // underlying cause, may be nil
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("backend request failed: %s", e.Body)
	}
	return fmt.Sprintf("backend request failed: status %d: %s", e.Status, e.Body)
}

func (e *ProviderError) Unwrap() error { return e.Err }
