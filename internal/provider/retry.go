package provider

import "net/http"

// RetryPolicy bounds retries for a single, explicit failure condition.
//
// MaxRetries counts extra attempts after the first; ShouldRetry names the
// status that triggers one. Keeping the policy as a value object (rather than
// a nested conditional inside the request loop) makes the retry budget
// visible at the call site and testable on its own.
type RetryPolicy struct {
	MaxRetries  int
	ShouldRetry func(status int) bool
}

// AuthRetryPolicy retries exactly once, and only on an authorization failure.
// A second consecutive 401 surfaces as ProviderError with no further
// attempts — systemic auth failures must not loop.
func AuthRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  1,
		ShouldRetry: func(status int) bool { return status == http.StatusUnauthorized },
	}
}

// NoRetryPolicy never retries. Stateless-key backends have no recoverable
// auth path, so their first failure is final.
func NoRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  0,
		ShouldRetry: func(int) bool { return false },
	}
}

// Allow reports whether another attempt is permitted after a response with
// the given status, where attempt is the zero-based index of the attempt
// that just failed.
func (p RetryPolicy) Allow(attempt, status int) bool {
	if attempt >= p.MaxRetries {
		return false
	}
	if p.ShouldRetry == nil {
		return false
	}
	return p.ShouldRetry(status)
}
