package domain

import "errors"

// Error taxonomy for the request path. Every one of these is terminal for the
// current request and maps to a distinct client-visible status.
var (
	// ErrAccessDenied means the calling credential does not own the targeted
	// conversation context.
	ErrAccessDenied = errors.New("access denied")

	// ErrRateLimited means the per-session sliding window is full. Distinct
	// from quota exhaustion so clients can tell throttling from hard denial.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrQuotaExceeded means a daily or monthly ceiling was reached.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrUpstreamFailure means the external AI call failed or timed out.
	ErrUpstreamFailure = errors.New("upstream AI request failed")

	// ErrUnknownPlatform means the platform identifier could not be resolved
	// and the resolver is running with the strict policy.
	ErrUnknownPlatform = errors.New("unknown platform")

	ErrTenantInactive        = errors.New("tenant is inactive")
	ErrModelNotAvailable     = errors.New("model not available")
	ErrModelSwitchNotAllowed = errors.New("model switching not allowed")
)
