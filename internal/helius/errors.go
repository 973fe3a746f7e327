package helius

import "errors"

// Upstream error taxonomy. Callers distinguish these with errors.Is.
var (
	// ErrRateLimited is returned on HTTP 429. The client does not retry it;
	// retry policy for rate limits lives at the resolver level.
	ErrRateLimited = errors.New("rate limited by upstream")

	// ErrAuthentication is returned on HTTP 401/403. Never retried.
	ErrAuthentication = errors.New("upstream authentication failed")

	// ErrSourceUnavailable is returned when the upstream stays unreachable or
	// keeps failing with server errors after bounded retries.
	ErrSourceUnavailable = errors.New("upstream source unavailable")
)
