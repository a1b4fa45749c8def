package proxy

import "errors"

// Error taxonomy for proxy service calls. Callers branch on these to
// decide whether a failure is retryable or a config problem.
var (
	// ErrRemoteUnreachable covers transport-level failures: connection
	// refused, DNS, timeouts.
	ErrRemoteUnreachable = errors.New("proxy service unreachable")

	// ErrRemoteBadRequest covers 4xx responses from the proxy service.
	ErrRemoteBadRequest = errors.New("proxy service rejected request")

	// ErrRemoteServerError covers 5xx responses from the proxy service.
	ErrRemoteServerError = errors.New("proxy service internal error")

	// ErrEnvelopeFailed covers well-formed responses whose envelope
	// reports success=false.
	ErrEnvelopeFailed = errors.New("proxy call reported failure")
)
