package session

import "errors"

var (
	// ErrConnectUnavailable is returned when the audio subsystem could not be
	// reached or did not become ready in time.
	ErrConnectUnavailable = errors.New("audio subsystem unavailable")
	// ErrQueryTimeout is returned when a query or command stage did not
	// complete in time.
	ErrQueryTimeout = errors.New("audio query timed out")
	// ErrResolution is returned when an id does not parse or matches no
	// device or stream.
	ErrResolution = errors.New("session not found")
	// ErrRangeViolation is returned for a volume outside [0, 100].
	ErrRangeViolation = errors.New("volume must be between 0 and 100")
)

// Classify returns a short label for the error class of err, for logging.
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrConnectUnavailable):
		return "connect_unavailable"
	case errors.Is(err, ErrQueryTimeout):
		return "query_timeout"
	case errors.Is(err, ErrResolution):
		return "resolution_failure"
	case errors.Is(err, ErrRangeViolation):
		return "range_violation"
	default:
		return "backend_error"
	}
}
