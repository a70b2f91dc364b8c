package constants

// Context keys set by middleware
const (
	// Request context keys
	ContextKeyRequestID = "requestID"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"
