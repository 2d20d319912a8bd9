package logkey

// Common slog attribute keys so log search stays consistent across handlers.
const (
	TraceID = "TRACE ID"
	ERROR   = "ERROR"
)
