package service

// Logging Standards for scrapebot
//
// This file defines standard field names, log levels, and patterns
// to ensure consistent logging across the application.

// Standard Field Names
// Use these exact field names for consistency across all logging calls
const (
	// Core identifiers
	LogFieldRequestID = "request_id"
	LogFieldUserID    = "user_id"
	LogFieldChannelID = "channel_id"
	LogFieldRequester = "requester"

	// Service and operation fields
	LogFieldService   = "service"
	LogFieldOperation = "operation"
	LogFieldComponent = "component"
	LogFieldHandler   = "handler"

	// Event and submission fields
	LogFieldEvent    = "event_type"
	LogFieldURL      = "url"
	LogFieldPlatform = "platform"
	LogFieldOutcome  = "outcome"
	LogFieldRange    = "range"

	// HTTP fields
	LogFieldTraceID    = "trace_id"
	LogFieldMethod     = "method"
	LogFieldPath       = "path"
	LogFieldQuery      = "query"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"
	LogFieldSize       = "size_bytes"

	// Performance and metrics
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"
	LogFieldAdded    = "added"
	LogFieldRejected = "rejected"

	// Error and debugging
	LogFieldErrorCode = "error_code"
	LogFieldPanic     = "panic"
	LogFieldStack     = "stack"
	LogFieldAttempt   = "attempt"
)

// Log Level Usage Guidelines
//
// DEBUG: Detailed information for diagnosing problems. Only use in development or verbose mode.
//   - Raw event payloads (masked)
//   - Per-URL validation decisions
//
// INFO: General information about application flow and key events.
//   - Application startup/shutdown
//   - URLs added to the queue
//   - Header row written
//
// WARN: Something unexpected happened, but the application can continue.
//   - Duplicate check read failures (treated as not duplicate)
//   - Identity lookup failures (placeholder name used)
//   - Startup retries
//   - Reply rate limiting
//
// ERROR: Error events that might still allow the application to continue.
//   - Queue append failures
//   - Handler failures answered with the apology reply
//   - Replies that could not be delivered
//
// FATAL: Only at startup, for missing configuration or backend initialization errors.
