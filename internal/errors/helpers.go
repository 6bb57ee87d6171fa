package errors

import (
	"fmt"
	"strings"
)

// Rejection messages shown to the submitter
const (
	msgUnsupportedPlatform = "Unsupported platform. Please use Instagram, TikTok, or YouTube URLs."
	msgInvalidPathFormat   = "Invalid %s URL. Please provide a profile/channel URL."
	msgInvalidFormatFormat = "Invalid URL format: %v"
)

// NewInvalidFormatError reports a URL that could not be parsed
func NewInvalidFormatError(rawURL string, cause error) *AppError {
	return Wrap(cause, ErrCodeInvalidFormat, "url could not be parsed").
		WithContext("url", rawURL).
		WithUserMessage(fmt.Sprintf(msgInvalidFormatFormat, cause))
}

// NewUnsupportedPlatformError reports a URL whose host is not a supported platform
func NewUnsupportedPlatformError(rawURL, host string) *AppError {
	return New(ErrCodeUnsupportedPlatform, "host does not belong to a supported platform").
		WithContext("url", rawURL).
		WithContext("host", host).
		WithUserMessage(msgUnsupportedPlatform)
}

// NewInvalidPathError reports a platform URL without a profile/channel path
func NewInvalidPathError(rawURL, platform string) *AppError {
	return New(ErrCodeInvalidPath, "url has no profile or channel path").
		WithContext("url", rawURL).
		WithContext("platform", platform).
		WithUserMessage(fmt.Sprintf(msgInvalidPathFormat, platform))
}

// NewDuplicateError reports a URL already present in the queue
func NewDuplicateError(url string) *AppError {
	return New(ErrCodeDuplicateFound, "url already queued").
		WithContext("url", url).
		WithUserMessage("Already exists in database")
}

// NewAppendError wraps a failed queue append
func NewAppendError(queueRange string, err error) *AppError {
	return Wrap(err, ErrCodeAppendFailed, "failed to append row to queue").
		WithContext("range", queueRange).
		WithUserMessage("Failed to add to database")
}

// NewBackendReadError wraps a failed queue read
func NewBackendReadError(queueRange string, err error) *AppError {
	return WrapRetryable(err, ErrCodeBackendReadFailed, "failed to read queue").
		WithContext("range", queueRange)
}

// NewIdentityLookupError wraps a failed user lookup
func NewIdentityLookupError(userID string, err error) *AppError {
	return Wrap(err, ErrCodeIdentityLookupFailed, "failed to resolve user identity").
		WithContext("user_id", userID)
}

// NewAPIError creates an API error for external service calls
func NewAPIError(service, operation string, err error) *AppError {
	var code ErrorCode
	switch service {
	case "slack":
		code = ErrCodeSlackAPI
	case "sheets":
		code = ErrCodeSheetsAPI
	default:
		code = ErrCodeInternalError
	}

	return Wrap(err, code, fmt.Sprintf("%s API call failed", service)).
		WithContext("service", service).
		WithContext("operation", operation)
}

// NewRateLimitError marks a call the remote service throttled
func NewRateLimitError(service, operation string, err error) *AppError {
	return WrapRetryable(err, ErrCodeRateLimit, fmt.Sprintf("%s API rate limited", service)).
		WithContext("service", service).
		WithContext("operation", operation)
}

// NewTimeoutError marks a call that ran out of time
func NewTimeoutError(service, operation string, err error) *AppError {
	return WrapRetryable(err, ErrCodeTimeout, fmt.Sprintf("%s API call timed out", service)).
		WithContext("service", service).
		WithContext("operation", operation)
}

// NewAuthError creates an authentication error for a rejected inbound request
func NewAuthError(reason string, err error) *AppError {
	return Wrap(err, ErrCodeAuthentication, "authentication failed").
		WithContext("reason", reason).
		WithUserMessage("Authentication failed")
}

// NewInternalError wraps an unexpected failure caught at a handler boundary
func NewInternalError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeInternalError, fmt.Sprintf("%s failed unexpectedly", operation)).
		WithContext("operation", operation)
}

// MissingConfigError lists every required configuration value that is absent.
type MissingConfigError struct {
	Names []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Names, ", "))
}

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key).
		WithUserMessage("Configuration error")
}
