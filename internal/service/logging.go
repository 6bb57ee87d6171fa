package service

import (
	"context"

	"scrapebot/internal/privacy"
	"scrapebot/internal/tracing"

	"github.com/sirupsen/logrus"
)

// ContextKey is a package-local type to prevent context key collisions
// See staticcheck SA1029 guidance
type ContextKey string

// VerboseContextKey is the strongly-typed context key for verbose logging flag
const VerboseContextKey ContextKey = "verbose"

// WithVerbose marks ctx so that identifiers are logged unmasked
func WithVerbose(ctx context.Context, verbose bool) context.Context {
	return context.WithValue(ctx, VerboseContextKey, verbose)
}

// IsVerboseLogging checks if verbose logging is enabled from context
func IsVerboseLogging(ctx context.Context) bool {
	if verbose, ok := ctx.Value(VerboseContextKey).(bool); ok {
		return verbose
	}
	return false
}

// EventFields returns the standard fields for an inbound event. Slack IDs are
// masked unless verbose logging is enabled.
func EventFields(ctx context.Context, userID, channelID string) logrus.Fields {
	fields := logrus.Fields{
		LogFieldRequestID: tracing.GetRequestID(ctx),
		LogFieldEvent:     tracing.GetEventType(ctx),
	}

	if IsVerboseLogging(ctx) {
		fields[LogFieldUserID] = userID
		if channelID != "" {
			fields[LogFieldChannelID] = channelID
		}
		return fields
	}

	fields[LogFieldUserID] = privacy.MaskUserID(userID)
	if channelID != "" {
		fields[LogFieldChannelID] = privacy.MaskChannelID(channelID)
	}
	return fields
}

// RequesterField returns the requester name for logs, reduced to initials unless verbose
func RequesterField(ctx context.Context, name string) string {
	if IsVerboseLogging(ctx) {
		return name
	}
	return privacy.MaskName(name)
}

// LogWithContext creates a logger entry carrying the request ID of ctx
func LogWithContext(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	return logger.WithField(LogFieldRequestID, tracing.GetRequestID(ctx))
}

func maskedUserID(ctx context.Context, userID string) string {
	if IsVerboseLogging(ctx) {
		return userID
	}
	return privacy.MaskUserID(userID)
}
