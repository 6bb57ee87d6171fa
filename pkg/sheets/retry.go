package sheets

import (
	"context"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

type readRetryKey struct{}

// withReadRetry marks ctx so the HTTP layer may retry the request
func withReadRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, readRetryKey{}, true)
}

func isReadRetry(ctx context.Context) bool {
	marked, _ := ctx.Value(readRetryKey{}).(bool)
	return marked
}

// readOnlyRetryPolicy applies the default policy to reads and never retries writes
func readOnlyRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if !isReadRetry(ctx) {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// leveledLogger adapts logrus to retryablehttp.LeveledLogger
type leveledLogger struct {
	logger *logrus.Logger
}

var _ retryablehttp.LeveledLogger = (*leveledLogger)(nil)

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Error(msg)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Debug(msg)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Debug(msg)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.entry(keysAndValues).Warn(msg)
}

func (l *leveledLogger) entry(keysAndValues []interface{}) *logrus.Entry {
	fields := logrus.Fields{"component": "sheets_http"}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return l.logger.WithFields(fields)
}
