package errors

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger()

	assert.NotNil(t, logger)
	assert.NotNil(t, logger.Logger)

	_, ok := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok, "Logger should use JSON formatter")
}

func TestWrapLogger_NilFallsBack(t *testing.T) {
	assert.NotNil(t, WrapLogger(nil).Logger)

	base := logrus.New()
	assert.Same(t, base, WrapLogger(base).Logger)
}

func TestLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetOutput(&buf)

	err := NewAppendError("Scrape Requests!A:E", errors.New("quota exceeded"))
	logger.LogError(err, "Failed to append queue row", logrus.Fields{"user_id": "U123"})

	output := buf.String()
	for _, expected := range []string{
		`"level":"error"`,
		`"error_code":"APPEND_FAILED"`,
		`"retryable":false`,
		`"range":"Scrape Requests!A:E"`,
		`"user_id":"U123"`,
		`"msg":"Failed to append queue row"`,
	} {
		assert.Contains(t, output, expected)
	}
}

func TestLogger_LogRetryableError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetOutput(&buf)

	logger.LogRetryableError(NewBackendReadError("Sheet!A:E", errors.New("timeout")), "Read failed")
	assert.Contains(t, buf.String(), `"level":"warning"`)

	buf.Reset()
	logger.LogRetryableError(errors.New("plain"), "Read failed")
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetOutput(&buf)

	logger.WithError(NewIdentityLookupError("U999", errors.New("user_not_found"))).Info("fallback used")

	assert.Contains(t, buf.String(), `"error_code":"IDENTITY_LOOKUP_FAILED"`)
	assert.Contains(t, buf.String(), `"user_id":"U999"`)
}
