package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "scrapebot/internal/errors"
	"scrapebot/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger, _ := test.NewNullLogger()
	return NewClient(models.SlackConfig{
		BotToken:        "xoxb-test",
		ReplyRatePerSec: 100,
		ReplyRateBurst:  10,
	}, logger, slack.OptionAPIURL(server.URL+"/"))
}

func TestClient_LookupUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users.info", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "U123", r.Form.Get("user"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"user":{"id":"U123","name":"jdoe","real_name":"Jane Doe","profile":{"display_name":"JD","real_name":"Jane Doe"}}}`))
	})

	client := newTestClient(t, mux)
	identity, err := client.LookupUser(context.Background(), "U123")

	require.NoError(t, err)
	assert.Equal(t, "U123", identity.ID)
	assert.Equal(t, "jdoe", identity.Name)
	assert.Equal(t, "Jane Doe", identity.RealName)
	assert.Equal(t, "JD", identity.DisplayName)
}

func TestClient_LookupUserFromProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users.info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"user":{"id":"U123","name":"jdoe","profile":{"real_name":"Jane Profile"}}}`))
	})

	identity, err := newTestClient(t, mux).LookupUser(context.Background(), "U123")
	require.NoError(t, err)
	assert.Equal(t, "Jane Profile", identity.RealName)
}

func TestClient_LookupUserError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users.info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"user_not_found"}`))
	})

	_, err := newTestClient(t, mux).LookupUser(context.Background(), "U404")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSlackAPI))
	assert.Contains(t, err.Error(), "user_not_found")
}

func TestClient_PostMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "C123", r.Form.Get("channel"))
		assert.Equal(t, "<@U1> URL Processing Results:\n\n", r.Form.Get("text"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
	})

	err := newTestClient(t, mux).PostMessage(context.Background(), "C123", "<@U1> URL Processing Results:\n\n")
	assert.NoError(t, err)
}

func TestClient_PostMessageRetriesRateLimit(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
	})

	err := newTestClient(t, mux).PostMessage(context.Background(), "C123", "hello")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_PostMessageRateLimitExhausted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client := newTestClient(t, mux)
	client.maxRetries = 1

	err := client.PostMessage(context.Background(), "C123", "hello")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRateLimit))
	assert.True(t, apperrors.IsRetryable(err))
	assert.ErrorIs(t, err, ErrMaxRetries)
}

func TestAPIError_Classification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apperrors.ErrorCode
	}{
		{"rate limited", &slack.RateLimitedError{RetryAfter: time.Second}, apperrors.ErrCodeRateLimit},
		{"retries exhausted", ErrMaxRetries, apperrors.ErrCodeRateLimit},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), apperrors.ErrCodeTimeout},
		{"api error", errors.New("channel_not_found"), apperrors.ErrCodeSlackAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := apiError("chat.postMessage", tt.err)
			assert.Equal(t, tt.code, err.Code)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClient_RespondToCommand(t *testing.T) {
	var received slack.WebhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, http.NotFoundHandler())
	err := client.RespondToCommand(context.Background(), server.URL+"/commands/T1/1/abc", "✅ Added Instagram URL to scrape queue!")

	require.NoError(t, err)
	assert.Equal(t, "✅ Added Instagram URL to scrape queue!", received.Text)
}

func TestClient_RespondToCommandFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := newTestClient(t, http.NotFoundHandler()).RespondToCommand(context.Background(), server.URL, "text")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSlackAPI))
}

func TestLogAdapter(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	require.NoError(t, newLogAdapter(logger, "slack_api").Output(2, "debug line"))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "debug line", entry.Message)
	assert.Equal(t, "slack_api", entry.Data["component"])
}
