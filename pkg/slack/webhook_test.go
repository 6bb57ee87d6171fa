package slack

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	apperrors "scrapebot/internal/errors"
	"scrapebot/internal/worker"
	"scrapebot/pkg/slack/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSigningSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) HandleMention(ctx context.Context, event types.MentionEvent) {
	m.Called(ctx, event)
}

func (m *mockDispatcher) HandleCommand(ctx context.Context, cmd types.CommandRequest, ack func()) {
	m.Called(ctx, cmd, ack)
	if ack != nil {
		ack()
	}
}

// inlinePool runs tasks on the calling goroutine
type inlinePool struct{}

func (inlinePool) Submit(task func()) error {
	task()
	return nil
}

func signedRequest(t *testing.T, path, contentType, body, secret string) *http.Request {
	t.Helper()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "v0:%s:%s", ts, body)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func newTestWebhook(dispatcher types.Dispatcher) *WebhookHandler {
	logger, _ := test.NewNullLogger()
	return NewWebhookHandler(context.Background(), testSigningSecret, dispatcher, inlinePool{}, "/add-influencer", logger)
}

func TestWebhook_URLVerification(t *testing.T) {
	body := `{"token":"tok","challenge":"3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P","type":"url_verification"}`
	rec := httptest.NewRecorder()

	newTestWebhook(&mockDispatcher{}).HandleEvents()(rec, signedRequest(t, "/slack/events", "application/json", body, testSigningSecret))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3eZbrw1aBm2rZgRNFdxV2595E9CY3gmdALWMmHkvFXO7tYXAYM8P", rec.Body.String())
}

func TestWebhook_AppMentionDispatched(t *testing.T) {
	body := `{"token":"tok","team_id":"T1","api_app_id":"A1","type":"event_callback","event_id":"Ev1","event_time":1700000000,` +
		`"event":{"type":"app_mention","user":"U123","text":"<@B1> https://instagram.com/jane","ts":"1700000000.000100","channel":"C123","event_ts":"1700000000.000100"}}`

	dispatcher := &mockDispatcher{}
	dispatcher.On("HandleMention", mock.Anything, types.MentionEvent{
		Text:    "<@B1> https://instagram.com/jane",
		User:    "U123",
		Channel: "C123",
		TS:      "1700000000.000100",
	}).Once()

	rec := httptest.NewRecorder()
	newTestWebhook(dispatcher).HandleEvents()(rec, signedRequest(t, "/slack/events", "application/json", body, testSigningSecret))

	assert.Equal(t, http.StatusOK, rec.Code)
	dispatcher.AssertExpectations(t)
}

func TestWebhook_EventsRejectBadSignature(t *testing.T) {
	body := `{"token":"tok","challenge":"abc","type":"url_verification"}`
	dispatcher := &mockDispatcher{}
	rec := httptest.NewRecorder()

	newTestWebhook(dispatcher).HandleEvents()(rec, signedRequest(t, "/slack/events", "application/json", body, "wrong-secret"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "abc")
}

func TestWebhook_EventsRejectMissingHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	newTestWebhook(&mockDispatcher{}).HandleEvents()(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func commandBody(command, text string) string {
	form := url.Values{}
	form.Set("command", command)
	form.Set("text", text)
	form.Set("user_id", "U123")
	form.Set("channel_id", "C123")
	form.Set("response_url", "https://hooks.slack.com/commands/T1/1/abc")
	return form.Encode()
}

func TestWebhook_CommandDispatched(t *testing.T) {
	dispatcher := &mockDispatcher{}
	dispatcher.On("HandleCommand", mock.Anything, types.CommandRequest{
		Command:     "/add-influencer",
		Text:        "instagram.com/jane",
		UserID:      "U123",
		ChannelID:   "C123",
		ResponseURL: "https://hooks.slack.com/commands/T1/1/abc",
	}, mock.Anything).Once()

	rec := httptest.NewRecorder()
	req := signedRequest(t, "/slack/commands", "application/x-www-form-urlencoded", commandBody("/add-influencer", "instagram.com/jane"), testSigningSecret)
	newTestWebhook(dispatcher).HandleCommands()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	dispatcher.AssertExpectations(t)
}

func TestWebhook_CommandIgnoresOtherCommands(t *testing.T) {
	dispatcher := &mockDispatcher{}
	rec := httptest.NewRecorder()
	req := signedRequest(t, "/slack/commands", "application/x-www-form-urlencoded", commandBody("/other", "x"), testSigningSecret)

	newTestWebhook(dispatcher).HandleCommands()(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	dispatcher.AssertNotCalled(t, "HandleCommand", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_CommandRejectBadSignature(t *testing.T) {
	dispatcher := &mockDispatcher{}
	rec := httptest.NewRecorder()
	req := signedRequest(t, "/slack/commands", "application/x-www-form-urlencoded", commandBody("/add-influencer", "x"), "wrong-secret")

	newTestWebhook(dispatcher).HandleCommands()(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	dispatcher.AssertNotCalled(t, "HandleCommand", mock.Anything, mock.Anything, mock.Anything)
}

// saturatedPool returns a pool whose single worker is blocked and whose queue
// is full. Closing the returned channel releases the worker.
func saturatedPool(t *testing.T) (*worker.Pool, chan struct{}) {
	t.Helper()
	pool := worker.New(1, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, pool.Submit(func() {
		close(started)
		<-release
	}))
	<-started

	for pool.Submit(func() {}) == nil {
	}
	t.Cleanup(func() {
		_ = pool.Shutdown(context.Background())
	})
	return pool, release
}

func TestWebhook_CommandAcknowledgedWhenPoolSaturated(t *testing.T) {
	pool, release := saturatedPool(t)
	defer close(release)

	logger, hook := test.NewNullLogger()
	dispatcher := &mockDispatcher{}
	handler := NewWebhookHandler(context.Background(), testSigningSecret, dispatcher, pool, "/add-influencer", logger)

	rec := httptest.NewRecorder()
	req := signedRequest(t, "/slack/commands", "application/x-www-form-urlencoded", commandBody("/add-influencer", "instagram.com/jane"), testSigningSecret)

	done := make(chan struct{})
	go func() {
		handler.HandleCommands()(rec, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("command handler blocked on a saturated pool")
	}

	assert.Equal(t, http.StatusOK, rec.Code)
	dispatcher.AssertNotCalled(t, "HandleCommand", mock.Anything, mock.Anything, mock.Anything)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Dropping Slack event", hook.LastEntry().Message)
	assert.ErrorIs(t, hook.LastEntry().Data["error"].(error), worker.ErrPoolFull)
}

func TestWebhook_MentionAcknowledgedWhenPoolSaturated(t *testing.T) {
	pool, release := saturatedPool(t)
	defer close(release)

	logger, _ := test.NewNullLogger()
	dispatcher := &mockDispatcher{}
	handler := NewWebhookHandler(context.Background(), testSigningSecret, dispatcher, pool, "/add-influencer", logger)

	body := `{"token":"tok","team_id":"T1","api_app_id":"A1","type":"event_callback","event_id":"Ev2","event_time":1700000000,` +
		`"event":{"type":"app_mention","user":"U123","text":"<@B1> youtube.com/@jane","ts":"1700000000.000200","channel":"C123","event_ts":"1700000000.000200"}}`
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.HandleEvents()(rec, signedRequest(t, "/slack/events", "application/json", body, testSigningSecret))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("events handler blocked on a saturated pool")
	}

	assert.Equal(t, http.StatusOK, rec.Code)
	dispatcher.AssertNotCalled(t, "HandleMention", mock.Anything, mock.Anything)
}

func TestWebhook_BadSignatureLoggedAsAuthError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	handler := NewWebhookHandler(context.Background(), testSigningSecret, &mockDispatcher{}, inlinePool{}, "/add-influencer", logger)

	rec := httptest.NewRecorder()
	req := signedRequest(t, "/slack/commands", "application/x-www-form-urlencoded", commandBody("/add-influencer", "x"), "wrong-secret")
	handler.HandleCommands()(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Rejected Slack command request", entry.Message)
	assert.Equal(t, apperrors.ErrCodeAuthentication, entry.Data["error_code"])
	assert.Equal(t, "signature mismatch", entry.Data["reason"])
	assert.Equal(t, "/slack/commands", entry.Data["path"])
}
