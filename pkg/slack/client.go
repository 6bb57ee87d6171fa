package slack

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"scrapebot/internal/constants"
	apperrors "scrapebot/internal/errors"
	"scrapebot/internal/metrics"
	"scrapebot/internal/models"
	"scrapebot/internal/tracing"
	"scrapebot/pkg/slack/types"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

// Client wraps the Slack Web API for identity lookups and replies
type Client struct {
	api        *slack.Client
	httpClient *http.Client
	limiter    *RateLimiter
	maxRetries int
	logger     *logrus.Logger
}

var (
	_ types.IdentityLookup = (*Client)(nil)
	_ types.Replier        = (*Client)(nil)
)

// NewClient creates a Slack client from cfg. Extra options are appended to the
// defaults, e.g. slack.OptionAPIURL in tests.
func NewClient(cfg models.SlackConfig, logger *logrus.Logger, opts ...slack.Option) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	httpClient := &http.Client{Timeout: time.Duration(constants.DefaultSlackHTTPTimeoutSec) * time.Second}
	options := []slack.Option{
		slack.OptionHTTPClient(httpClient),
		slack.OptionDebug(cfg.Debug),
		slack.OptionLog(newLogAdapter(logger, "slack_api")),
	}
	if cfg.AppToken != "" {
		options = append(options, slack.OptionAppLevelToken(cfg.AppToken))
	}
	options = append(options, opts...)

	ratePerSec := cfg.ReplyRatePerSec
	if ratePerSec <= 0 {
		ratePerSec = constants.DefaultReplyRatePerSec
	}
	burst := cfg.ReplyRateBurst
	if burst <= 0 {
		burst = constants.DefaultReplyRateBurst
	}

	return &Client{
		api:        slack.New(cfg.BotToken, options...),
		httpClient: httpClient,
		limiter:    NewRateLimiter(ratePerSec, burst),
		maxRetries: constants.DefaultReplyMaxRetries,
		logger:     logger,
	}
}

// API exposes the underlying Web API client for Socket Mode
func (c *Client) API() *slack.Client {
	return c.api
}

// AuthTest verifies the bot token
func (c *Client) AuthTest(ctx context.Context) (*slack.AuthTestResponse, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return nil, apiError("auth.test", err)
	}
	return resp, nil
}

// LookupUser resolves a user ID through users.info
func (c *Client) LookupUser(ctx context.Context, userID string) (*types.UserIdentity, error) {
	ctx, span := tracing.StartSpan(ctx, "slack.users_info")
	start := time.Now()

	user, err := c.api.GetUserInfoContext(ctx, userID)
	metrics.ObserveBackendOperation("slack", "users.info", time.Since(start), err)
	if err != nil {
		apiErr := apiError("users.info", err)
		tracing.EndSpan(span, apiErr)
		return nil, apiErr
	}
	tracing.EndSpan(span, nil)

	return &types.UserIdentity{
		ID:          user.ID,
		Name:        user.Name,
		RealName:    firstNonEmpty(user.RealName, user.Profile.RealName),
		DisplayName: user.Profile.DisplayName,
	}, nil
}

// PostMessage posts text to a channel, throttled per channel and retried on rate limits
func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	ctx, span := tracing.StartSpan(ctx, "slack.chat_post_message")
	start := time.Now()

	err := WithRetry(ctx, c.limiter, channelID, c.maxRetries, func() error {
		_, _, err := c.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false))
		if wait, limited := retryAfter(err); limited {
			c.logger.WithFields(logrus.Fields{
				"request_id":  tracing.GetRequestID(ctx),
				"retry_after": wait.String(),
			}).Warn("Slack rate limited chat.postMessage")
		}
		return err
	})
	metrics.ObserveBackendOperation("slack", "chat.postMessage", time.Since(start), err)
	if err != nil {
		apiErr := apiError("chat.postMessage", err)
		tracing.EndSpan(span, apiErr)
		return apiErr
	}

	tracing.EndSpan(span, nil)
	return nil
}

// RespondToCommand answers a slash command through its response URL
func (c *Client) RespondToCommand(ctx context.Context, responseURL, text string) error {
	ctx, span := tracing.StartSpan(ctx, "slack.respond")
	start := time.Now()

	err := slack.PostWebhookCustomHTTPContext(ctx, responseURL, c.httpClient, &slack.WebhookMessage{Text: text})
	metrics.ObserveBackendOperation("slack", "response_url", time.Since(start), err)
	if err != nil {
		apiErr := apiError("response_url", err)
		tracing.EndSpan(span, apiErr)
		return apiErr
	}

	tracing.EndSpan(span, nil)
	return nil
}

// apiError classifies a failed Slack call as rate limited, timed out or a
// plain API error
func apiError(operation string, err error) *apperrors.AppError {
	if _, limited := retryAfter(err); limited || errors.Is(err, ErrMaxRetries) {
		return apperrors.NewRateLimitError("slack", operation, err)
	}
	if isTimeout(err) {
		return apperrors.NewTimeoutError("slack", operation, err)
	}
	return apperrors.NewAPIError("slack", operation, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// logAdapter routes slack-go debug output into logrus
type logAdapter struct {
	entry *logrus.Entry
}

func newLogAdapter(logger *logrus.Logger, component string) *logAdapter {
	return &logAdapter{entry: logger.WithField("component", component)}
}

func (l *logAdapter) Output(calldepth int, s string) error {
	l.entry.Debug(s)
	return nil
}
