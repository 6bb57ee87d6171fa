package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"scrapebot/internal/constants"
	apperrors "scrapebot/internal/errors"
	"scrapebot/internal/tracing"
	"scrapebot/pkg/slack/types"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// WebhookHandler serves the Events API and slash command endpoints in HTTP mode
type WebhookHandler struct {
	signingSecret string
	dispatcher    types.Dispatcher
	pool          Submitter
	command       string
	baseCtx       context.Context
	logger        *logrus.Logger
	errLogger     *apperrors.Logger
}

// NewWebhookHandler creates HTTP handlers verifying requests with signingSecret.
// Dispatched work runs under baseCtx rather than the request context, which
// ends as soon as Slack gets its 200.
func NewWebhookHandler(baseCtx context.Context, signingSecret string, dispatcher types.Dispatcher, pool Submitter, command string, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		signingSecret: signingSecret,
		dispatcher:    dispatcher,
		pool:          pool,
		command:       command,
		baseCtx:       baseCtx,
		logger:        logger,
		errLogger:     apperrors.WrapLogger(logger),
	}
}

// verifyRequest checks the Slack signature and returns the body
func (h *WebhookHandler) verifyRequest(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, constants.MaxSlackRequestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	verifier, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		return nil, apperrors.NewAuthError("invalid signature headers", err)
	}
	if _, err := verifier.Write(body); err != nil {
		return nil, fmt.Errorf("failed to hash request body: %w", err)
	}
	if err := verifier.Ensure(); err != nil {
		return nil, apperrors.NewAuthError("signature mismatch", err)
	}

	return body, nil
}

// HandleEvents answers URL verification and dispatches app_mention callbacks
func (h *WebhookHandler) HandleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := h.verifyRequest(r)
		if err != nil {
			h.errLogger.LogWarn(err, "Rejected Slack events request", requestFields(r))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
		if err != nil {
			h.logger.WithError(err).Warn("Malformed Slack events payload")
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		if event.Type == slackevents.URLVerification {
			var challenge slackevents.ChallengeResponse
			if err := json.Unmarshal(body, &challenge); err != nil {
				http.Error(w, "Bad request", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(challenge.Challenge))
			return
		}

		w.WriteHeader(http.StatusOK)

		mention, ok := mentionFromEvent(event)
		if !ok {
			return
		}
		ctx := h.eventContext(r)
		h.submit(func() {
			h.dispatcher.HandleMention(ctx, mention)
		})
	}
}

// HandleCommands acknowledges a slash command with an empty 200 and dispatches it
func (h *WebhookHandler) HandleCommands() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := h.verifyRequest(r); err != nil {
			h.errLogger.LogWarn(err, "Rejected Slack command request", requestFields(r))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			h.logger.WithError(err).Warn("Malformed slash command payload")
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		if h.command != "" && cmd.Command != h.command {
			h.logger.WithField("command", cmd.Command).Debug("Ignoring unknown slash command")
			w.WriteHeader(http.StatusOK)
			return
		}

		// The empty 200 is the acknowledgement; the handler's ack is a no-op.
		w.WriteHeader(http.StatusOK)

		req := commandFromSlash(cmd)
		h.logger.WithFields(commandLogFields(req)).Debug("Queueing slash command")
		ctx := h.eventContext(r)
		h.submit(func() {
			h.dispatcher.HandleCommand(ctx, req, func() {})
		})
	}
}

func requestFields(r *http.Request) logrus.Fields {
	return logrus.Fields{
		"request_id": tracing.GetRequestID(r.Context()),
		"path":       r.URL.Path,
	}
}

// eventContext carries the HTTP request ID over to the dispatch context
func (h *WebhookHandler) eventContext(r *http.Request) context.Context {
	if requestID := tracing.GetRequestID(r.Context()); requestID != "" {
		return tracing.WithRequestID(h.baseCtx, requestID)
	}
	return h.baseCtx
}

func (h *WebhookHandler) submit(task func()) {
	if err := h.pool.Submit(task); err != nil {
		h.logger.WithError(err).Error("Dropping Slack event")
	}
}
