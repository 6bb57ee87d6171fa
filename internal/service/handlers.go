package service

import (
	"context"
	"strings"

	"scrapebot/internal/constants"
	apperrors "scrapebot/internal/errors"
	"scrapebot/internal/metrics"
	"scrapebot/internal/models"
	"scrapebot/internal/tracing"
	"scrapebot/internal/validation"
	slacktypes "scrapebot/pkg/slack/types"

	"github.com/sirupsen/logrus"
)

// Submission outcomes recorded per URL
const (
	outcomeAdded     = "added"
	outcomeDuplicate = "duplicate"
	outcomeInvalid   = "invalid"
	outcomeFailed    = "failed"
)

// URLChecker reports whether a URL is already queued
type URLChecker interface {
	IsDuplicate(ctx context.Context, url string) bool
}

// URLAppender adds an accepted URL to the queue
type URLAppender interface {
	Append(ctx context.Context, url string, platform models.Platform, userID string) error
}

// Handlers processes mentions and slash commands. It holds no per-request
// state and is safe for concurrent use.
type Handlers struct {
	checker      URLChecker
	appender     URLAppender
	replier      slacktypes.Replier
	boundary     *Boundary
	slashCommand string
	logger       *logrus.Logger
}

var _ slacktypes.Dispatcher = (*Handlers)(nil)

// NewHandlers wires the submission pipeline to a replier
func NewHandlers(checker URLChecker, appender URLAppender, replier slacktypes.Replier, slashCommand string, logger *logrus.Logger) *Handlers {
	if slashCommand == "" {
		slashCommand = constants.DefaultSlashCommand
	}
	return &Handlers{
		checker:      checker,
		appender:     appender,
		replier:      replier,
		boundary:     NewBoundary(logger),
		slashCommand: slashCommand,
		logger:       logger,
	}
}

// HandleMention processes every URL in a mention and posts one summary reply
// to the originating channel.
func (h *Handlers) HandleMention(ctx context.Context, event slacktypes.MentionEvent) {
	ctx = tracing.NewEventContext(ctx, slacktypes.EventTypeAppMention)
	fields := EventFields(ctx, event.User, event.Channel)

	h.boundary.Run(ctx, HandlerMention, fields,
		func(ctx context.Context) error {
			return h.processMention(ctx, event, fields)
		},
		func(ctx context.Context) error {
			return h.postMessage(ctx, event.Channel, mentionApologyReply(event.User))
		},
	)
}

func (h *Handlers) processMention(ctx context.Context, event slacktypes.MentionEvent, fields logrus.Fields) error {
	h.logger.WithFields(fields).Info("Received mention")

	urls := validation.ExtractURLs(event.Text)
	if len(urls) == 0 {
		return h.postMessage(ctx, event.Channel, mentionNoURLsReply(event.User))
	}

	results := &mentionResults{}
	for _, raw := range urls {
		h.logger.WithFields(fields).WithField(LogFieldURL, raw).Debug("Processing URL")

		result, err := h.submit(ctx, raw, event.User)
		if err != nil {
			results.addError(raw, apperrors.GetUserMessage(err))
			continue
		}
		results.addSuccess(result.Platform, result.URL)
	}

	if err := h.postMessage(ctx, event.Channel, results.render(event.User)); err != nil {
		return err
	}

	h.logger.WithFields(fields).WithFields(logrus.Fields{
		LogFieldAdded:    len(results.added),
		LogFieldRejected: len(results.errors),
	}).Info("Processed mention")
	return nil
}

// HandleCommand acknowledges the command, then processes its single URL and
// answers through the response URL.
func (h *Handlers) HandleCommand(ctx context.Context, cmd slacktypes.CommandRequest, ack func()) {
	ctx = tracing.NewEventContext(ctx, slacktypes.EventTypeSlashCommand)
	fields := EventFields(ctx, cmd.UserID, cmd.ChannelID)

	h.boundary.Run(ctx, HandlerCommand, fields,
		func(ctx context.Context) error {
			if ack != nil {
				ack()
			}
			return h.processCommand(ctx, cmd, fields)
		},
		func(ctx context.Context) error {
			return h.respond(ctx, cmd.ResponseURL, commandApology)
		},
	)
}

func (h *Handlers) processCommand(ctx context.Context, cmd slacktypes.CommandRequest, fields logrus.Fields) error {
	h.logger.WithFields(fields).Info("Received slash command")

	raw := strings.TrimSpace(cmd.Text)
	if raw == "" {
		return h.respond(ctx, cmd.ResponseURL, commandUsageReply(h.slashCommand))
	}

	result, err := h.submit(ctx, raw, cmd.UserID)
	switch {
	case err == nil:
		return h.respond(ctx, cmd.ResponseURL, commandAddedReply(result.Platform, result.URL))
	case apperrors.HasCode(err, apperrors.ErrCodeDuplicateFound):
		return h.respond(ctx, cmd.ResponseURL, commandDuplicateReply(raw))
	case apperrors.HasCode(err, apperrors.ErrCodeAppendFailed):
		return h.respond(ctx, cmd.ResponseURL, commandAppendFailed)
	default:
		return h.respond(ctx, cmd.ResponseURL, commandRejectedReply(apperrors.GetUserMessage(err)))
	}
}

// submit runs one raw token through validation, the duplicate check and the
// append. The error is an AppError carrying the rejection code.
func (h *Handlers) submit(ctx context.Context, raw, userID string) (validation.Result, error) {
	result, err := validation.ValidateURL(raw)
	if err != nil {
		metrics.RecordSubmission("", outcomeInvalid)
		LogWithContext(ctx, h.logger).WithFields(logrus.Fields{
			LogFieldURL:       raw,
			LogFieldErrorCode: apperrors.GetCode(err),
		}).Info("Rejected URL")
		return validation.Result{}, err
	}

	platform := result.Platform.String()
	if h.checker.IsDuplicate(ctx, result.URL) {
		metrics.RecordSubmission(platform, outcomeDuplicate)
		return validation.Result{}, apperrors.NewDuplicateError(result.URL)
	}

	if err := h.appender.Append(ctx, result.URL, result.Platform, userID); err != nil {
		metrics.RecordSubmission(platform, outcomeFailed)
		if !apperrors.HasCode(err, apperrors.ErrCodeAppendFailed) {
			err = apperrors.NewAppendError("", err)
		}
		return validation.Result{}, err
	}

	metrics.RecordSubmission(platform, outcomeAdded)
	return result, nil
}

func (h *Handlers) postMessage(ctx context.Context, channelID, text string) error {
	err := h.replier.PostMessage(ctx, channelID, text)
	metrics.RecordReply("message", err)
	return err
}

func (h *Handlers) respond(ctx context.Context, responseURL, text string) error {
	err := h.replier.RespondToCommand(ctx, responseURL, text)
	metrics.RecordReply("command", err)
	return err
}
