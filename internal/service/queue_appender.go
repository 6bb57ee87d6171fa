package service

import (
	"context"
	"time"

	"scrapebot/internal/constants"
	apperrors "scrapebot/internal/errors"
	"scrapebot/internal/models"
	"scrapebot/internal/tracing"
	sheetstypes "scrapebot/pkg/sheets/types"
	slacktypes "scrapebot/pkg/slack/types"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// QueueAppender writes accepted submissions to the end of the queue
type QueueAppender struct {
	queue      sheetstypes.SpreadsheetQueue
	identities slacktypes.IdentityLookup
	queueRange string
	logger     *apperrors.Logger
	now        func() time.Time
}

// NewQueueAppender creates an appender writing to queueRange
func NewQueueAppender(queue sheetstypes.SpreadsheetQueue, identities slacktypes.IdentityLookup, queueRange string, logger *logrus.Logger) *QueueAppender {
	return &QueueAppender{
		queue:      queue,
		identities: identities,
		queueRange: queueRange,
		logger:     apperrors.WrapLogger(logger),
		now:        time.Now,
	}
}

// Append adds one Pending row for url. The append itself is not retried.
func (a *QueueAppender) Append(ctx context.Context, url string, platform models.Platform, userID string) error {
	ctx, span := tracing.StartSpan(ctx, "queue.append",
		attribute.String("queue.range", a.queueRange),
		attribute.String("submission.platform", platform.String()),
	)
	defer span.End()

	requester := a.resolveRequester(ctx, userID)
	row := models.QueueRow{
		Timestamp: a.now().Format(constants.QueueTimestampLayout),
		URL:       url,
		Platform:  platform,
		Requester: requester,
		Status:    models.StatusPending,
	}

	if err := a.queue.Append(ctx, a.queueRange, [][]string{row.Values()}); err != nil {
		appendErr := apperrors.NewAppendError(a.queueRange, err).
			WithContext("url", url).
			WithContext("platform", platform.String())
		a.logger.LogError(appendErr, "Failed to append URL to queue", logrus.Fields{
			LogFieldRequestID: tracing.GetRequestID(ctx),
			LogFieldURL:       url,
			LogFieldPlatform:  platform.String(),
		})
		tracing.EndSpan(span, appendErr)
		return appendErr
	}

	LogWithContext(ctx, a.logger.Logger).WithFields(logrus.Fields{
		LogFieldURL:       url,
		LogFieldPlatform:  platform.String(),
		LogFieldRequester: RequesterField(ctx, requester),
	}).Info("Added URL to queue")
	return nil
}

// resolveRequester returns the best available name for userID, falling back
// to the placeholder when the lookup fails or returns nothing usable.
func (a *QueueAppender) resolveRequester(ctx context.Context, userID string) string {
	if a.identities == nil {
		return constants.UnknownRequesterName
	}

	identity, err := a.identities.LookupUser(ctx, userID)
	if err != nil {
		lookupErr := apperrors.NewIdentityLookupError(maskedUserID(ctx, userID), err)
		a.logger.LogWarn(lookupErr, "Could not resolve requester name", logrus.Fields{
			LogFieldRequestID: tracing.GetRequestID(ctx),
		})
		return constants.UnknownRequesterName
	}
	if identity == nil {
		return constants.UnknownRequesterName
	}

	for _, name := range []string{identity.RealName, identity.DisplayName, identity.Name} {
		if name != "" {
			return name
		}
	}
	return constants.UnknownRequesterName
}
