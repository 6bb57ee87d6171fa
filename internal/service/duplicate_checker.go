package service

import (
	"context"

	apperrors "scrapebot/internal/errors"
	"scrapebot/internal/models"
	"scrapebot/internal/tracing"
	sheetstypes "scrapebot/pkg/sheets/types"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// DuplicateChecker reports whether a URL is already in the queue
type DuplicateChecker struct {
	queue      sheetstypes.SpreadsheetQueue
	queueRange string
	logger     *apperrors.Logger
}

// NewDuplicateChecker creates a checker reading queueRange, e.g. "Scrape Requests!A:E"
func NewDuplicateChecker(queue sheetstypes.SpreadsheetQueue, queueRange string, logger *logrus.Logger) *DuplicateChecker {
	return &DuplicateChecker{
		queue:      queue,
		queueRange: queueRange,
		logger:     apperrors.WrapLogger(logger),
	}
}

// IsDuplicate returns true iff a data row's URL column equals url exactly.
// A failed read is logged and treated as not duplicate.
func (c *DuplicateChecker) IsDuplicate(ctx context.Context, url string) bool {
	ctx, span := tracing.StartSpan(ctx, "queue.is_duplicate", attribute.String("queue.range", c.queueRange))
	defer span.End()

	rows, err := c.queue.Get(ctx, c.queueRange)
	if err != nil {
		readErr := apperrors.NewBackendReadError(c.queueRange, err)
		c.logger.LogWarn(readErr, "Duplicate check failed, treating URL as new", logrus.Fields{
			LogFieldRequestID: tracing.GetRequestID(ctx),
			LogFieldRange:     c.queueRange,
		})
		tracing.EndSpan(span, readErr)
		return false
	}

	// Row 0 is the header.
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) > models.URLColumn && row[models.URLColumn] == url {
			span.SetAttributes(attribute.Bool("queue.duplicate", true))
			LogWithContext(ctx, c.logger.Logger).WithFields(logrus.Fields{
				LogFieldURL:   url,
				LogFieldRange: c.queueRange,
			}).Debug("URL already queued")
			return true
		}
	}
	return false
}
