package service

import (
	"context"
	"time"

	apperrors "scrapebot/internal/errors"
	"scrapebot/internal/models"
	"scrapebot/internal/retry"
	sheetstypes "scrapebot/pkg/sheets/types"

	"github.com/sirupsen/logrus"
)

// HeaderInitializer writes the queue header row when the sheet is empty
type HeaderInitializer struct {
	queue       sheetstypes.SpreadsheetQueue
	headerRange string
	logger      *apperrors.Logger
}

// NewHeaderInitializer creates an initializer for headerRange, e.g. "Scrape Requests!A1:E1"
func NewHeaderInitializer(queue sheetstypes.SpreadsheetQueue, headerRange string, logger *logrus.Logger) *HeaderInitializer {
	return &HeaderInitializer{
		queue:       queue,
		headerRange: headerRange,
		logger:      apperrors.WrapLogger(logger),
	}
}

// EnsureHeader writes the header if row 1 is empty. A non-empty row 1 is
// never overwritten.
func (h *HeaderInitializer) EnsureHeader(ctx context.Context) error {
	rows, err := h.queue.Get(ctx, h.headerRange)
	if err != nil {
		return apperrors.NewBackendReadError(h.headerRange, err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		h.logger.WithField(LogFieldRange, h.headerRange).Debug("Queue header already present")
		return nil
	}

	header := make([]string, len(models.QueueHeader))
	copy(header, models.QueueHeader)
	if err := h.queue.Update(ctx, h.headerRange, [][]string{header}); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeBackendWrite, "failed to write queue header").
			WithContext("range", h.headerRange)
	}

	h.logger.WithField(LogFieldRange, h.headerRange).Info("Initialized queue header")
	return nil
}

// Initialize runs EnsureHeader with the startup retry policy. A final failure
// is logged and returned; callers continue starting up.
func (h *HeaderInitializer) Initialize(ctx context.Context) error {
	policy := retry.StartupPolicy()
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		h.logger.LogWarn(err, "Queue header initialization failed, retrying", logrus.Fields{
			LogFieldAttempt: attempt,
			"wait_ms":       wait.Milliseconds(),
		})
	}

	err := retry.Do(ctx, policy, h.EnsureHeader)
	if err != nil {
		h.logger.LogError(err, "Could not initialize queue header", logrus.Fields{
			LogFieldRange: h.headerRange,
		})
	}
	return err
}
