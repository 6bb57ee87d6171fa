package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	apperrors "scrapebot/internal/errors"
	"scrapebot/internal/metrics"
	"scrapebot/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Handler names used in metrics and spans
const (
	HandlerMention = "mention"
	HandlerCommand = "command"
)

// Boundary runs event handlers so that no request can crash the process.
// A panic or returned error is logged with the event's context, counted,
// and answered with the handler's apology.
type Boundary struct {
	logger *apperrors.Logger
}

// NewBoundary creates a boundary guard logging to logger
func NewBoundary(logger *logrus.Logger) *Boundary {
	return &Boundary{logger: apperrors.WrapLogger(logger)}
}

// Run executes fn. apologize is called with the same context when fn fails.
func (b *Boundary) Run(ctx context.Context, handler string, fields logrus.Fields, fn func(ctx context.Context) error, apologize func(ctx context.Context) error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "handler."+handler, attribute.String("handler", handler))

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			fields[LogFieldPanic] = fmt.Sprint(r)
			fields[LogFieldStack] = string(debug.Stack())
		}

		duration := time.Since(start)
		metrics.RecordHandlerInvocation(handler, duration)
		fields[LogFieldHandler] = handler
		fields[LogFieldDuration] = duration.Milliseconds()

		if err != nil {
			b.fail(ctx, handler, err, fields, apologize)
		}
		tracing.EndSpan(span, err)
	}()

	err = fn(ctx)
}

func (b *Boundary) fail(ctx context.Context, handler string, err error, fields logrus.Fields, apologize func(ctx context.Context) error) {
	metrics.RecordHandlerFailure(handler)
	b.logger.LogError(apperrors.NewInternalError(handler, err), "Handler failed, sending apology", fields)

	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(fields).WithField(LogFieldPanic, fmt.Sprint(r)).Error("Apology reply panicked")
		}
	}()
	if apologize == nil {
		return
	}
	if replyErr := apologize(ctx); replyErr != nil {
		b.logger.LogError(replyErr, "Failed to send apology reply", fields)
	}
}
