package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"scrapebot/internal/constants"
	"scrapebot/internal/retry"

	"github.com/mattn/go-sqlite3"
)

var busyPolicy = retry.Policy{
	MaxAttempts: constants.DefaultDatabaseRetryAttempts,
	MinWait:     constants.DefaultDatabaseRetryMinMs * time.Millisecond,
	MaxWait:     constants.DefaultDatabaseRetryMaxMs * time.Millisecond,
	Retryable:   isRetryableDBError,
}

// withBusyRetry retries operation while SQLite reports the database as busy or locked
func withBusyRetry(ctx context.Context, operation func(ctx context.Context) error) error {
	return retry.Do(ctx, busyPolicy, operation)
}

// isRetryableDBError determines if a database error is worth retrying
func isRetryableDBError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}

	return strings.Contains(err.Error(), "database is locked")
}
