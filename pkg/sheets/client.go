package sheets

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"scrapebot/internal/constants"
	apperrors "scrapebot/internal/errors"
	"scrapebot/internal/metrics"
	"scrapebot/internal/models"
	"scrapebot/internal/tracing"
	"scrapebot/pkg/sheets/types"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const (
	backendName = "sheets"

	valueInputRaw     = "RAW"
	insertRows        = "INSERT_ROWS"
	retryWaitMin      = 200 * time.Millisecond
	retryWaitMax      = 2 * time.Second
	breakerCountReset = 60 * time.Second
)

var _ types.SpreadsheetQueue = (*Client)(nil)

// Client talks to the Google Sheets values API. Calls go through a circuit
// breaker; only reads are retried at the HTTP layer.
type Client struct {
	service       *gsheets.Service
	spreadsheetID string
	breaker       *gobreaker.CircuitBreaker
	logger        *logrus.Logger
}

// NewClient builds a client authenticated with the service-account key at cfg.CredentialsFile
func NewClient(ctx context.Context, cfg models.SheetsConfig, logger *logrus.Logger) (*Client, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, apperrors.NewConfigError("GOOGLE_CREDENTIALS_FILE", fmt.Sprintf("failed to read credentials file: %v", err))
	}

	jwtConfig, err := google.JWTConfigFromJSON(data, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, apperrors.NewConfigError("GOOGLE_CREDENTIALS_FILE", fmt.Sprintf("invalid service account credentials: %v", err))
	}

	// oauth2 uses the client stored under oauth2.HTTPClient as its base transport
	authCtx := context.WithValue(ctx, oauth2.HTTPClient, NewRetryingHTTPClient(cfg, logger))
	return NewClientWithHTTPClient(ctx, cfg, jwtConfig.Client(authCtx), logger)
}

// NewClientWithHTTPClient builds a client on top of an already authenticated HTTP client
func NewClientWithHTTPClient(ctx context.Context, cfg models.SheetsConfig, httpClient *http.Client, logger *logrus.Logger, opts ...option.ClientOption) (*Client, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, apperrors.NewAPIError(backendName, "new_service", err)
	}

	return &Client{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		breaker:       newBreaker(logger),
		logger:        logger,
	}, nil
}

// NewRetryingHTTPClient returns an HTTP client that retries requests marked as reads
func NewRetryingHTTPClient(cfg models.SheetsConfig, logger *logrus.Logger) *http.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.MaxReadRetries
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.CheckRetry = readOnlyRetryPolicy
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.HTTPClient.Timeout = cfg.Timeout
	if logger != nil {
		client.Logger = &leveledLogger{logger: logger}
	} else {
		client.Logger = nil
	}
	return client.StandardClient()
}

func newBreaker(logger *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sheets-api",
		MaxRequests: constants.DefaultBreakerHalfOpenCalls,
		Interval:    breakerCountReset,
		Timeout:     constants.DefaultBreakerOpenTimeoutSec * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= constants.DefaultBreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetCircuitBreakerState(backendName, float64(to))
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
}

// Get returns the values of a range as strings
func (c *Client) Get(ctx context.Context, a1Range string) ([][]string, error) {
	var resp *gsheets.ValueRange
	err := c.execute(ctx, "get", a1Range, func() error {
		var err error
		resp, err = c.service.Spreadsheets.Values.Get(c.spreadsheetID, a1Range).
			Context(withReadRetry(ctx)).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	return toStrings(resp.Values), nil
}

// Append inserts rows after the last row of the table in a1Range
func (c *Client) Append(ctx context.Context, a1Range string, rows [][]string) error {
	body := &gsheets.ValueRange{Values: toInterfaces(rows)}
	return c.execute(ctx, "append", a1Range, func() error {
		_, err := c.service.Spreadsheets.Values.Append(c.spreadsheetID, a1Range, body).
			ValueInputOption(valueInputRaw).
			InsertDataOption(insertRows).
			Context(ctx).
			Do()
		return err
	})
}

// Update overwrites the cells of a1Range with rows
func (c *Client) Update(ctx context.Context, a1Range string, rows [][]string) error {
	body := &gsheets.ValueRange{Values: toInterfaces(rows)}
	return c.execute(ctx, "update", a1Range, func() error {
		_, err := c.service.Spreadsheets.Values.Update(c.spreadsheetID, a1Range, body).
			ValueInputOption(valueInputRaw).
			Context(ctx).
			Do()
		return err
	})
}

func (c *Client) execute(ctx context.Context, operation, a1Range string, fn func() error) (err error) {
	ctx, span := tracing.StartSpan(ctx, "sheets."+operation, attribute.String("range", a1Range))
	start := time.Now()
	defer func() {
		metrics.ObserveBackendOperation(backendName, operation, time.Since(start), err)
		tracing.EndSpan(span, err)
	}()

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"operation":  operation,
			"range":      a1Range,
			"request_id": tracing.GetRequestID(ctx),
			"error":      err,
		}).Debug("Sheets API call failed")
		return apperrors.NewAPIError(backendName, operation, err).WithContext("range", a1Range)
	}
	return nil
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, cell := range row {
			if s, ok := cell.(string); ok {
				cells[j] = s
			} else {
				cells[j] = fmt.Sprint(cell)
			}
		}
		rows[i] = cells
	}
	return rows
}

func toInterfaces(rows [][]string) [][]interface{} {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}
	return values
}
