package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"scrapebot/internal/constants"
	"scrapebot/internal/metrics"
	"scrapebot/internal/migrations"
	"scrapebot/internal/security"
	"scrapebot/internal/tracing"
	"scrapebot/pkg/sheets/types"

	"go.opentelemetry.io/otel/attribute"

	_ "github.com/mattn/go-sqlite3"
)

const backendName = "sqlite"

var _ types.SpreadsheetQueue = (*Database)(nil)

// Database is a local spreadsheet store with the same range semantics as the
// Google Sheets values API. Cell values are encrypted when a secret is configured.
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

// New opens (creating if needed) the store at dbPath and applies pending migrations.
// An empty encryptionSecret stores values in plain text.
func New(dbPath, encryptionSecret string) (*Database, error) {
	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	encryptor, err := newEncryptor(encryptionSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_txlock=immediate",
		dbPath, constants.DefaultDatabaseBusyTimeoutMs)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := migrations.Apply(context.Background(), db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("%w (close error: %v)", err, closeErr)
		}
		return nil, err
	}

	return &Database{db: db, encryptor: encryptor}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Get returns the rows of a1Range. Leading empty rows inside the range are
// returned as empty slices; trailing empty rows and cells are omitted.
func (d *Database) Get(ctx context.Context, a1Range string) (values [][]string, err error) {
	r, err := types.ParseRange(a1Range)
	if err != nil {
		return nil, err
	}

	err = d.observe(ctx, "get", a1Range, func(ctx context.Context) error {
		values, err = d.readRange(ctx, r)
		return err
	})
	return values, err
}

func (d *Database) readRange(ctx context.Context, r types.Range) ([][]string, error) {
	startRow := firstRow(r)

	rows, err := d.db.QueryContext(ctx, `
		SELECT row_num, col_num, value FROM sheet_cells
		WHERE sheet = ? AND col_num BETWEEN ? AND ? AND row_num >= ? AND (? = 0 OR row_num <= ?)
		ORDER BY row_num, col_num`,
		r.Sheet, r.StartCol, r.EndCol, startRow, r.EndRow, r.EndRow)
	if err != nil {
		return nil, fmt.Errorf("failed to query range: %w", err)
	}
	defer rows.Close()

	var values [][]string
	for rows.Next() {
		var rowNum, colNum int
		var stored string
		if err := rows.Scan(&rowNum, &colNum, &stored); err != nil {
			return nil, fmt.Errorf("failed to scan cell: %w", err)
		}

		value, err := d.encryptor.Decrypt(stored)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt cell %s%d: %w", types.ColumnName(colNum), rowNum, err)
		}

		idx := rowNum - startRow
		for len(values) <= idx {
			values = append(values, []string{})
		}
		col := colNum - r.StartCol
		for len(values[idx]) <= col {
			values[idx] = append(values[idx], "")
		}
		values[idx][col] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cells: %w", err)
	}
	return values, nil
}

// Append writes rows below the last non-empty row of a1Range
func (d *Database) Append(ctx context.Context, a1Range string, rows [][]string) error {
	r, err := types.ParseRange(a1Range)
	if err != nil {
		return err
	}
	if err := checkWidth(r, rows); err != nil {
		return err
	}

	return d.observe(ctx, "append", a1Range, func(ctx context.Context) error {
		return d.inTx(ctx, func(tx *sql.Tx) error {
			var last int
			err := tx.QueryRowContext(ctx, `
				SELECT COALESCE(MAX(row_num), 0) FROM sheet_cells
				WHERE sheet = ? AND col_num BETWEEN ? AND ? AND row_num >= ? AND (? = 0 OR row_num <= ?)`,
				r.Sheet, r.StartCol, r.EndCol, firstRow(r), r.EndRow, r.EndRow).Scan(&last)
			if err != nil {
				return fmt.Errorf("failed to find last row: %w", err)
			}

			next := last + 1
			if next < firstRow(r) {
				next = firstRow(r)
			}
			return d.writeRows(ctx, tx, r.Sheet, next, r.StartCol, rows)
		})
	})
}

// Update overwrites the cells of a1Range starting at its top-left cell.
// Empty strings clear cells.
func (d *Database) Update(ctx context.Context, a1Range string, rows [][]string) error {
	r, err := types.ParseRange(a1Range)
	if err != nil {
		return err
	}
	if err := checkWidth(r, rows); err != nil {
		return err
	}
	if r.EndRow > 0 && len(rows) > r.EndRow-firstRow(r)+1 {
		return fmt.Errorf("range %s holds %d rows, got %d", a1Range, r.EndRow-firstRow(r)+1, len(rows))
	}

	return d.observe(ctx, "update", a1Range, func(ctx context.Context) error {
		return d.inTx(ctx, func(tx *sql.Tx) error {
			return d.writeRows(ctx, tx, r.Sheet, firstRow(r), r.StartCol, rows)
		})
	})
}

func (d *Database) writeRows(ctx context.Context, tx *sql.Tx, sheet string, startRow, startCol int, rows [][]string) error {
	for i, row := range rows {
		for j, value := range row {
			rowNum, colNum := startRow+i, startCol+j

			if value == "" {
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM sheet_cells WHERE sheet = ? AND row_num = ? AND col_num = ?`,
					sheet, rowNum, colNum); err != nil {
					return fmt.Errorf("failed to clear cell: %w", err)
				}
				continue
			}

			stored, err := d.encryptor.Encrypt(value)
			if err != nil {
				return fmt.Errorf("failed to encrypt cell: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO sheet_cells (sheet, row_num, col_num, value) VALUES (?, ?, ?, ?)
				ON CONFLICT (sheet, row_num, col_num)
				DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
				sheet, rowNum, colNum, stored); err != nil {
				return fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}
	return nil
}

func (d *Database) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback error: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (d *Database) observe(ctx context.Context, operation, a1Range string, fn func(ctx context.Context) error) (err error) {
	ctx, span := tracing.StartSpan(ctx, "sqlite."+operation, attribute.String("range", a1Range))
	start := time.Now()
	defer func() {
		metrics.ObserveBackendOperation(backendName, operation, time.Since(start), err)
		tracing.EndSpan(span, err)
	}()

	return withBusyRetry(ctx, fn)
}

func firstRow(r types.Range) int {
	if r.StartRow > 0 {
		return r.StartRow
	}
	return 1
}

func checkWidth(r types.Range, rows [][]string) error {
	for i, row := range rows {
		if len(row) > r.Width() {
			return fmt.Errorf("row %d has %d values but range %s is %d columns wide", i, len(row), r.String(), r.Width())
		}
	}
	return nil
}
