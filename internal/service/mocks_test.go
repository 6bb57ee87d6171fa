package service

import (
	"context"
	"errors"
	"sync"

	sheetstypes "scrapebot/pkg/sheets/types"
	slacktypes "scrapebot/pkg/slack/types"

	"github.com/stretchr/testify/mock"
)

// memoryQueue is an in-memory SpreadsheetQueue keyed by sheet name. Rows are
// 1-based like a spreadsheet; Get returns rows trimmed to the last non-empty one.
type memoryQueue struct {
	mu      sync.Mutex
	sheets  map[string][][]string
	getErr  error
	appErr  error
	updErr  error
	gets    int
	appends int
	updates int
}

func newMemoryQueue() *memoryQueue {
	return &memoryQueue{sheets: make(map[string][][]string)}
}

func (q *memoryQueue) Get(ctx context.Context, a1Range string) ([][]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.gets++
	if q.getErr != nil {
		return nil, q.getErr
	}

	r, err := sheetstypes.ParseRange(a1Range)
	if err != nil {
		return nil, err
	}

	var out [][]string
	for i, row := range q.sheets[r.Sheet] {
		if !r.Contains(i + 1) {
			continue
		}
		out = append(out, clip(row, r.StartCol, r.EndCol))
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (q *memoryQueue) Append(ctx context.Context, a1Range string, rows [][]string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.appends++
	if q.appErr != nil {
		return q.appErr
	}

	r, err := sheetstypes.ParseRange(a1Range)
	if err != nil {
		return err
	}
	for _, row := range rows {
		q.sheets[r.Sheet] = append(q.sheets[r.Sheet], append([]string(nil), row...))
	}
	return nil
}

func (q *memoryQueue) Update(ctx context.Context, a1Range string, rows [][]string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.updates++
	if q.updErr != nil {
		return q.updErr
	}

	r, err := sheetstypes.ParseRange(a1Range)
	if err != nil {
		return err
	}
	base := r.StartRow
	if base == 0 {
		base = 1
	}
	sheet := q.sheets[r.Sheet]
	for i, row := range rows {
		idx := base - 1 + i
		for len(sheet) <= idx {
			sheet = append(sheet, nil)
		}
		sheet[idx] = append([]string(nil), row...)
	}
	q.sheets[r.Sheet] = sheet
	return nil
}

func (q *memoryQueue) rows(sheet string) [][]string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sheets[sheet]
}

func clip(row []string, start, end int) []string {
	if start >= len(row) {
		return nil
	}
	if end >= len(row) || end < 0 {
		end = len(row) - 1
	}
	return append([]string(nil), row[start:end+1]...)
}

var errBackend = errors.New("backend unavailable")

type mockReplier struct {
	mock.Mock
}

func (m *mockReplier) PostMessage(ctx context.Context, channelID, text string) error {
	args := m.Called(ctx, channelID, text)
	return args.Error(0)
}

func (m *mockReplier) RespondToCommand(ctx context.Context, responseURL, text string) error {
	args := m.Called(ctx, responseURL, text)
	return args.Error(0)
}

type mockIdentityLookup struct {
	mock.Mock
}

func (m *mockIdentityLookup) LookupUser(ctx context.Context, userID string) (*slacktypes.UserIdentity, error) {
	args := m.Called(ctx, userID)
	if identity := args.Get(0); identity != nil {
		return identity.(*slacktypes.UserIdentity), args.Error(1)
	}
	return nil, args.Error(1)
}
