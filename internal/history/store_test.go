package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/berfenger/receiptpanel/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	s, err := New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreDispatchAndCompletion(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()
	s := newTestStore(t)

	created := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	require.NoError(t, s.RecordDispatch(ctx, domain.GenerationRequest{
		Id:        "req-1",
		EntityIds: []string{"sensor.john_total_energy"},
		StartDate: "2024-03-04",
		EndDate:   "2024-03-10",
		Filename:  "john_2024-03-10.pdf",
		CreatedAt: created,
	}))
	require.NoError(t, s.RecordDispatch(ctx, domain.GenerationRequest{
		Id:             "req-2",
		EntityIds:      []string{"sensor.john_total_energy", "sensor.mary_total_energy"},
		StartDate:      "2024-03-01",
		EndDate:        "2024-03-10",
		FilenamePrefix: "receipt",
		CreatedAt:      created.Add(time.Minute),
	}))

	// closes the latest pending request
	require.NoError(t, s.RecordCompletion(ctx, domain.CompletionEvent{Success: true, FileCount: 2}))

	entries, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal("req-2", entries[0].Id)
	assert.Equal(STATUS_SUCCESS, entries[0].Status)
	assert.Equal("2 PDFs Generated", entries[0].Detail)
	assert.NotNil(entries[0].CompletedAt)
	assert.Equal("receipt", entries[0].Prefix)
	assert.Len(entries[0].EntityIds, 2)

	assert.Equal("req-1", entries[1].Id)
	assert.Equal(STATUS_DISPATCHED, entries[1].Status)
	assert.Nil(entries[1].CompletedAt)
	assert.True(created.Equal(entries[1].DispatchedAt))

	require.NoError(t, s.RecordCompletion(ctx, domain.CompletionEvent{Success: false, Error: "no data"}))
	entries, err = s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal("req-2", entries[0].Id, "limit keeps the newest")

	entries, err = s.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(STATUS_ERROR, entries[1].Status)
	assert.Equal("Error: no data", entries[1].Detail)
}

func TestStoreFailureAndOrphanCompletion(t *testing.T) {

	assert := assert.New(t)
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.RecordDispatch(ctx, domain.GenerationRequest{Id: "req-1", EntityIds: []string{"sensor.a_total_energy"}}))
	require.NoError(t, s.RecordFailure(ctx, "req-1", errors.New("service not found")))

	// nothing pending: kept as an external completion
	require.NoError(t, s.RecordCompletion(ctx, domain.CompletionEvent{Success: true, Filename: "manual.pdf"}))

	entries, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(STATUS_SUCCESS, entries[0].Status)
	assert.Equal("manual.pdf", entries[0].Filename)
	assert.Empty(entries[0].EntityIds)
	assert.Equal(STATUS_FAILED, entries[1].Status)
	assert.Equal("service not found", entries[1].Detail)

	// reopening keeps the data
	path := filepath.Join(t.TempDir(), "reopen.db")
	s2, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s2.RecordDispatch(ctx, domain.GenerationRequest{Id: "req-x", EntityIds: []string{}}))
	s2.Close()
	s3, err := New(path)
	require.NoError(t, err)
	defer s3.Close()
	entries, err = s3.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(entries, 1)
}
