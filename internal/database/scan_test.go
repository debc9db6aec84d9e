package database

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRows struct {
	cols    []string
	data    [][]any
	idx     int
	closed  bool
	iterErr error
}

func (r *stubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	for i, d := range dest {
		*(d.(*any)) = row[i]
	}
	return nil
}

func (r *stubRows) Columns() ([]string, error) { return r.cols, nil }
func (r *stubRows) Close()                     { r.closed = true }
func (r *stubRows) Err() error                 { return r.iterErr }

func TestScanRows(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := &stubRows{
		cols: []string{"id", "secret", "created_at"},
		data: [][]any{
			{int64(1), []byte("s3cr3t"), ts},
			{int64(2), nil, ts},
		},
	}

	result, err := ScanRows(rows)
	require.NoError(t, err)
	require.Len(t, result, 2)

	// []byte values come back as strings, timestamps as RFC3339 text.
	assert.Equal(t, "s3cr3t", result[0]["secret"])
	assert.Equal(t, "2024-05-01T12:00:00Z", result[0]["created_at"])
	assert.Equal(t, int64(1), result[0]["id"])
	assert.Nil(t, result[1]["secret"])

	assert.True(t, rows.closed, "ScanRows owns closing the rows")
}

func TestScanRows_EmptyResultIsNonNil(t *testing.T) {
	result, err := ScanRows(&stubRows{cols: []string{"id"}})
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestScanRows_IterationError(t *testing.T) {
	rows := &stubRows{cols: []string{"id"}, iterErr: errors.New("broken pipe")}
	_, err := ScanRows(rows)
	require.Error(t, err)
	assert.True(t, rows.closed)
}
