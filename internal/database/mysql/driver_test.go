package mysql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/errs"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.ErrKind
	}{
		{"nil passes through", nil, errs.ErrKindUnknown},
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"canceled", context.Canceled, errs.ErrKindTimeout},
		{"no rows", sql.ErrNoRows, errs.ErrKindQueryFailed},
		{"access denied", &mysql.MySQLError{Number: 1045, Message: "access denied"}, errs.ErrKindConnectionFailed},
		{"unknown database", &mysql.MySQLError{Number: 1049, Message: "unknown database"}, errs.ErrKindConnectionFailed},
		{"too many connections", &mysql.MySQLError{Number: 1040, Message: "too many connections"}, errs.ErrKindConnectionFailed},
		{"bad syntax", &mysql.MySQLError{Number: 1064, Message: "syntax error"}, errs.ErrKindQueryFailed},
		{"unknown table", &mysql.MySQLError{Number: 1146, Message: "table does not exist"}, errs.ErrKindQueryFailed},
		{"generic", errors.New("broken pipe"), errs.ErrKindConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapError(tt.err, "op failed")
			if tt.err == nil {
				assert.Nil(t, mapped)
				return
			}
			require.NotNil(t, mapped)
			assert.Equal(t, tt.want, mapped.Kind)
			assert.True(t, errors.Is(mapped, tt.err), "cause must stay unwrappable")
		})
	}
}

// Single-row lookups (row counts, server version) must carry an errs kind
// just like multi-row queries do.
func TestMapError_NoRowsIsQueryFailed(t *testing.T) {
	err := mapError(sql.ErrNoRows, "query row failed")
	assert.True(t, errs.IsQueryFailed(err))
	assert.False(t, errs.IsConnectionFailed(err))
}
