package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/config"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/database"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/database/mysql"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/errs"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/logger"
)

// fakeTransport counts Close calls; it is never dialed in these tests.
type fakeTransport struct {
	closes int
}

func (f *fakeTransport) DialContext(context.Context, string) (net.Conn, error) {
	return nil, fmt.Errorf("no dialing in tests")
}

func (f *fakeTransport) Close() error {
	f.closes++
	return nil
}

// stubDB serves the inspector's full query battery from canned rows, routing
// on distinctive fragments of each statement, and counts Close calls.
type stubDB struct {
	closes          int
	emptyConstraint bool
	failDescribe    bool
}

func (s *stubDB) Ping(context.Context) error { return nil }

func (s *stubDB) Close() { s.closes++ }

func (s *stubDB) Query(_ context.Context, sql string, _ ...any) (database.Rows, error) {
	switch {
	case strings.Contains(sql, "CONSTRAINT_NAME ="):
		if s.emptyConstraint {
			return &stubRows{}, nil
		}
		return &stubRows{data: [][]any{{
			"FK_818C32519EB6921", "FOREIGN KEY", "mautic",
			"mtc_oauth2_accesstokens", "client_id",
			"mtc_oauth2_clients", "id",
			"int(11)", nil, nil, "NO", "MUL", nil, "",
			"int(11)", nil, nil, "NO", "PRI", nil, "auto_increment",
		}}}, nil
	case strings.Contains(sql, "FROM information_schema.TABLE_CONSTRAINTS"):
		return &stubRows{data: [][]any{
			{"PRIMARY", "PRIMARY KEY", "mtc_oauth2_accesstokens"},
		}}, nil
	case strings.HasPrefix(sql, "DESCRIBE"):
		if s.failDescribe {
			return nil, errs.New(errs.ErrKindQueryFailed, "describe blew up")
		}
		return &stubRows{data: [][]any{
			{"id", "int(11)", "NO", "PRI", nil, "auto_increment"},
		}}, nil
	case strings.Contains(sql, "information_schema.STATISTICS"):
		return &stubRows{data: [][]any{{"PRIMARY", "id", 1, true}}}, nil
	case strings.Contains(sql, "REFERENCED_TABLE_NAME IS NOT NULL"):
		return &stubRows{data: [][]any{
			{"FK_818C32519EB6921", "mtc_oauth2_accesstokens", "client_id", "mtc_oauth2_clients", "id"},
		}}, nil
	case strings.HasPrefix(sql, "SELECT * FROM"):
		return &stubRows{cols: []string{"id"}, data: [][]any{{int64(1)}}}, nil
	default:
		return nil, fmt.Errorf("unexpected query: %s", sql)
	}
}

func (s *stubDB) QueryRow(_ context.Context, sql string, _ ...any) database.Row {
	if strings.Contains(sql, "COUNT(*)") {
		return &stubRow{vals: []any{int64(42)}}
	}
	return &stubRow{vals: []any{"8.0.36"}}
}

type stubRows struct {
	cols []string
	data [][]any
	idx  int
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
		if err := assignVal(d, row[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *stubRows) Columns() ([]string, error) { return r.cols, nil }
func (r *stubRows) Close()                     {}
func (r *stubRows) Err() error                 { return nil }

type stubRow struct {
	vals []any
}

func (r *stubRow) Scan(dest ...any) error {
	for i, d := range dest {
		if err := assignVal(d, r.vals[i]); err != nil {
			return err
		}
	}
	return nil
}

func assignVal(dst, v any) error {
	switch d := dst.(type) {
	case *any:
		*d = v
	case *string:
		*d = v.(string)
	case **string:
		if v == nil {
			*d = nil
		} else {
			s := v.(string)
			*d = &s
		}
	case *int:
		*d = v.(int)
	case *int64:
		*d = v.(int64)
	case *bool:
		*d = v.(bool)
	default:
		return fmt.Errorf("assignVal: unsupported destination %T", dst)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Database: config.Database{
			Host: "127.0.0.1", Port: 3306,
			User: "mautic", Password: "secret", Name: "mautic",
		},
	}
}

func quietLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard})
}

// Whatever stage a run aborts at, every resource opened so far is released
// exactly once and resources never opened are never closed.
func TestRunWith_ReleasesResourcesExactlyOnce(t *testing.T) {
	tests := []struct {
		name             string
		transportErr     error
		dbErr            error
		emptyConstraint  bool
		failDescribe     bool
		wantErr          bool
		wantErrCheck     func(error) bool
		wantTransportOps int
		wantDBOps        int
		wantPrompt       bool
	}{
		{
			name:             "transport open failure",
			transportErr:     errs.New(errs.ErrKindTransportFailed, "ssh dial refused"),
			wantErr:          true,
			wantErrCheck:     errs.IsTransportFailed,
			wantTransportOps: 0,
			wantDBOps:        0,
		},
		{
			name:             "database open failure closes the tunnel",
			dbErr:            errs.New(errs.ErrKindConnectionFailed, "access denied"),
			wantErr:          true,
			wantErrCheck:     errs.IsConnectionFailed,
			wantTransportOps: 1,
			wantDBOps:        0,
		},
		{
			name:             "unknown constraint closes both",
			emptyConstraint:  true,
			wantErr:          true,
			wantErrCheck:     errs.IsConstraintNotFound,
			wantTransportOps: 1,
			wantDBOps:        1,
		},
		{
			name:             "fact fetch failure closes both",
			failDescribe:     true,
			wantErr:          true,
			wantErrCheck:     errs.IsQueryFailed,
			wantTransportOps: 1,
			wantDBOps:        1,
		},
		{
			name:             "success closes both and writes the prompt",
			wantTransportOps: 1,
			wantDBOps:        1,
			wantPrompt:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransport{}
			db := &stubDB{emptyConstraint: tt.emptyConstraint, failDescribe: tt.failDescribe}

			deps := runDeps{
				extract: func(context.Context, string) (string, error) {
					return "FK_818C32519EB6921", nil
				},
				openTransport: func(*logger.Logger) (transport, error) {
					if tt.transportErr != nil {
						return nil, tt.transportErr
					}
					return tr, nil
				},
				openDB: func(_ context.Context, _ *database.Config, dialer mysql.ContextDialer) (database.DB, error) {
					require.Same(t, mysql.ContextDialer(tr), dialer, "the pool must dial through the opened transport")
					if tt.dbErr != nil {
						return nil, tt.dbErr
					}
					return db, nil
				},
			}

			var out bytes.Buffer
			err := runWith(context.Background(), testConfig(), quietLogger(), deps,
				"a foreign key constraint fails", &out)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, tt.wantErrCheck(err), "unexpected error: %v", err)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantTransportOps, tr.closes, "transport close count")
			assert.Equal(t, tt.wantDBOps, db.closes, "pool close count")

			if tt.wantPrompt {
				assert.Contains(t, out.String(), "=== ROW COUNTS ===")
				assert.Contains(t, out.String(), `"constraint_name": "FK_818C32519EB6921"`)
			} else {
				assert.Empty(t, out.String(), "nothing reaches the output on failure")
			}
		})
	}
}

// An extraction failure happens before any resource exists, so nothing may
// be opened or closed.
func TestRunWith_ExtractionFailureOpensNothing(t *testing.T) {
	tr := &fakeTransport{}
	opened := false

	deps := runDeps{
		extract: func(context.Context, string) (string, error) {
			return "", errs.New(errs.ErrKindQueryFailed, "model unavailable")
		},
		openTransport: func(*logger.Logger) (transport, error) {
			opened = true
			return tr, nil
		},
		openDB: func(context.Context, *database.Config, mysql.ContextDialer) (database.DB, error) {
			t.Fatal("pool must not open after a failed extraction")
			return nil, nil
		},
	}

	var out bytes.Buffer
	err := runWith(context.Background(), testConfig(), quietLogger(), deps, "whatever", &out)
	require.Error(t, err)
	assert.False(t, opened, "transport must not open after a failed extraction")
	assert.Zero(t, tr.closes)
}
