package database

import (
	"time"

	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/errs"
)

// ScanRows reads all rows from the result set and returns them as a slice
// of maps, where each key is the column name and each value is the Go-native
// representation of the DB value.
//
// The returned slice is always non-nil (empty slice on zero rows).
// ScanRows always closes the Rows — callers do not need to call Close().
func ScanRows(rows Rows) ([]map[string]any, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read column names", err)
	}

	result := make([]map[string]any, 0)

	for rows.Next() {
		// Allocate scan targets as *any so the driver can write any type.
		dest := make([]any, len(columns))
		destPtrs := make([]any, len(columns))
		for i := range dest {
			destPtrs[i] = &dest[i]
		}

		if err := rows.Scan(destPtrs...); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to scan row", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalize(dest[i])
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "error during row iteration", err)
	}

	return result, nil
}

// normalize converts driver-native values into types that serialize
// human-readably. The MySQL driver returns text columns as []byte, which
// encoding/json would render as base64 — the assembled prompt has to stay
// readable, so byte slices become strings and timestamps RFC3339 text.
func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return v
	}
}
