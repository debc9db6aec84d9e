// Package inspect issues the fixed battery of read-only catalog queries
// behind a foreign-key diagnosis: constraint lookup, table structure, row
// counts, indexes, related foreign keys and constraints, and a bounded
// sample of application rows.
//
// Table and constraint names flowing into these queries originate from
// model output or from rows a previous query returned, so every value
// interpolated into SQL text goes through sqlescape first; the remaining
// operations use bound parameters instead. Each dynamic value is neutralized
// by exactly one of the two mechanisms.
package inspect

import (
	"context"
	"fmt"
	"time"

	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/database"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/logger"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/sqlescape"
)

// SampleLimit bounds the number of raw rows fetched per table. Sample data
// is supplementary context for the remediation model, never exhaustive.
const SampleLimit = 5

// Inspector runs the catalog queries against one schema through the shared
// query-execution handle. It holds no state beyond its dependencies and is
// safe for concurrent use.
type Inspector struct {
	db           database.DB
	schema       string
	log          *logger.Logger
	queryTimeout time.Duration
}

// New returns an Inspector scoped to the given schema (the MySQL database
// name). No per-query deadline is applied unless WithQueryTimeout is called.
func New(db database.DB, schema string, log *logger.Logger) *Inspector {
	return &Inspector{db: db, schema: schema, log: log}
}

// WithQueryTimeout sets the deadline applied to each individual catalog
// query and returns the Inspector for chaining.
func (i *Inspector) WithQueryTimeout(d time.Duration) *Inspector {
	i.queryTimeout = d
	return i
}

// opCtx derives the per-query context. The cancel func must be deferred
// inside the operation so rows are fully consumed before the deadline is
// released.
func (i *Inspector) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if i.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, i.queryTimeout)
}

// FindConstraint returns every catalog row describing the named foreign
// key. Composite keys yield multiple rows sharing the constraint name; an
// unknown name yields zero rows and no error — the caller decides whether
// that is fatal.
//
// The schema and constraint name are spliced into the statement as escaped
// literals: the name comes from a language model and is untrusted.
func (i *Inspector) FindConstraint(ctx context.Context, constraintName string) ([]ConstraintDescriptor, error) {
	ctx, cancel := i.opCtx(ctx)
	defer cancel()

	q := fmt.Sprintf(`
		SELECT
			kcu.CONSTRAINT_NAME,
			tc.CONSTRAINT_TYPE,
			kcu.TABLE_SCHEMA,
			kcu.TABLE_NAME,
			kcu.COLUMN_NAME,
			kcu.REFERENCED_TABLE_NAME,
			kcu.REFERENCED_COLUMN_NAME,
			rc.COLUMN_TYPE,
			rc.CHARACTER_SET_NAME,
			rc.COLLATION_NAME,
			rc.IS_NULLABLE,
			rc.COLUMN_KEY,
			rc.COLUMN_DEFAULT,
			rc.EXTRA,
			fc.COLUMN_TYPE,
			fc.CHARACTER_SET_NAME,
			fc.COLLATION_NAME,
			fc.IS_NULLABLE,
			fc.COLUMN_KEY,
			fc.COLUMN_DEFAULT,
			fc.EXTRA
		FROM information_schema.KEY_COLUMN_USAGE kcu
		JOIN information_schema.TABLE_CONSTRAINTS tc
			ON  tc.CONSTRAINT_SCHEMA = kcu.TABLE_SCHEMA
			AND tc.CONSTRAINT_NAME   = kcu.CONSTRAINT_NAME
			AND tc.TABLE_NAME        = kcu.TABLE_NAME
		JOIN information_schema.COLUMNS rc
			ON  rc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
			AND rc.TABLE_NAME   = kcu.TABLE_NAME
			AND rc.COLUMN_NAME  = kcu.COLUMN_NAME
		JOIN information_schema.COLUMNS fc
			ON  fc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
			AND fc.TABLE_NAME   = kcu.REFERENCED_TABLE_NAME
			AND fc.COLUMN_NAME  = kcu.REFERENCED_COLUMN_NAME
		WHERE tc.CONSTRAINT_TYPE  = 'FOREIGN KEY'
		  AND kcu.TABLE_SCHEMA    = %s
		  AND kcu.CONSTRAINT_NAME = %s
		ORDER BY kcu.ORDINAL_POSITION`,
		sqlescape.Literal(i.schema),
		sqlescape.Literal(constraintName),
	)

	rows, err := i.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find constraint %q: %w", constraintName, err)
	}
	defer rows.Close()

	var descriptors []ConstraintDescriptor
	for rows.Next() {
		var d ConstraintDescriptor
		if err := rows.Scan(
			&d.ConstraintName,
			&d.ConstraintType,
			&d.SchemaName,
			&d.ReferencingTable,
			&d.ReferencingColumn,
			&d.ReferencedTable,
			&d.ReferencedColumn,
			&d.ReferencingColumnType,
			&d.ReferencingCharset,
			&d.ReferencingCollation,
			&d.ReferencingNullable,
			&d.ReferencingKey,
			&d.ReferencingDefault,
			&d.ReferencingExtra,
			&d.ReferencedColumnType,
			&d.ReferencedCharset,
			&d.ReferencedCollation,
			&d.ReferencedNullable,
			&d.ReferencedKey,
			&d.ReferencedDefault,
			&d.ReferencedExtra,
		); err != nil {
			return nil, fmt.Errorf("scan constraint row: %w", err)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, rows.Err()
}

// DescribeTable returns the ordered column list for one table. DESCRIBE
// cannot take bound parameters, so the table name is spliced in as an
// escaped identifier.
func (i *Inspector) DescribeTable(ctx context.Context, table string) (*TableStructure, error) {
	ctx, cancel := i.opCtx(ctx)
	defer cancel()

	q := "DESCRIBE " + sqlescape.Identifier(table)

	rows, err := i.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", table, err)
	}
	defer rows.Close()

	structure := &TableStructure{Table: table}
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Field, &c.Type, &c.Null, &c.Key, &c.Default, &c.Extra); err != nil {
			return nil, fmt.Errorf("scan column of %q: %w", table, err)
		}
		structure.Columns = append(structure.Columns, c)
	}
	return structure, rows.Err()
}

// CountRows returns the exact row count of one table.
func (i *Inspector) CountRows(ctx context.Context, table string) (int64, error) {
	ctx, cancel := i.opCtx(ctx)
	defer cancel()

	q := "SELECT COUNT(*) FROM " + sqlescape.Identifier(table)

	var count int64
	if err := i.db.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows of %q: %w", table, err)
	}
	return count, nil
}

// ListIndexes returns the index rows of one table, ordered by index name
// and column sequence. This path uses bound parameters.
func (i *Inspector) ListIndexes(ctx context.Context, table string) ([]Index, error) {
	ctx, cancel := i.opCtx(ctx)
	defer cancel()

	const q = `
		SELECT INDEX_NAME,
		       COLUMN_NAME,
		       SEQ_IN_INDEX,
		       NON_UNIQUE = 0 AS is_unique
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = ?
		  AND TABLE_NAME   = ?
		ORDER BY INDEX_NAME, SEQ_IN_INDEX`

	rows, err := i.db.Query(ctx, q, i.schema, table)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %q: %w", table, err)
	}
	defer rows.Close()

	var indexes []Index
	for rows.Next() {
		var idx Index
		if err := rows.Scan(&idx.Name, &idx.Column, &idx.SeqInIndex, &idx.Unique); err != nil {
			return nil, fmt.Errorf("scan index of %q: %w", table, err)
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

// ListForeignKeys returns every foreign key whose owning table is tableA or
// tableB — the failing constraint's neighbours that may need dropping before
// an ALTER. This path uses bound parameters.
func (i *Inspector) ListForeignKeys(ctx context.Context, tableA, tableB string) ([]ForeignKeyRef, error) {
	ctx, cancel := i.opCtx(ctx)
	defer cancel()

	const q = `
		SELECT kcu.CONSTRAINT_NAME,
		       kcu.TABLE_NAME,
		       kcu.COLUMN_NAME,
		       kcu.REFERENCED_TABLE_NAME,
		       kcu.REFERENCED_COLUMN_NAME
		FROM information_schema.KEY_COLUMN_USAGE kcu
		WHERE kcu.TABLE_SCHEMA = ?
		  AND kcu.TABLE_NAME IN (?, ?)
		  AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.TABLE_NAME, kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`

	rows, err := i.db.Query(ctx, q, i.schema, tableA, tableB)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys of %q/%q: %w", tableA, tableB, err)
	}
	defer rows.Close()

	var fks []ForeignKeyRef
	for rows.Next() {
		var fk ForeignKeyRef
		if err := rows.Scan(&fk.ConstraintName, &fk.Table, &fk.Column,
			&fk.ReferencedTable, &fk.ReferencedColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// ListConstraints returns every constraint of any type owned by either
// table. The table names came back from FindConstraint — catalog metadata,
// but still spliced in as escaped literals rather than trusted raw.
func (i *Inspector) ListConstraints(ctx context.Context, tableA, tableB string) ([]TableConstraint, error) {
	ctx, cancel := i.opCtx(ctx)
	defer cancel()

	q := fmt.Sprintf(`
		SELECT CONSTRAINT_NAME,
		       CONSTRAINT_TYPE,
		       TABLE_NAME
		FROM information_schema.TABLE_CONSTRAINTS
		WHERE TABLE_SCHEMA = %s
		  AND TABLE_NAME IN (%s, %s)
		ORDER BY TABLE_NAME, CONSTRAINT_NAME`,
		sqlescape.Literal(i.schema),
		sqlescape.Literal(tableA),
		sqlescape.Literal(tableB),
	)

	rows, err := i.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list constraints of %q/%q: %w", tableA, tableB, err)
	}
	defer rows.Close()

	var constraints []TableConstraint
	for rows.Next() {
		var c TableConstraint
		if err := rows.Scan(&c.ConstraintName, &c.ConstraintType, &c.Table); err != nil {
			return nil, fmt.Errorf("scan constraint: %w", err)
		}
		constraints = append(constraints, c)
	}
	return constraints, rows.Err()
}

// SampleRows returns up to limit arbitrary rows from the table. Sample data
// is supplementary: any failure here is logged and degraded to an empty set
// so it never blocks prompt generation.
func (i *Inspector) SampleRows(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = SampleLimit
	}
	ctx, cancel := i.opCtx(ctx)
	defer cancel()

	q := fmt.Sprintf("SELECT * FROM %s LIMIT %d", sqlescape.Identifier(table), limit)

	rows, err := i.db.Query(ctx, q)
	if err != nil {
		i.log.WarnWith("sample fetch failed, continuing without samples", err,
			map[string]interface{}{"table": table})
		return []map[string]any{}, nil
	}

	samples, err := database.ScanRows(rows)
	if err != nil {
		i.log.WarnWith("sample scan failed, continuing without samples", err,
			map[string]interface{}{"table": table})
		return []map[string]any{}, nil
	}
	return samples, nil
}

// ServerVersion returns the database engine version string.
func (i *Inspector) ServerVersion(ctx context.Context) (string, error) {
	ctx, cancel := i.opCtx(ctx)
	defer cancel()

	var version string
	if err := i.db.QueryRow(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return "", fmt.Errorf("server version: %w", err)
	}
	return version, nil
}
