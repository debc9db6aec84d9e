// Package diagnose orchestrates the inspection queries behind one
// diagnostic run and assembles their results into the remediation prompt.
package diagnose

import (
	"context"

	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/inspect"
)

// SchemaInspector is the catalog-query surface the builder depends on.
// *inspect.Inspector is the production implementation; tests substitute
// doubles with call-count capture.
type SchemaInspector interface {
	FindConstraint(ctx context.Context, constraintName string) ([]inspect.ConstraintDescriptor, error)
	DescribeTable(ctx context.Context, table string) (*inspect.TableStructure, error)
	CountRows(ctx context.Context, table string) (int64, error)
	ListIndexes(ctx context.Context, table string) ([]inspect.Index, error)
	ListForeignKeys(ctx context.Context, tableA, tableB string) ([]inspect.ForeignKeyRef, error)
	ListConstraints(ctx context.Context, tableA, tableB string) ([]inspect.TableConstraint, error)
	SampleRows(ctx context.Context, table string, limit int) ([]map[string]any, error)
	ServerVersion(ctx context.Context) (string, error)
}

// DiagnosticContext aggregates every fact gathered for one run. It is built
// once, never mutated afterwards, and handed to Assemble as a whole.
type DiagnosticContext struct {
	ErrorText      string
	ConstraintName string

	Constraint []inspect.ConstraintDescriptor

	ReferencingTable string
	ReferencedTable  string

	ReferencingStructure *inspect.TableStructure
	ReferencedStructure  *inspect.TableStructure

	ReferencingRowCount int64
	ReferencedRowCount  int64

	ReferencingIndexes []inspect.Index
	ReferencedIndexes  []inspect.Index

	ForeignKeys []inspect.ForeignKeyRef
	Constraints []inspect.TableConstraint

	ReferencingSamples []map[string]any
	ReferencedSamples  []map[string]any

	ServerVersion string
}
