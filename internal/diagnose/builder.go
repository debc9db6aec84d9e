package diagnose

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/errs"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/inspect"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/logger"
)

// Builder runs the two-phase gathering sequence: the constraint lookup must
// complete first because it names the two tables, then the remaining facts
// are independent and fetched concurrently over the pooled handle.
type Builder struct {
	inspector SchemaInspector
	log       *logger.Logger
}

// NewBuilder returns a Builder using the given inspector.
func NewBuilder(inspector SchemaInspector, log *logger.Logger) *Builder {
	return &Builder{inspector: inspector, log: log}
}

// Build gathers all facts for the named constraint and returns the
// assembled prompt text. An unknown constraint name fails with
// ErrKindConstraintNotFound before any table-scoped query is issued. Sample
// fetch failures degrade to empty sets; every other query failure aborts
// the run. Nothing is retried.
func (b *Builder) Build(ctx context.Context, errorText, constraintName string) (string, error) {
	b.log.Debugf("looking up constraint %q", constraintName)

	start := time.Now()
	descriptors, err := b.inspector.FindConstraint(ctx, constraintName)
	b.logStep("find_constraint", "", start)
	if err != nil {
		return "", err
	}
	if len(descriptors) == 0 {
		return "", errs.Newf(errs.ErrKindConstraintNotFound,
			"no foreign key named %q exists in the schema; the extracted name may be wrong", constraintName)
	}

	dc := &DiagnosticContext{
		ErrorText:        errorText,
		ConstraintName:   constraintName,
		Constraint:       descriptors,
		ReferencingTable: descriptors[0].ReferencingTable,
		ReferencedTable:  descriptors[0].ReferencedTable,
	}

	b.log.DebugWith("constraint resolved", map[string]interface{}{
		"referencing_table": dc.ReferencingTable,
		"referenced_table":  dc.ReferencedTable,
		"column_pairs":      len(descriptors),
	})

	// The remaining facts are independent of each other. Each goroutine
	// writes its own field of dc, so no synchronization beyond the group
	// wait is needed. All results are awaited before assembly.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(b.step("server_version", "", func() error {
		var err error
		dc.ServerVersion, err = b.inspector.ServerVersion(gctx)
		return err
	}))
	g.Go(b.step("describe_table", dc.ReferencingTable, func() error {
		var err error
		dc.ReferencingStructure, err = b.inspector.DescribeTable(gctx, dc.ReferencingTable)
		return err
	}))
	g.Go(b.step("describe_table", dc.ReferencedTable, func() error {
		var err error
		dc.ReferencedStructure, err = b.inspector.DescribeTable(gctx, dc.ReferencedTable)
		return err
	}))
	g.Go(b.step("count_rows", dc.ReferencingTable, func() error {
		var err error
		dc.ReferencingRowCount, err = b.inspector.CountRows(gctx, dc.ReferencingTable)
		return err
	}))
	g.Go(b.step("count_rows", dc.ReferencedTable, func() error {
		var err error
		dc.ReferencedRowCount, err = b.inspector.CountRows(gctx, dc.ReferencedTable)
		return err
	}))
	g.Go(b.step("list_indexes", dc.ReferencingTable, func() error {
		var err error
		dc.ReferencingIndexes, err = b.inspector.ListIndexes(gctx, dc.ReferencingTable)
		return err
	}))
	g.Go(b.step("list_indexes", dc.ReferencedTable, func() error {
		var err error
		dc.ReferencedIndexes, err = b.inspector.ListIndexes(gctx, dc.ReferencedTable)
		return err
	}))
	g.Go(b.step("list_foreign_keys", "", func() error {
		var err error
		dc.ForeignKeys, err = b.inspector.ListForeignKeys(gctx, dc.ReferencingTable, dc.ReferencedTable)
		return err
	}))
	g.Go(b.step("list_constraints", "", func() error {
		var err error
		dc.Constraints, err = b.inspector.ListConstraints(gctx, dc.ReferencingTable, dc.ReferencedTable)
		return err
	}))
	g.Go(b.step("sample_rows", dc.ReferencingTable, func() error {
		dc.ReferencingSamples = b.sampleRows(gctx, dc.ReferencingTable)
		return nil
	}))
	g.Go(b.step("sample_rows", dc.ReferencedTable, func() error {
		dc.ReferencedSamples = b.sampleRows(gctx, dc.ReferencedTable)
		return nil
	}))

	if err := g.Wait(); err != nil {
		return "", err
	}

	return Assemble(dc), nil
}

// step wraps one fact fetch so every inspection step emits a debug line
// with its elapsed time once it finishes.
func (b *Builder) step(name, table string, fn func() error) func() error {
	return func() error {
		start := time.Now()
		err := fn()
		b.logStep(name, table, start)
		return err
	}
}

func (b *Builder) logStep(name, table string, start time.Time) {
	fields := map[string]interface{}{
		"step":       name,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}
	if table != "" {
		fields["table"] = table
	}
	b.log.DebugWith("inspection step finished", fields)
}

// sampleRows shields the run from sample-fetch failures a second time: the
// production inspector already degrades them, but the builder must hold the
// same guarantee for any SchemaInspector implementation.
func (b *Builder) sampleRows(ctx context.Context, table string) []map[string]any {
	samples, err := b.inspector.SampleRows(ctx, table, inspect.SampleLimit)
	if err != nil {
		b.log.WarnWith("sample fetch failed, continuing without samples", err,
			map[string]interface{}{"table": table})
		return []map[string]any{}
	}
	if samples == nil {
		return []map[string]any{}
	}
	return samples
}
