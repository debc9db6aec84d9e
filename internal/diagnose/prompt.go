package diagnose

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/inspect"
)

// MauticVersion is the Mautic release line this tool's catalog assumptions
// were written against. It is emitted into the prompt so the remediation
// model knows which schema generation it is looking at.
const MauticVersion = "4.4.10"

// The closing instruction block. The template is fixed: no branching
// depends on the gathered facts beyond their presence.
const remediationInstructions = `Based on all the information above, provide SQL statements to fix the foreign key constraint failure. Follow these instructions:

1. Compare the data types of the referencing and referenced columns (type, display width, signedness) and point out any mismatch.
2. Check the character sets and collations of both columns and both tables; mismatches there break foreign keys on string columns.
3. If the constraint must be dropped and recreated, provide the exact DROP FOREIGN KEY and ADD CONSTRAINT statements, including appropriate ON DELETE and ON UPDATE actions.
4. When a column must be altered, order the statements so every dependent foreign key is dropped before the ALTER and recreated after it.
5. Handle recursive references: either table may contain foreign keys pointing at itself.
6. Preserve data integrity: never propose statements that discard, truncate, or orphan existing rows.
7. When several tables are involved, order the statements so each one executes without violating another table's constraints.
8. If the constraint information above contains multiple column pairs, the key is composite: keep all pairs consistent in every statement.
9. Review the full foreign key and constraint lists above for related constraints that must be dropped first and restored afterwards.
10. Never drop or modify a PRIMARY KEY.

These statements are assumed to run against a staging environment with a verified backup in place. Review every statement before executing it against production data.`

// Assemble renders the diagnostic context into the final prompt artifact.
// It is a pure function over the context: same facts, same text. All JSON
// blocks are pretty-printed because the artifact is read and pasted by a
// human operator.
func Assemble(dc *DiagnosticContext) string {
	var sb strings.Builder

	sb.WriteString("A Mautic schema migration failed with the following error:\n\n")
	sb.WriteString(dc.ErrorText)
	sb.WriteString("\n\n")

	section(&sb, fmt.Sprintf("CONSTRAINT INFORMATION (%s)", dc.ConstraintName), dc.Constraint)
	section(&sb, fmt.Sprintf("STRUCTURE OF %s (referencing table)", dc.ReferencingTable), dc.ReferencingStructure)
	section(&sb, fmt.Sprintf("STRUCTURE OF %s (referenced table)", dc.ReferencedTable), dc.ReferencedStructure)
	section(&sb, "ALL FOREIGN KEYS ON BOTH TABLES", dc.ForeignKeys)
	section(&sb, "ALL CONSTRAINTS ON BOTH TABLES", dc.Constraints)
	section(&sb, fmt.Sprintf("SAMPLE DATA FROM %s", dc.ReferencingTable), dc.ReferencingSamples)
	section(&sb, fmt.Sprintf("SAMPLE DATA FROM %s", dc.ReferencedTable), dc.ReferencedSamples)

	sb.WriteString("=== ROW COUNTS ===\n")
	fmt.Fprintf(&sb, "%s: %d rows\n", dc.ReferencingTable, dc.ReferencingRowCount)
	fmt.Fprintf(&sb, "%s: %d rows\n\n", dc.ReferencedTable, dc.ReferencedRowCount)

	sb.WriteString("=== INDEXES ===\n")
	writeIndexes(&sb, dc.ReferencingTable, dc.ReferencingIndexes)
	writeIndexes(&sb, dc.ReferencedTable, dc.ReferencedIndexes)
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "MySQL server version: %s\n", dc.ServerVersion)
	fmt.Fprintf(&sb, "Mautic version: %s\n\n", MauticVersion)

	sb.WriteString(remediationInstructions)
	sb.WriteString("\n")

	return sb.String()
}

// section writes one titled, pretty-printed JSON block. Absent values
// render as empty JSON rather than being omitted: the template's section
// order is fixed.
func section(sb *strings.Builder, title string, v any) {
	fmt.Fprintf(sb, "=== %s ===\n", title)
	sb.WriteString(toJSON(v))
	sb.WriteString("\n\n")
}

func toJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		// Everything fed in is built from plain structs, maps, and strings;
		// a marshal failure would be a programming error. Render it rather
		// than dropping the section.
		return fmt.Sprintf("(unserializable: %v)", err)
	}
	return string(data)
}

func writeIndexes(sb *strings.Builder, table string, indexes []inspect.Index) {
	if len(indexes) == 0 {
		fmt.Fprintf(sb, "%s: (none)\n", table)
		return
	}
	for _, idx := range indexes {
		uniqueness := "non-unique"
		if idx.Unique {
			uniqueness = "unique"
		}
		fmt.Fprintf(sb, "%s: %s (%s, seq %d) %s\n", table, idx.Name, idx.Column, idx.SeqInIndex, uniqueness)
	}
}
