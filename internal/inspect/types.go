package inspect

// ConstraintDescriptor holds the catalog facts for one column pair of a
// foreign key. A composite key yields one descriptor per column pair, all
// sharing the constraint name. Immutable once fetched.
//
// The JSON tags define the serialization in the assembled prompt; the
// remediation model sees these exact keys.
type ConstraintDescriptor struct {
	ConstraintName string `json:"constraint_name"`
	ConstraintType string `json:"constraint_type"`
	SchemaName     string `json:"schema_name"`

	ReferencingTable  string `json:"referencing_table"`
	ReferencingColumn string `json:"referencing_column"`
	ReferencedTable   string `json:"referenced_table"`
	ReferencedColumn  string `json:"referenced_column"`

	ReferencingColumnType string  `json:"referencing_column_type"`
	ReferencingCharset    *string `json:"referencing_charset"`
	ReferencingCollation  *string `json:"referencing_collation"`
	ReferencingNullable   string  `json:"referencing_nullable"`
	ReferencingKey        string  `json:"referencing_key"`
	ReferencingDefault    *string `json:"referencing_default"`
	ReferencingExtra      string  `json:"referencing_extra"`

	ReferencedColumnType string  `json:"referenced_column_type"`
	ReferencedCharset    *string `json:"referenced_charset"`
	ReferencedCollation  *string `json:"referenced_collation"`
	ReferencedNullable   string  `json:"referenced_nullable"`
	ReferencedKey        string  `json:"referenced_key"`
	ReferencedDefault    *string `json:"referenced_default"`
	ReferencedExtra      string  `json:"referenced_extra"`
}

// Column is one column descriptor in the shape DESCRIBE returns.
type Column struct {
	Field   string  `json:"field"`
	Type    string  `json:"type"`
	Null    string  `json:"null"`
	Key     string  `json:"key"`
	Default *string `json:"default"`
	Extra   string  `json:"extra"`
}

// TableStructure is the ordered column list of one table.
type TableStructure struct {
	Table   string   `json:"table"`
	Columns []Column `json:"columns"`
}

// Index is one index row of a table. Multi-column indexes yield one row per
// column, ordered by SeqInIndex.
type Index struct {
	Name       string `json:"index_name"`
	Column     string `json:"column_name"`
	SeqInIndex int    `json:"seq_in_index"`
	Unique     bool   `json:"unique"`
}

// ForeignKeyRef is one column pair of any foreign key owned by one of the
// two tables under inspection — not just the failing one. These reveal
// related constraints that may need dropping before an ALTER.
type ForeignKeyRef struct {
	ConstraintName   string `json:"constraint_name"`
	Table            string `json:"table_name"`
	Column           string `json:"column_name"`
	ReferencedTable  string `json:"referenced_table_name"`
	ReferencedColumn string `json:"referenced_column_name"`
}

// TableConstraint is one row from the constraints catalog (PRIMARY KEY,
// UNIQUE, FOREIGN KEY) scoped to the two tables under inspection.
type TableConstraint struct {
	ConstraintName string `json:"constraint_name"`
	ConstraintType string `json:"constraint_type"`
	Table          string `json:"table_name"`
}
