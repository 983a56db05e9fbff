package provider

// Engine-agnostic metadata projections. These are produced fresh on each
// introspection call; callers own any caching and staleness policy.

// DatabaseInfo describes one database reachable from a connection.
type DatabaseInfo struct {
	Name       string `json:"name"`
	Owner      string `json:"owner,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	Collation  string `json:"collation,omitempty"`
	Tablespace string `json:"tablespace,omitempty"`
	SizeBytes  int64  `json:"sizeBytes,omitempty"`
	IsTemplate bool   `json:"isTemplate,omitempty"`
}

// SchemaInfo describes one namespace within a database. For engines without
// native schemas (SQLite) this is the attached-database name.
type SchemaInfo struct {
	Name    string `json:"name"`
	Owner   string `json:"owner,omitempty"`
	Default bool   `json:"default,omitempty"`
}

// TableType classifies a relation.
type TableType string

const (
	TableTypeTable            TableType = "table"
	TableTypeView             TableType = "view"
	TableTypeMaterializedView TableType = "materialized_view"
)

// TableInfo describes one table or view.
type TableInfo struct {
	Name             string    `json:"name"`
	Schema           string    `json:"schema,omitempty"`
	Type             TableType `json:"type"`
	Owner            string    `json:"owner,omitempty"`
	RowCountEstimate int64     `json:"rowCountEstimate,omitempty"`
	SizeBytes        int64     `json:"sizeBytes,omitempty"`
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name            string  `json:"name"`
	DataType        string  `json:"dataType"`
	IsNullable      bool    `json:"isNullable"`
	Default         *string `json:"default,omitempty"`
	IsPrimaryKey    bool    `json:"isPrimaryKey,omitempty"`
	IsForeignKey    bool    `json:"isForeignKey,omitempty"`
	MaxLength       *int    `json:"maxLength,omitempty"`
	Precision       *int    `json:"precision,omitempty"`
	Scale           *int    `json:"scale,omitempty"`
	OrdinalPosition int     `json:"ordinalPosition"`
}

// IndexInfo describes one index. Columns preserve index column order, which
// is semantically required for composite indexes.
type IndexInfo struct {
	Name       string   `json:"name"`
	Table      string   `json:"table"`
	Columns    []string `json:"columns"`
	IsUnique   bool     `json:"isUnique"`
	IsPrimary  bool     `json:"isPrimary"`
	Method     string   `json:"method,omitempty"`
	Definition string   `json:"definition,omitempty"`
	SizeBytes  int64    `json:"sizeBytes,omitempty"`
}

// ConstraintType classifies a table constraint.
type ConstraintType string

const (
	ConstraintPrimaryKey ConstraintType = "PRIMARY KEY"
	ConstraintForeignKey ConstraintType = "FOREIGN KEY"
	ConstraintUnique     ConstraintType = "UNIQUE"
	ConstraintCheck      ConstraintType = "CHECK"
	ConstraintExclusion  ConstraintType = "EXCLUSION"
)

// ConstraintInfo describes one table constraint.
type ConstraintInfo struct {
	Name              string         `json:"name"`
	Type              ConstraintType `json:"type"`
	Columns           []string       `json:"columns,omitempty"`
	Definition        string         `json:"definition,omitempty"`
	ReferencedTable   string         `json:"referencedTable,omitempty"`
	ReferencedColumns []string       `json:"referencedColumns,omitempty"`
	UpdateRule        string         `json:"updateRule,omitempty"`
	DeleteRule        string         `json:"deleteRule,omitempty"`
	CheckClause       string         `json:"checkClause,omitempty"`
}

// TableStructure aggregates columns, indexes, and constraints for one table.
type TableStructure struct {
	Table       string           `json:"table"`
	Schema      string           `json:"schema,omitempty"`
	Columns     []ColumnInfo     `json:"columns"`
	Indexes     []IndexInfo      `json:"indexes"`
	Constraints []ConstraintInfo `json:"constraints"`
}
