package provider

import (
	"fmt"
	"reflect"
)

// FilterOperator is one of the fixed comparison operators a RowFilter may use.
type FilterOperator string

const (
	OpEqual          FilterOperator = "="
	OpNotEqual       FilterOperator = "!="
	OpGreater        FilterOperator = ">"
	OpGreaterOrEqual FilterOperator = ">="
	OpLess           FilterOperator = "<"
	OpLessOrEqual    FilterOperator = "<="
	OpLike           FilterOperator = "LIKE"
	OpILike          FilterOperator = "ILIKE"
	OpIn             FilterOperator = "IN"
	OpNotIn          FilterOperator = "NOT IN"
	OpIsNull         FilterOperator = "IS NULL"
	OpIsNotNull      FilterOperator = "IS NOT NULL"
)

// knownOperators is the closed operator set builders accept.
var knownOperators = map[FilterOperator]bool{
	OpEqual: true, OpNotEqual: true,
	OpGreater: true, OpGreaterOrEqual: true,
	OpLess: true, OpLessOrEqual: true,
	OpLike: true, OpILike: true,
	OpIn: true, OpNotIn: true,
	OpIsNull: true, OpIsNotNull: true,
}

// IsUnary reports whether the operator takes no value (NULL checks).
func (op FilterOperator) IsUnary() bool {
	return op == OpIsNull || op == OpIsNotNull
}

// IsSetOperator reports whether the operator expands a list value into
// multiple placeholders.
func (op FilterOperator) IsSetOperator() bool {
	return op == OpIn || op == OpNotIn
}

// RowFilter is one (column, operator, value) predicate. Filters combine with
// AND. Value is ignored for unary operators and must be a non-empty slice for
// set operators.
type RowFilter struct {
	Column   string         `json:"column"`
	Operator FilterOperator `json:"operator"`
	Value    interface{}    `json:"value,omitempty"`
}

// SortKey orders query results by one column.
type SortKey struct {
	Column     string `json:"column"`
	Descending bool   `json:"descending,omitempty"`
}

// RowQueryOptions shapes a row selection request.
type RowQueryOptions struct {
	Schema  string      `json:"schema,omitempty"`
	Table   string      `json:"table"`
	Columns []string    `json:"columns,omitempty"` // empty selects all columns
	Where   []RowFilter `json:"where,omitempty"`
	OrderBy []SortKey   `json:"orderBy,omitempty"`
	Limit   int         `json:"limit,omitempty"`
	Offset  int         `json:"offset,omitempty"`
}

// RowInsertOptions shapes a single-row insert request.
type RowInsertOptions struct {
	Schema string                 `json:"schema,omitempty"`
	Table  string                 `json:"table"`
	Data   map[string]interface{} `json:"data"`
}

// RowUpdateOptions shapes an update request. Where must be non-empty.
type RowUpdateOptions struct {
	Schema string                 `json:"schema,omitempty"`
	Table  string                 `json:"table"`
	Set    map[string]interface{} `json:"set"`
	Where  []RowFilter            `json:"where"`
}

// RowDeleteOptions shapes a delete request. Where must be non-empty.
type RowDeleteOptions struct {
	Schema string      `json:"schema,omitempty"`
	Table  string      `json:"table"`
	Where  []RowFilter `json:"where"`
}

// RowSet is the fully-materialized result of a row operation.
type RowSet struct {
	Columns  []string                 `json:"columns"`
	Rows     []map[string]interface{} `json:"rows"`
	RowCount int64                    `json:"rowCount"`
}

// SliceValues extracts the elements of a slice or array value in declared
// order, reporting false for any other kind. Set-operator filters use this to
// expand one placeholder per element.
func SliceValues(value interface{}) ([]interface{}, bool) {
	if vals, ok := value.([]interface{}); ok {
		return vals, true
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// ValidateFilters rejects filters outside the fixed operator set and set
// filters without a non-empty list value. This runs before any SQL is built.
func ValidateFilters(filters []RowFilter) error {
	for _, f := range filters {
		if f.Column == "" {
			return NewProviderError(CodeValidationError, "filter column cannot be empty")
		}
		if !knownOperators[f.Operator] {
			return NewProviderError(CodeValidationError,
				fmt.Sprintf("unknown filter operator %q on column %q", f.Operator, f.Column))
		}
		if f.Operator.IsSetOperator() {
			vals, ok := SliceValues(f.Value)
			if !ok || len(vals) == 0 {
				return NewProviderError(CodeValidationError,
					fmt.Sprintf("%s filter on column %q requires a non-empty list value", f.Operator, f.Column))
			}
		}
	}
	return nil
}

// RequireWhere enforces the hard safety invariant on destructive operations:
// an update or delete without filters is rejected before any query execution.
func RequireWhere(filters []RowFilter, operation string) error {
	if len(filters) == 0 {
		return &ProviderError{
			Code:    CodeValidationError,
			Message: fmt.Sprintf("refusing unconditional %s: at least one WHERE filter is required", operation),
			Cause:   ErrEmptyWhere,
		}
	}
	return ValidateFilters(filters)
}
