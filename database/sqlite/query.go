package sqlite

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dbglass/dbglass/provider"
)

// quoteIdentifier double-quotes an identifier and escapes embedded quotes.
// Identifiers are the only part of a query ever interpolated; values always
// travel as bound parameters.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// qualifiedTable renders schema.table with both parts quoted. The schema is
// the attached-database name; empty defaults to main.
func qualifiedTable(schema, table string) string {
	if schema == "" {
		schema = "main"
	}
	return quoteIdentifier(schema) + "." + quoteIdentifier(table)
}

// whereClause renders the filters as an AND-joined WHERE clause with ?
// placeholders. SQLite has no ILIKE; it is rewritten to a LOWER comparison.
// Set operators expand to one placeholder per element. Filters must already
// be validated.
func whereClause(filters []provider.RowFilter) (string, []interface{}) {
	if len(filters) == 0 {
		return "", nil
	}

	var (
		parts []string
		args  []interface{}
	)
	for _, f := range filters {
		col := quoteIdentifier(f.Column)
		switch {
		case f.Operator.IsUnary():
			parts = append(parts, fmt.Sprintf("%s %s", col, f.Operator))
		case f.Operator.IsSetOperator():
			vals, _ := provider.SliceValues(f.Value)
			holders := strings.TrimSuffix(strings.Repeat("?, ", len(vals)), ", ")
			parts = append(parts, fmt.Sprintf("%s %s (%s)", col, f.Operator, holders))
			args = append(args, vals...)
		case f.Operator == provider.OpILike:
			parts = append(parts, fmt.Sprintf("LOWER(%s) LIKE LOWER(?)", col))
			args = append(args, f.Value)
		default:
			parts = append(parts, fmt.Sprintf("%s %s ?", col, f.Operator))
			args = append(args, f.Value)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// buildSelect renders a full SELECT statement from query options.
func buildSelect(opts provider.RowQueryOptions) (string, []interface{}) {
	var b strings.Builder

	b.WriteString("SELECT ")
	if len(opts.Columns) == 0 {
		b.WriteString("*")
	} else {
		cols := make([]string, len(opts.Columns))
		for i, c := range opts.Columns {
			cols[i] = quoteIdentifier(c)
		}
		b.WriteString(strings.Join(cols, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(qualifiedTable(opts.Schema, opts.Table))

	where, args := whereClause(opts.Where)
	b.WriteString(where)

	if len(opts.OrderBy) > 0 {
		keys := make([]string, len(opts.OrderBy))
		for i, k := range opts.OrderBy {
			dir := "ASC"
			if k.Descending {
				dir = "DESC"
			}
			keys[i] = quoteIdentifier(k.Column) + " " + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(keys, ", "))
	}
	if opts.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		// SQLite requires LIMIT before OFFSET; -1 means unlimited.
		if opts.Limit <= 0 {
			b.WriteString(" LIMIT -1")
		}
		b.WriteString(" OFFSET ?")
		args = append(args, opts.Offset)
	}

	return b.String(), args
}

// sortedKeys gives deterministic column order for map-shaped row data.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// buildInsert renders a single-row INSERT ... RETURNING * statement.
func buildInsert(opts provider.RowInsertOptions) (string, []interface{}) {
	keys := sortedKeys(opts.Data)

	cols := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		cols[i] = quoteIdentifier(k)
		args[i] = opts.Data[k]
	}
	holders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		qualifiedTable(opts.Schema, opts.Table),
		strings.Join(cols, ", "),
		holders)
	return query, args
}

// buildUpdate renders an UPDATE ... RETURNING * statement. Callers must have
// enforced the non-empty WHERE invariant already.
func buildUpdate(opts provider.RowUpdateOptions) (string, []interface{}) {
	keys := sortedKeys(opts.Set)

	sets := make([]string, len(keys))
	args := make([]interface{}, 0, len(keys)+len(opts.Where))
	for i, k := range keys {
		sets[i] = quoteIdentifier(k) + " = ?"
		args = append(args, opts.Set[k])
	}

	where, whereArgs := whereClause(opts.Where)
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s RETURNING *",
		qualifiedTable(opts.Schema, opts.Table),
		strings.Join(sets, ", "),
		where)
	return query, args
}

// buildDelete renders a DELETE statement. Callers must have enforced the
// non-empty WHERE invariant already.
func buildDelete(opts provider.RowDeleteOptions) (string, []interface{}) {
	where, args := whereClause(opts.Where)
	query := fmt.Sprintf("DELETE FROM %s%s", qualifiedTable(opts.Schema, opts.Table), where)
	return query, args
}
