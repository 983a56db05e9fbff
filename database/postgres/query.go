package postgres

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

// qualifiedTable renders schema.table with both parts quoted. An empty schema
// defaults to public.
func qualifiedTable(schema, table string) string {
	if schema == "" {
		schema = "public"
	}
	return quoteIdentifier(schema) + "." + quoteIdentifier(table)
}

// whereClause renders the filters as an AND-joined WHERE clause using
// positional placeholders numbered from *argIndex onward. Set operators
// expand to one placeholder per element. Filters must already be validated.
func whereClause(filters []provider.RowFilter, argIndex *int) (string, []interface{}) {
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
			holders := make([]string, len(vals))
			for i, v := range vals {
				holders[i] = fmt.Sprintf("$%d", *argIndex)
				*argIndex++
				args = append(args, v)
			}
			parts = append(parts, fmt.Sprintf("%s %s (%s)", col, f.Operator, strings.Join(holders, ", ")))
		default:
			parts = append(parts, fmt.Sprintf("%s %s $%d", col, f.Operator, *argIndex))
			*argIndex++
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

	argIndex := 1
	where, args := whereClause(opts.Where, &argIndex)
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
		fmt.Fprintf(&b, " LIMIT $%d", argIndex)
		argIndex++
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET $%d", argIndex)
		argIndex++
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
	holders := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		cols[i] = quoteIdentifier(k)
		holders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = opts.Data[k]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		qualifiedTable(opts.Schema, opts.Table),
		strings.Join(cols, ", "),
		strings.Join(holders, ", "))
	return query, args
}

// buildUpdate renders an UPDATE ... RETURNING * statement. Callers must have
// enforced the non-empty WHERE invariant already.
func buildUpdate(opts provider.RowUpdateOptions) (string, []interface{}) {
	keys := sortedKeys(opts.Set)

	argIndex := 1
	sets := make([]string, len(keys))
	args := make([]interface{}, 0, len(keys)+len(opts.Where))
	for i, k := range keys {
		sets[i] = fmt.Sprintf("%s = $%d", quoteIdentifier(k), argIndex)
		argIndex++
		args = append(args, opts.Set[k])
	}

	where, whereArgs := whereClause(opts.Where, &argIndex)
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
	argIndex := 1
	where, args := whereClause(opts.Where, &argIndex)
	query := fmt.Sprintf("DELETE FROM %s%s", qualifiedTable(opts.Schema, opts.Table), where)
	return query, args
}
