package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/dbglass/dbglass/provider"
)

// ListDatabases enumerates the attached databases, sized by their backing
// files where one exists.
func (p *Provider) ListDatabases(ctx context.Context) *provider.Envelope[[]provider.DatabaseInfo] {
	return runMeta(ctx, p, func(ctx context.Context) ([]provider.DatabaseInfo, error) {
		attached, err := p.databaseList(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]provider.DatabaseInfo, 0, len(attached))
		for _, a := range attached {
			db := provider.DatabaseInfo{Name: a.name}
			if a.file != "" {
				if st, err := os.Stat(a.file); err == nil {
					db.SizeBytes = st.Size()
				}
			}
			out = append(out, db)
		}
		return out, nil
	})
}

// ListSchemas enumerates the attached databases as schemas; main is the
// default.
func (p *Provider) ListSchemas(ctx context.Context) *provider.Envelope[[]provider.SchemaInfo] {
	return runMeta(ctx, p, func(ctx context.Context) ([]provider.SchemaInfo, error) {
		attached, err := p.databaseList(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]provider.SchemaInfo, 0, len(attached))
		for _, a := range attached {
			out = append(out, provider.SchemaInfo{Name: a.name, Default: a.name == "main"})
		}
		return out, nil
	})
}

type attachedDB struct {
	name string
	file string
}

func (p *Provider) databaseList(ctx context.Context) ([]attachedDB, error) {
	rows, err := p.db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	var out []attachedDB
	for rows.Next() {
		var (
			seq  int
			a    attachedDB
			file sql.NullString
		)
		if err := rows.Scan(&seq, &a.name, &file); err != nil {
			return nil, classifyError(err)
		}
		a.file = file.String
		out = append(out, a)
	}
	return out, classifyError(rows.Err())
}

// ListTables enumerates tables and views in one attached database, excluding
// the sqlite_ internal tables.
func (p *Provider) ListTables(ctx context.Context, schema string) *provider.Envelope[[]provider.TableInfo] {
	return runMeta(ctx, p, func(ctx context.Context) ([]provider.TableInfo, error) {
		return p.listTables(ctx, schema)
	})
}

func (p *Provider) listTables(ctx context.Context, schema string) ([]provider.TableInfo, error) {
	if schema == "" {
		schema = "main"
	}
	query := fmt.Sprintf(`
		SELECT name, type FROM %s.sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%%'
		ORDER BY name`, quoteIdentifier(schema))

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	var out []provider.TableInfo
	for rows.Next() {
		var t provider.TableInfo
		var kind string
		if err := rows.Scan(&t.Name, &kind); err != nil {
			return nil, classifyError(err)
		}
		t.Schema = schema
		if kind == "view" {
			t.Type = provider.TableTypeView
		} else {
			t.Type = provider.TableTypeTable
		}
		out = append(out, t)
	}
	return out, classifyError(rows.Err())
}

// Columns describes the columns of one table, with primary- and foreign-key
// membership resolved from the table PRAGMAs.
func (p *Provider) Columns(ctx context.Context, schema, table string) *provider.Envelope[[]provider.ColumnInfo] {
	return runMeta(ctx, p, func(ctx context.Context) ([]provider.ColumnInfo, error) {
		return p.listColumns(ctx, schema, table)
	})
}

// tableInfoRow is one PRAGMA table_info result row. pkOrder is 1-based
// position within the primary key, zero for non-key columns.
type tableInfoRow struct {
	cid          int
	name         string
	dataType     string
	notNull      bool
	defaultValue sql.NullString
	pkOrder      int
}

func (p *Provider) tableInfo(ctx context.Context, schema, table string) ([]tableInfoRow, error) {
	query := fmt.Sprintf("PRAGMA %s.table_info(%s)", quoteIdentifier(schema), quoteIdentifier(table))
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	var out []tableInfoRow
	for rows.Next() {
		var r tableInfoRow
		if err := rows.Scan(&r.cid, &r.name, &r.dataType, &r.notNull, &r.defaultValue, &r.pkOrder); err != nil {
			return nil, classifyError(err)
		}
		out = append(out, r)
	}
	return out, classifyError(rows.Err())
}

func (p *Provider) listColumns(ctx context.Context, schema, table string) ([]provider.ColumnInfo, error) {
	if schema == "" {
		schema = "main"
	}
	info, err := p.tableInfo(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	fks, err := p.foreignKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	fkCols := map[string]bool{}
	for _, fk := range fks {
		for _, col := range fk.Columns {
			fkCols[col] = true
		}
	}

	out := make([]provider.ColumnInfo, 0, len(info))
	for _, r := range info {
		col := provider.ColumnInfo{
			Name:            r.name,
			DataType:        r.dataType,
			IsNullable:      !r.notNull,
			IsPrimaryKey:    r.pkOrder > 0,
			IsForeignKey:    fkCols[r.name],
			OrdinalPosition: r.cid + 1,
		}
		if r.defaultValue.Valid {
			v := r.defaultValue.String
			col.Default = &v
		}
		out = append(out, col)
	}
	return out, nil
}

// Indexes describes the indexes of one table, with column order preserved
// from the per-index PRAGMA.
func (p *Provider) Indexes(ctx context.Context, schema, table string) *provider.Envelope[[]provider.IndexInfo] {
	return runMeta(ctx, p, func(ctx context.Context) ([]provider.IndexInfo, error) {
		return p.listIndexes(ctx, schema, table)
	})
}

// indexListRow is one PRAGMA index_list result row. Origin is c for CREATE
// INDEX, u for a UNIQUE constraint, pk for the primary key.
type indexListRow struct {
	name   string
	unique bool
	origin string
}

func (p *Provider) indexList(ctx context.Context, schema, table string) ([]indexListRow, error) {
	query := fmt.Sprintf("PRAGMA %s.index_list(%s)", quoteIdentifier(schema), quoteIdentifier(table))
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	var out []indexListRow
	for rows.Next() {
		var (
			seq     int
			r       indexListRow
			partial bool
		)
		if err := rows.Scan(&seq, &r.name, &r.unique, &r.origin, &partial); err != nil {
			return nil, classifyError(err)
		}
		out = append(out, r)
	}
	return out, classifyError(rows.Err())
}

func (p *Provider) indexColumns(ctx context.Context, schema, index string) ([]string, error) {
	query := fmt.Sprintf("PRAGMA %s.index_info(%s)", quoteIdentifier(schema), quoteIdentifier(index))
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	type entry struct {
		seqno int
		name  string
	}
	var entries []entry
	for rows.Next() {
		var (
			e   entry
			cid int
			col sql.NullString
		)
		if err := rows.Scan(&e.seqno, &cid, &col); err != nil {
			return nil, classifyError(err)
		}
		e.name = col.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].seqno < entries[j].seqno })
	cols := make([]string, len(entries))
	for i, e := range entries {
		cols[i] = e.name
	}
	return cols, nil
}

// indexDefinitions maps index names to their CREATE INDEX text from
// sqlite_master. Auto-indexes backing constraints have no stored SQL and are
// absent from the map.
func (p *Provider) indexDefinitions(ctx context.Context, schema, table string) (map[string]string, error) {
	query := fmt.Sprintf(`
		SELECT name, sql FROM %s.sqlite_master
		WHERE type = 'index' AND tbl_name = ?`, quoteIdentifier(schema))

	rows, err := p.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	defs := map[string]string{}
	for rows.Next() {
		var (
			name    string
			sqlText sql.NullString
		)
		if err := rows.Scan(&name, &sqlText); err != nil {
			return nil, classifyError(err)
		}
		if sqlText.Valid {
			defs[name] = sqlText.String
		}
	}
	return defs, classifyError(rows.Err())
}

func (p *Provider) listIndexes(ctx context.Context, schema, table string) ([]provider.IndexInfo, error) {
	if schema == "" {
		schema = "main"
	}
	list, err := p.indexList(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	defs, err := p.indexDefinitions(ctx, schema, table)
	if err != nil {
		return nil, err
	}

	out := make([]provider.IndexInfo, 0, len(list))
	for _, r := range list {
		cols, err := p.indexColumns(ctx, schema, r.name)
		if err != nil {
			return nil, err
		}
		out = append(out, provider.IndexInfo{
			Name:       r.name,
			Table:      table,
			Columns:    cols,
			IsUnique:   r.unique,
			IsPrimary:  r.origin == "pk",
			Definition: defs[r.name],
		})
	}
	return out, nil
}

// foreignKey is one grouped PRAGMA foreign_key_list constraint.
type foreignKey struct {
	ID                int
	Table             string
	Columns           []string
	ReferencedColumns []string
	OnUpdate          string
	OnDelete          string
}

func (p *Provider) foreignKeys(ctx context.Context, schema, table string) ([]foreignKey, error) {
	query := fmt.Sprintf("PRAGMA %s.foreign_key_list(%s)", quoteIdentifier(schema), quoteIdentifier(table))
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classifyError(err)
	}
	defer rows.Close()

	type entry struct {
		id, seq            int
		table, from        string
		to                 sql.NullString
		onUpdate, onDelete string
	}
	var entries []entry
	for rows.Next() {
		var (
			e     entry
			match string
		)
		if err := rows.Scan(&e.id, &e.seq, &e.table, &e.from, &e.to, &e.onUpdate, &e.onDelete, &match); err != nil {
			return nil, classifyError(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err)
	}

	// Rows arrive one per column; group by constraint id in column order.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].id != entries[j].id {
			return entries[i].id < entries[j].id
		}
		return entries[i].seq < entries[j].seq
	})

	var out []foreignKey
	for _, e := range entries {
		if len(out) == 0 || out[len(out)-1].ID != e.id {
			out = append(out, foreignKey{
				ID:       e.id,
				Table:    e.table,
				OnUpdate: e.onUpdate,
				OnDelete: e.onDelete,
			})
		}
		fk := &out[len(out)-1]
		fk.Columns = append(fk.Columns, e.from)
		fk.ReferencedColumns = append(fk.ReferencedColumns, e.to.String)
	}
	return out, nil
}

// Constraints synthesizes the constraint projection from the table PRAGMAs:
// the primary key from table_info ordinals, UNIQUE constraints from unique
// non-key indexes, and foreign keys from foreign_key_list.
func (p *Provider) Constraints(ctx context.Context, schema, table string) *provider.Envelope[[]provider.ConstraintInfo] {
	return runMeta(ctx, p, func(ctx context.Context) ([]provider.ConstraintInfo, error) {
		return p.listConstraints(ctx, schema, table)
	})
}

func (p *Provider) listConstraints(ctx context.Context, schema, table string) ([]provider.ConstraintInfo, error) {
	if schema == "" {
		schema = "main"
	}

	var out []provider.ConstraintInfo

	info, err := p.tableInfo(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	var pkCols []tableInfoRow
	for _, r := range info {
		if r.pkOrder > 0 {
			pkCols = append(pkCols, r)
		}
	}
	if len(pkCols) > 0 {
		sort.Slice(pkCols, func(i, j int) bool { return pkCols[i].pkOrder < pkCols[j].pkOrder })
		cols := make([]string, len(pkCols))
		for i, r := range pkCols {
			cols[i] = r.name
		}
		out = append(out, provider.ConstraintInfo{
			Name:    fmt.Sprintf("pk_%s", table),
			Type:    provider.ConstraintPrimaryKey,
			Columns: cols,
		})
	}

	indexes, err := p.indexList(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	for _, idx := range indexes {
		if !idx.unique || idx.origin != "u" {
			continue
		}
		cols, err := p.indexColumns(ctx, schema, idx.name)
		if err != nil {
			return nil, err
		}
		out = append(out, provider.ConstraintInfo{
			Name:    idx.name,
			Type:    provider.ConstraintUnique,
			Columns: cols,
		})
	}

	fks, err := p.foreignKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	for _, fk := range fks {
		out = append(out, provider.ConstraintInfo{
			Name:              fmt.Sprintf("fk_%s_%d", table, fk.ID),
			Type:              provider.ConstraintForeignKey,
			Columns:           fk.Columns,
			ReferencedTable:   fk.Table,
			ReferencedColumns: fk.ReferencedColumns,
			UpdateRule:        fk.OnUpdate,
			DeleteRule:        fk.OnDelete,
		})
	}

	return out, nil
}

// TableStructure fans out the three per-table introspections concurrently
// and joins the results. The single pooled connection serializes the actual
// queries, but the fan-out keeps the shape uniform across engines.
func (p *Provider) TableStructure(ctx context.Context, schema, table string) *provider.Envelope[provider.TableStructure] {
	return provider.Run(ctx, string(p.Type()), providerVersion,
		func(ctx context.Context) (provider.TableStructure, error) {
			if err := p.requireConnected(); err != nil {
				return provider.TableStructure{}, err
			}
			if schema == "" {
				schema = "main"
			}

			structure := provider.TableStructure{Table: table, Schema: schema}
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				cols, err := p.listColumns(gctx, schema, table)
				structure.Columns = cols
				return err
			})
			g.Go(func() error {
				idxs, err := p.listIndexes(gctx, schema, table)
				structure.Indexes = idxs
				return err
			})
			g.Go(func() error {
				cons, err := p.listConstraints(gctx, schema, table)
				structure.Constraints = cons
				return err
			})
			if err := g.Wait(); err != nil {
				return provider.TableStructure{}, err
			}
			return structure, nil
		})
}

// runMeta is the envelope boundary for metadata operations.
func runMeta[T any](ctx context.Context, p *Provider, fn func(ctx context.Context) ([]T, error)) *provider.Envelope[[]T] {
	return provider.Run(ctx, string(p.Type()), providerVersion,
		func(ctx context.Context) ([]T, error) {
			if err := p.requireConnected(); err != nil {
				return nil, err
			}
			out, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = []T{}
			}
			return out, nil
		})
}
