package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/dbglass/dbglass/provider"
)

// ListDatabases enumerates connectable databases on the server.
func (p *Provider) ListDatabases(ctx context.Context) *provider.Envelope[[]provider.DatabaseInfo] {
	return runMeta(ctx, p, p.listDatabases)
}

func (p *Provider) listDatabases(ctx context.Context) ([]provider.DatabaseInfo, error) {
	const query = `
		SELECT d.datname,
		       pg_get_userbyid(d.datdba),
		       pg_encoding_to_char(d.encoding),
		       d.datcollate,
		       t.spcname,
		       pg_database_size(d.datname),
		       d.datistemplate
		FROM pg_database d
		JOIN pg_tablespace t ON d.dattablespace = t.oid
		WHERE d.datallowconn
		ORDER BY d.datname`

	var out []provider.DatabaseInfo
	err := p.queryRows(ctx, query, func(rows pgx.Rows) error {
		var db provider.DatabaseInfo
		if err := rows.Scan(&db.Name, &db.Owner, &db.Encoding, &db.Collation,
			&db.Tablespace, &db.SizeBytes, &db.IsTemplate); err != nil {
			return err
		}
		out = append(out, db)
		return nil
	})
	return out, err
}

// ListSchemas enumerates user-visible schemas, excluding the pg_ catalog
// namespaces and information_schema.
func (p *Provider) ListSchemas(ctx context.Context) *provider.Envelope[[]provider.SchemaInfo] {
	return runMeta(ctx, p, p.listSchemas)
}

func (p *Provider) listSchemas(ctx context.Context) ([]provider.SchemaInfo, error) {
	const query = `
		SELECT n.nspname, pg_get_userbyid(n.nspowner)
		FROM pg_namespace n
		WHERE n.nspname NOT LIKE 'pg\_%' AND n.nspname <> 'information_schema'
		ORDER BY n.nspname`

	var out []provider.SchemaInfo
	err := p.queryRows(ctx, query, func(rows pgx.Rows) error {
		var s provider.SchemaInfo
		if err := rows.Scan(&s.Name, &s.Owner); err != nil {
			return err
		}
		s.Default = s.Name == "public"
		out = append(out, s)
		return nil
	})
	return out, err
}

// ListTables enumerates tables, views, and materialized views in one schema.
func (p *Provider) ListTables(ctx context.Context, schema string) *provider.Envelope[[]provider.TableInfo] {
	return runMeta(ctx, p, func(ctx context.Context) ([]provider.TableInfo, error) {
		return p.listTables(ctx, schema)
	})
}

func (p *Provider) listTables(ctx context.Context, schema string) ([]provider.TableInfo, error) {
	if schema == "" {
		schema = "public"
	}
	const query = `
		SELECT c.relname,
		       c.relkind::text,
		       pg_get_userbyid(c.relowner),
		       GREATEST(c.reltuples::bigint, 0),
		       pg_total_relation_size(c.oid)
		FROM pg_class c
		JOIN pg_namespace n ON c.relnamespace = n.oid
		WHERE n.nspname = $1 AND c.relkind IN ('r', 'v', 'm')
		ORDER BY c.relname`

	var out []provider.TableInfo
	err := p.queryRows(ctx, query, func(rows pgx.Rows) error {
		var (
			t    provider.TableInfo
			kind string
		)
		if err := rows.Scan(&t.Name, &kind, &t.Owner, &t.RowCountEstimate, &t.SizeBytes); err != nil {
			return err
		}
		t.Schema = schema
		switch kind {
		case "v":
			t.Type = provider.TableTypeView
		case "m":
			t.Type = provider.TableTypeMaterializedView
		default:
			t.Type = provider.TableTypeTable
		}
		out = append(out, t)
		return nil
	}, schema)
	return out, err
}

// Columns describes the columns of one table, with primary- and foreign-key
// membership resolved.
func (p *Provider) Columns(ctx context.Context, schema, table string) *provider.Envelope[[]provider.ColumnInfo] {
	return runMeta(ctx, p, func(ctx context.Context) ([]provider.ColumnInfo, error) {
		return p.listColumns(ctx, schema, table)
	})
}

func (p *Provider) listColumns(ctx context.Context, schema, table string) ([]provider.ColumnInfo, error) {
	if schema == "" {
		schema = "public"
	}
	const query = `
		SELECT c.column_name,
		       c.data_type,
		       c.is_nullable = 'YES',
		       c.column_default,
		       c.character_maximum_length,
		       c.numeric_precision,
		       c.numeric_scale,
		       c.ordinal_position
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`

	var out []provider.ColumnInfo
	err := p.queryRows(ctx, query, func(rows pgx.Rows) error {
		var col provider.ColumnInfo
		if err := rows.Scan(&col.Name, &col.DataType, &col.IsNullable, &col.Default,
			&col.MaxLength, &col.Precision, &col.Scale, &col.OrdinalPosition); err != nil {
			return err
		}
		out = append(out, col)
		return nil
	}, schema, table)
	if err != nil {
		return nil, err
	}

	pk, fk, err := p.keyColumns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].IsPrimaryKey = pk[out[i].Name]
		out[i].IsForeignKey = fk[out[i].Name]
	}
	return out, nil
}

// keyColumns resolves which columns participate in the primary key and in any
// foreign key of the table.
func (p *Provider) keyColumns(ctx context.Context, schema, table string) (pk, fk map[string]bool, err error) {
	const query = `
		SELECT a.attname, con.contype::text
		FROM pg_constraint con
		JOIN pg_class t ON t.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN unnest(con.conkey) AS k(attnum) ON true
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE n.nspname = $1 AND t.relname = $2 AND con.contype IN ('p', 'f')`

	pk = map[string]bool{}
	fk = map[string]bool{}
	err = p.queryRows(ctx, query, func(rows pgx.Rows) error {
		var name, contype string
		if err := rows.Scan(&name, &contype); err != nil {
			return err
		}
		if contype == "p" {
			pk[name] = true
		} else {
			fk[name] = true
		}
		return nil
	}, schema, table)
	if err != nil {
		return nil, nil, err
	}
	return pk, fk, nil
}

// Indexes describes the indexes of one table, with column order preserved.
func (p *Provider) Indexes(ctx context.Context, schema, table string) *provider.Envelope[[]provider.IndexInfo] {
	return runMeta(ctx, p, func(ctx context.Context) ([]provider.IndexInfo, error) {
		return p.listIndexes(ctx, schema, table)
	})
}

func (p *Provider) listIndexes(ctx context.Context, schema, table string) ([]provider.IndexInfo, error) {
	if schema == "" {
		schema = "public"
	}
	const query = `
		SELECT i.relname,
		       ix.indisunique,
		       ix.indisprimary,
		       am.amname,
		       pg_get_indexdef(ix.indexrelid),
		       pg_relation_size(ix.indexrelid),
		       (SELECT array_agg(a.attname ORDER BY k.ord)
		        FROM unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
		        JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum)
		FROM pg_index ix
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_am am ON am.oid = i.relam
		WHERE n.nspname = $1 AND t.relname = $2
		ORDER BY i.relname`

	var out []provider.IndexInfo
	err := p.queryRows(ctx, query, func(rows pgx.Rows) error {
		var idx provider.IndexInfo
		if err := rows.Scan(&idx.Name, &idx.IsUnique, &idx.IsPrimary, &idx.Method,
			&idx.Definition, &idx.SizeBytes, &idx.Columns); err != nil {
			return err
		}
		idx.Table = table
		out = append(out, idx)
		return nil
	}, schema, table)
	return out, err
}

// Constraints describes the constraints of one table, including foreign-key
// references and check clauses.
func (p *Provider) Constraints(ctx context.Context, schema, table string) *provider.Envelope[[]provider.ConstraintInfo] {
	return runMeta(ctx, p, func(ctx context.Context) ([]provider.ConstraintInfo, error) {
		return p.listConstraints(ctx, schema, table)
	})
}

func (p *Provider) listConstraints(ctx context.Context, schema, table string) ([]provider.ConstraintInfo, error) {
	if schema == "" {
		schema = "public"
	}
	const query = `
		SELECT con.conname,
		       con.contype::text,
		       pg_get_constraintdef(con.oid),
		       (SELECT array_agg(a.attname ORDER BY k.ord)
		        FROM unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
		        JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum),
		       COALESCE(rt.relname, ''),
		       (SELECT array_agg(a.attname ORDER BY k.ord)
		        FROM unnest(con.confkey) WITH ORDINALITY AS k(attnum, ord)
		        JOIN pg_attribute a ON a.attrelid = con.confrelid AND a.attnum = k.attnum),
		       con.confupdtype::text,
		       con.confdeltype::text
		FROM pg_constraint con
		JOIN pg_class t ON t.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = t.relnamespace
		LEFT JOIN pg_class rt ON rt.oid = con.confrelid
		WHERE n.nspname = $1 AND t.relname = $2
		ORDER BY con.conname`

	var out []provider.ConstraintInfo
	err := p.queryRows(ctx, query, func(rows pgx.Rows) error {
		var (
			c                provider.ConstraintInfo
			contype          string
			updRule, delRule string
		)
		if err := rows.Scan(&c.Name, &contype, &c.Definition, &c.Columns,
			&c.ReferencedTable, &c.ReferencedColumns, &updRule, &delRule); err != nil {
			return err
		}

		switch contype {
		case "p":
			c.Type = provider.ConstraintPrimaryKey
		case "f":
			c.Type = provider.ConstraintForeignKey
			c.UpdateRule = foreignKeyRule(updRule)
			c.DeleteRule = foreignKeyRule(delRule)
		case "u":
			c.Type = provider.ConstraintUnique
		case "c":
			c.Type = provider.ConstraintCheck
			c.CheckClause = checkClause(c.Definition)
		case "x":
			c.Type = provider.ConstraintExclusion
		}
		if c.Type != provider.ConstraintForeignKey {
			c.ReferencedTable = ""
			c.ReferencedColumns = nil
		}
		out = append(out, c)
		return nil
	}, schema, table)
	return out, err
}

// foreignKeyRule decodes a pg_constraint action character.
func foreignKeyRule(code string) string {
	switch code {
	case "a":
		return "NO ACTION"
	case "r":
		return "RESTRICT"
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	}
	return ""
}

// checkClause strips the CHECK (...) wrapper from a constraint definition.
func checkClause(def string) string {
	s := strings.TrimSpace(def)
	if strings.HasPrefix(s, "CHECK (") && strings.HasSuffix(s, ")") {
		return strings.TrimSuffix(strings.TrimPrefix(s, "CHECK ("), ")")
	}
	return s
}

// TableStructure fans out the three per-table introspections concurrently and
// joins the results.
func (p *Provider) TableStructure(ctx context.Context, schema, table string) *provider.Envelope[provider.TableStructure] {
	return provider.Run(ctx, string(p.Type()), providerVersion,
		func(ctx context.Context) (provider.TableStructure, error) {
			if err := p.requireConnected(); err != nil {
				return provider.TableStructure{}, err
			}
			if schema == "" {
				schema = "public"
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
