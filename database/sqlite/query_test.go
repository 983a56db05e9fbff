package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbglass/dbglass/provider"
)

func TestQualifiedTable(t *testing.T) {
	assert.Equal(t, `"main"."users"`, qualifiedTable("", "users"))
	assert.Equal(t, `"aux"."events"`, qualifiedTable("aux", "events"))
}

func TestBuildSelect(t *testing.T) {
	t.Run("question-mark placeholders", func(t *testing.T) {
		query, args := buildSelect(provider.RowQueryOptions{
			Table: "users",
			Where: []provider.RowFilter{
				{Column: "age", Operator: provider.OpGreater, Value: 18},
				{Column: "name", Operator: provider.OpIsNotNull},
			},
		})
		assert.Equal(t, `SELECT * FROM "main"."users" WHERE "age" > ? AND "name" IS NOT NULL`, query)
		assert.Equal(t, []interface{}{18}, args)
	})

	t.Run("ILIKE rewrites to a LOWER comparison", func(t *testing.T) {
		query, args := buildSelect(provider.RowQueryOptions{
			Table: "users",
			Where: []provider.RowFilter{
				{Column: "name", Operator: provider.OpILike, Value: "%ada%"},
			},
		})
		assert.Equal(t, `SELECT * FROM "main"."users" WHERE LOWER("name") LIKE LOWER(?)`, query)
		assert.Equal(t, []interface{}{"%ada%"}, args)
	})

	t.Run("IN expands one placeholder per element", func(t *testing.T) {
		query, args := buildSelect(provider.RowQueryOptions{
			Table: "users",
			Where: []provider.RowFilter{
				{Column: "id", Operator: provider.OpIn, Value: []interface{}{1, 2, 3}},
			},
		})
		assert.Equal(t, `SELECT * FROM "main"."users" WHERE "id" IN (?, ?, ?)`, query)
		assert.Equal(t, []interface{}{1, 2, 3}, args)
	})

	t.Run("offset without limit gets LIMIT -1", func(t *testing.T) {
		query, args := buildSelect(provider.RowQueryOptions{Table: "users", Offset: 5})
		assert.Equal(t, `SELECT * FROM "main"."users" LIMIT -1 OFFSET ?`, query)
		assert.Equal(t, []interface{}{5}, args)
	})

	t.Run("projection, ordering, and paging", func(t *testing.T) {
		query, args := buildSelect(provider.RowQueryOptions{
			Table:   "users",
			Columns: []string{"id", "name"},
			OrderBy: []provider.SortKey{{Column: "name", Descending: true}},
			Limit:   10,
			Offset:  20,
		})
		assert.Equal(t, `SELECT "id", "name" FROM "main"."users" ORDER BY "name" DESC LIMIT ? OFFSET ?`, query)
		assert.Equal(t, []interface{}{10, 20}, args)
	})
}

func TestBuildInsert(t *testing.T) {
	query, args := buildInsert(provider.RowInsertOptions{
		Table: "users",
		Data:  map[string]interface{}{"name": "ada", "age": 36},
	})
	assert.Equal(t, `INSERT INTO "main"."users" ("age", "name") VALUES (?, ?) RETURNING *`, query)
	assert.Equal(t, []interface{}{36, "ada"}, args)
}

func TestBuildUpdate(t *testing.T) {
	query, args := buildUpdate(provider.RowUpdateOptions{
		Table: "users",
		Set:   map[string]interface{}{"name": "grace"},
		Where: []provider.RowFilter{{Column: "id", Operator: provider.OpEqual, Value: 7}},
	})
	assert.Equal(t, `UPDATE "main"."users" SET "name" = ? WHERE "id" = ? RETURNING *`, query)
	assert.Equal(t, []interface{}{"grace", 7}, args)
}

func TestBuildDelete(t *testing.T) {
	query, args := buildDelete(provider.RowDeleteOptions{
		Table: "users",
		Where: []provider.RowFilter{{Column: "id", Operator: provider.OpEqual, Value: 1}},
	})
	assert.Equal(t, `DELETE FROM "main"."users" WHERE "id" = ?`, query)
	assert.Equal(t, []interface{}{1}, args)
}
