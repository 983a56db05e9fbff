package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripStringsAndComments(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "line comment stripped",
			input:    "SELECT * FROM users -- trailing note",
			expected: "SELECT * FROM users  ",
		},
		{
			name:     "block comment stripped",
			input:    "SELECT * FROM users /* note */ WHERE id = 1",
			expected: "SELECT * FROM users   WHERE id = 1",
		},
		{
			name:     "string literal reduced to placeholder",
			input:    "SELECT * FROM users WHERE name = 'DELETE FROM users'",
			expected: "SELECT * FROM users WHERE name = ''",
		},
		{
			name:     "escaped quote inside literal",
			input:    "SELECT 'it''s fine'",
			expected: "SELECT ''",
		},
		{
			name:     "double-quoted identifier kept",
			input:    `SELECT "select" FROM t`,
			expected: `SELECT "select" FROM t`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripStringsAndComments(tt.input))
		})
	}
}

func TestIsRowReturning(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		returning bool
	}{
		{"select", "SELECT * FROM users", true},
		{"lowercase select", "select 1", true},
		{"cte", "WITH t AS (SELECT 1) SELECT * FROM t", true},
		{"pragma", "PRAGMA table_info(users)", true},
		{"explain", "EXPLAIN QUERY PLAN SELECT 1", true},
		{"values", "VALUES (1), (2)", true},
		{"insert", "INSERT INTO users (name) VALUES (?)", false},
		{"insert returning", "INSERT INTO users (name) VALUES (?) RETURNING id", true},
		{"update returning", "UPDATE users SET name = ? WHERE id = ? RETURNING *", true},
		{"delete", "DELETE FROM users WHERE id = ?", false},
		{"create table", "CREATE TABLE t (id INTEGER)", false},
		{"returning inside string literal", "INSERT INTO t (v) VALUES ('say RETURNING')", false},
		{"returning inside comment", "DELETE FROM t WHERE id = 1 -- no RETURNING here", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.returning, isRowReturning(tt.query))
		})
	}
}
