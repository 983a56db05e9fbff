package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatementTimeoutSQL(t *testing.T) {
	assert.Equal(t, "SET statement_timeout = 1500", statementTimeoutSQL(1500*time.Millisecond))
	assert.Equal(t, "SET statement_timeout = 30000", statementTimeoutSQL(30*time.Second))
}
