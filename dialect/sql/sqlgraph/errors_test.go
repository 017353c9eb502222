package sqlgraph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestPostgresUniqueViolation(t *testing.T) {
	err := &pq.Error{Code: "23505", Message: "duplicate key value"}
	assert.True(t, IsUniqueConstraintError(err))
	assert.True(t, IsConstraintError(err))
	assert.False(t, IsForeignKeyConstraintError(err))
}

func TestPostgresForeignKeyViolation(t *testing.T) {
	err := &pq.Error{Code: "23503", Message: "violates foreign key"}
	assert.True(t, IsForeignKeyConstraintError(err))
	assert.False(t, IsUniqueConstraintError(err))
}

func TestPostgresCheckViolation(t *testing.T) {
	err := &pq.Error{Code: "23514", Message: "violates check"}
	assert.True(t, IsCheckConstraintError(err))
}

func TestMySQLDuplicateEntry(t *testing.T) {
	err := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'uk'"}
	assert.True(t, IsUniqueConstraintError(err))
}

func TestMySQLForeignKeyViolations(t *testing.T) {
	parent := &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"}
	child := &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}
	assert.True(t, IsForeignKeyConstraintError(parent))
	assert.True(t, IsForeignKeyConstraintError(child))
}

func TestSQLiteStringFallback(t *testing.T) {
	assert.True(t, IsUniqueConstraintError(errors.New("UNIQUE constraint failed: links.link_field_id")))
	assert.True(t, IsForeignKeyConstraintError(errors.New("FOREIGN KEY constraint failed")))
	assert.True(t, IsCheckConstraintError(errors.New("CHECK constraint failed: rating")))
}

func TestWrappedErrorUnwrapped(t *testing.T) {
	err := fmt.Errorf("insert records: %w", &pq.Error{Code: "23505"})
	assert.True(t, IsUniqueConstraintError(err))
}

func TestNilAndUnrelated(t *testing.T) {
	assert.False(t, IsConstraintError(nil))
	assert.False(t, IsConstraintError(errors.New("connection refused")))
}
