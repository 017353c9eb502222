// Package compile translates logical requests — filter trees, sort lists,
// field selections, and virtual columns — into physical SQL against the
// three fixed storage tables. Every exported function here is a total
// function over a *schema.Table / *schema.Column pair producing a SQL
// fragment or a *sql.Selector; none of them perform I/O.
package compile

import (
	"fmt"

	sqlb "github.com/gridbase/gridbase/dialect/sql"
	"github.com/gridbase/gridbase/schema"
)

// Physical table names — the three fixed tables every logical table is
// shredded into or reconstructed from.
const (
	RecordsTable = "records"
	LinksTable   = "links"
	SchemasTable = "schemas"
)

// Compiler closes over the schema snapshot and SQL dialect every
// compilation pass needs. It is immutable once constructed and safe to
// share across concurrent requests.
type Compiler struct {
	Model   *schema.Model
	Dialect string

	// FormulaFn resolves a formula column to its SQL fragment. It is
	// installed by compile/formula (which imports this package, not the
	// reverse); a Compiler without it cannot resolve formula leaves.
	FormulaFn func(col *schema.Column, t *schema.Table, alias string) (string, error)
}

// New returns a Compiler bound to an immutable schema snapshot and dialect.
func New(model *schema.Model, dialectName string) *Compiler {
	return &Compiler{Model: model, Dialect: dialectName}
}

// PhysicalTable returns the records table for normal tables and the links
// table for junction tables (reserved for a future MM-as-a-dedicated-table
// feature, see schema.Table.IsJunction).
func PhysicalTable(t *schema.Table) string {
	if t.IsJunction {
		return LinksTable
	}
	return RecordsTable
}

// physicalColumnName returns the fixed physical field a system column maps
// to, and whether col is in fact a physical (non-JSON) column at all.
func physicalColumnName(col *schema.Column) (string, bool) {
	switch col.Kind {
	case schema.KindCreatedTime:
		return "created_at", true
	case schema.KindLastModifiedTime:
		return "updated_at", true
	case schema.KindCreatedBy:
		return "created_by", true
	case schema.KindLastModifiedBy:
		return "updated_by", true
	}
	if col.PK {
		return "id", true
	}
	return "", false
}

// QualifiedColumnExpr returns the SQL expression that reads col's value for
// a row aliased as alias: a quoted physical-column reference for system
// columns and junction-table columns, or a JSON text-extraction expression
// for user columns.
func (c *Compiler) QualifiedColumnExpr(col *schema.Column, table *schema.Table, alias string) (string, error) {
	if col.IsVirtual() {
		return "", fmt.Errorf("compile: %q is a virtual column, has no direct physical expression", col.ID)
	}
	if name, ok := physicalColumnName(col); ok {
		return alias + "." + sqlb.Quote(c.Dialect, name), nil
	}
	if table.IsJunction {
		return alias + "." + sqlb.Quote(c.Dialect, col.StorageName), nil
	}
	dataExpr := alias + "." + sqlb.Quote(c.Dialect, "data")
	return sqlb.JSONTextExtract(c.Dialect, dataExpr, col.StorageName), nil
}

// QualifiedColumnJSONExpr returns the expression reading col's value as a
// JSON value rather than text ("->", not "->>") — what the multi-select
// containment and overlap operators compare against. Only user-stored
// columns have a JSON-valued form.
func (c *Compiler) QualifiedColumnJSONExpr(col *schema.Column, table *schema.Table, alias string) (string, error) {
	if col.IsVirtual() {
		return "", fmt.Errorf("compile: %q is a virtual column, has no direct physical expression", col.ID)
	}
	if physicalColumnIsNative(col) || table.IsJunction {
		return "", fmt.Errorf("compile: %q is not stored in the JSON value", col.ID)
	}
	dataExpr := alias + "." + sqlb.Quote(c.Dialect, "data")
	return sqlb.JSONExtract(c.Dialect, dataExpr, col.StorageName), nil
}

// QualifiedColumnExprWithCast wraps QualifiedColumnExpr's JSON extraction in
// a CAST(NULLIF(expr, '') AS <type>) for numeric, decimal, boolean, date,
// datetime, and time columns; system and junction columns are returned
// uncast since they are already native-typed. Empty strings are mapped to
// SQL NULL before the cast to preserve arithmetic semantics.
func (c *Compiler) QualifiedColumnExprWithCast(col *schema.Column, table *schema.Table, alias string) (string, error) {
	expr, err := c.QualifiedColumnExpr(col, table, alias)
	if err != nil {
		return "", err
	}
	cast := col.Kind.CastType()
	if cast == "" || physicalColumnIsNative(col) {
		return expr, nil
	}
	return fmt.Sprintf("CAST(NULLIF(%s, '') AS %s)", expr, castTypeToSQL(cast)), nil
}

func physicalColumnIsNative(col *schema.Column) bool {
	_, isPhysical := physicalColumnName(col)
	return isPhysical
}

func castTypeToSQL(cast string) string {
	switch cast {
	case "numeric":
		return "NUMERIC"
	case "boolean":
		return "BOOLEAN"
	case "date":
		return "DATE"
	case "timestamp":
		return "TIMESTAMP"
	case "time":
		return "TIME"
	default:
		return "TEXT"
	}
}

// CreateQueryBuilder begins a SELECT against t's physical table, aliased,
// with the mandatory "WHERE table_id = ?" clause applied — the
// data-isolation invariant every read, update, and delete path must carry.
func (c *Compiler) CreateQueryBuilder(t *schema.Table, alias string, columns ...string) *sqlb.Selector {
	view := sqlb.Table(PhysicalTable(t)).As(alias)
	return sqlb.Dialect(c.Dialect).
		Select(columns...).
		From(view).
		Where(sqlb.EQ(view.C("table_id"), t.ID))
}
