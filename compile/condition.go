package compile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gridbase/gridbase/dialect"
	sqlb "github.com/gridbase/gridbase/dialect/sql"
	"github.com/gridbase/gridbase/schema"
)

// LogicalOp is the boolean connective a Filter group applies to its
// children.
type LogicalOp string

const (
	LogicalAnd LogicalOp = "and"
	LogicalOr  LogicalOp = "or"
)

// Filter is one node of a filter tree: either a group with a logical_op and
// children, or a leaf comparing one column against a value. Tree depth is
// unbounded.
type Filter struct {
	IsGroup   bool
	LogicalOp LogicalOp
	Children  []Filter

	ColumnRef string
	Op        string
	Value     any
}

// resolveColumn resolves a leaf's column reference by id, title, or
// storage-name, in that order — the same resolution the record layer
// applies to input keys.
func resolveColumn(t *schema.Table, ref string) (*schema.Column, error) {
	col := t.ColumnByTitleOrStorage(ref)
	if col == nil {
		return nil, fmt.Errorf("compile: unknown column %q on table %q", ref, t.ID)
	}
	return col, nil
}

// leafExpr resolves the SQL expression a leaf's comparison runs against:
// the cast expression for a regular column, or the virtual expression for a
// virtual one (formulas resolve through the installed FormulaFn hook, since
// compile/formula imports this package, not the reverse).
func (c *Compiler) leafExpr(col *schema.Column, t *schema.Table, alias string) (string, error) {
	if col.IsVirtual() {
		return c.VirtualExpr(col, t, alias)
	}
	return c.QualifiedColumnExprWithCast(col, t, alias)
}

// Condition lowers a filter tree into a predicate applicable to a Selector
// via Where. The first child of each group runs unqualified; subsequent
// children are joined by the group's own logical_op.
func (c *Compiler) Condition(f Filter, t *schema.Table, alias string) (sqlb.P, error) {
	if f.IsGroup {
		return c.conditionGroup(f, t, alias)
	}
	return c.conditionLeaf(f, t, alias)
}

func (c *Compiler) conditionGroup(f Filter, t *schema.Table, alias string) (sqlb.P, error) {
	preds := make([]sqlb.P, 0, len(f.Children))
	for _, child := range f.Children {
		p, err := c.Condition(child, t, alias)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if len(preds) == 0 {
		return func(*sqlb.Selector) {}, nil
	}
	if f.LogicalOp == LogicalOr {
		return sqlb.Or(preds...), nil
	}
	return sqlb.And(preds...), nil
}

func (c *Compiler) conditionLeaf(f Filter, t *schema.Table, alias string) (sqlb.P, error) {
	col, err := resolveColumn(t, f.ColumnRef)
	if err != nil {
		return nil, err
	}
	switch f.Op {
	case "allof", "anyof", "nallof", "nanyof":
		return c.multiSelectPredicate(col, t, alias, f.Op, valuesOf(f.Value))
	}
	expr, err := c.leafExpr(col, t, alias)
	if err != nil {
		return nil, err
	}
	return operatorPredicate(expr, f.Op, f.Value)
}

// operatorPredicate lowers a single (expr, op, value) leaf into a
// predicate. Unknown operators fall back to equality. Values are always
// parameter-bound.
func operatorPredicate(expr, op string, value any) (sqlb.P, error) {
	switch op {
	case "eq":
		return sqlb.EQ(expr, value), nil
	case "neq":
		return sqlb.NEQ(expr, value), nil
	case "lt":
		return sqlb.LT(expr, value), nil
	case "lte":
		return sqlb.LTE(expr, value), nil
	case "gt":
		return sqlb.GT(expr, value), nil
	case "gte":
		return sqlb.GTE(expr, value), nil
	case "like":
		return sqlb.ContainsFold(expr, fmt.Sprint(value)), nil
	case "nlike":
		return sqlb.Not(sqlb.ContainsFold(expr, fmt.Sprint(value))), nil
	case "null", "is":
		return sqlb.IsNull(expr), nil
	case "notnull", "isnot":
		return sqlb.NotNull(expr), nil
	case "empty":
		return emptyPredicate(expr), nil
	case "notempty":
		return sqlb.Not(emptyPredicate(expr)), nil
	case "in":
		return sqlb.In(expr, valuesOf(value)...), nil
	case "notin":
		return sqlb.NotIn(expr, valuesOf(value)...), nil
	case "between":
		lo, hi, err := betweenBounds(value)
		if err != nil {
			return nil, err
		}
		return sqlb.Between(expr, lo, hi), nil
	case "notbetween":
		lo, hi, err := betweenBounds(value)
		if err != nil {
			return nil, err
		}
		return sqlb.Not(sqlb.Between(expr, lo, hi)), nil
	default:
		return sqlb.EQ(expr, value), nil
	}
}

func emptyPredicate(expr string) sqlb.P {
	return sqlb.Or(sqlb.IsNull(expr), sqlb.EQ(expr, ""))
}

// valuesOf normalizes an in/notin/allof/anyof value: a comma-split string,
// or a slice passed through as-is.
func valuesOf(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case string:
		parts := strings.Split(v, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out
	default:
		return []any{v}
	}
}

func betweenBounds(value any) (any, any, error) {
	v, ok := value.([]any)
	if !ok || len(v) != 2 {
		return nil, nil, fmt.Errorf("compile: between/notbetween requires a 2-element value")
	}
	return v[0], v[1], nil
}

// multiSelectPredicate lowers the allof/anyof family against the column's
// JSON value (extracted with "->", not "->>") — containment and overlap
// operate on the stored JSON array, which the text extraction strips down
// to a string the operators cannot apply to. Right-hand parameters carry an
// explicit cast on Postgres so the driver never binds an untyped string.
func (c *Compiler) multiSelectPredicate(col *schema.Column, t *schema.Table, alias, op string, values []any) (sqlb.P, error) {
	jsonExpr, err := c.QualifiedColumnJSONExpr(col, t, alias)
	if err != nil {
		return nil, err
	}
	anyOf := op == "anyof" || op == "nanyof"

	var pred sqlb.P
	switch c.Dialect {
	case dialect.Postgres:
		if anyOf {
			// jsonb_exists_any is the function form of the ?| operator,
			// which cannot appear in a '?'-marker format string.
			pred = sqlb.RawP("jsonb_exists_any(("+jsonExpr+")::jsonb, ?::text[])", pgTextArrayLiteral(values))
		} else {
			pred = sqlb.RawP("("+jsonExpr+")::jsonb @> ?::jsonb", jsonArrayLiteral(values))
		}
	case dialect.MySQL:
		if anyOf {
			pred = sqlb.RawP("JSON_OVERLAPS("+jsonExpr+", ?)", jsonArrayLiteral(values))
		} else {
			pred = sqlb.RawP("JSON_CONTAINS("+jsonExpr+", ?)", jsonArrayLiteral(values))
		}
	default:
		pred = sqliteMultiSelect(jsonExpr, anyOf, values)
	}

	if op == "nallof" || op == "nanyof" {
		pred = sqlb.Not(pred)
	}
	return pred, nil
}

// sqliteMultiSelect expands containment/overlap into per-value EXISTS
// probes over json_each, since SQLite has no containment operator.
func sqliteMultiSelect(jsonExpr string, anyOf bool, values []any) sqlb.P {
	if len(values) == 0 {
		if anyOf {
			return sqlb.RawP("1 = 0")
		}
		return sqlb.RawP("1 = 1")
	}
	preds := make([]sqlb.P, len(values))
	for i, v := range values {
		preds[i] = sqlb.RawP("EXISTS (SELECT 1 FROM json_each("+jsonExpr+") WHERE value = ?)", v)
	}
	if anyOf {
		return sqlb.Or(preds...)
	}
	return sqlb.And(preds...)
}

// jsonArrayLiteral renders values as a JSON array for jsonb/JSON_CONTAINS
// parameters.
func jsonArrayLiteral(values []any) string {
	b, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// pgTextArrayLiteral renders values in Postgres array-literal form for a
// text[] parameter.
func pgTextArrayLiteral(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		s := fmt.Sprint(v)
		s = strings.ReplaceAll(s, `\`, `\\`)
		s = strings.ReplaceAll(s, `"`, `\"`)
		parts[i] = `"` + s + `"`
	}
	return "{" + strings.Join(parts, ",") + "}"
}
