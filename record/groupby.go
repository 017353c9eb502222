package record

import (
	"context"
	"fmt"

	"github.com/gridbase/gridbase/compile"
	sqlb "github.com/gridbase/gridbase/dialect/sql"
	"github.com/gridbase/gridbase/sanitize"
	"github.com/gridbase/gridbase/schema"
)

// Aggregate is one aggregated projection of a GroupBy: Func over ColumnRef,
// surfaced under Alias. Func "count" ignores ColumnRef.
type Aggregate struct {
	Func      string // count, sum, avg, min, max
	ColumnRef string
	Alias     string
}

// GroupByArgs parameterizes GroupBy. The group column may be a regular or a
// virtual column — virtual columns group by the same SQL fragment the
// condition compiler uses for their leaves.
type GroupByArgs struct {
	GroupColumnRef string
	Aggregates     []Aggregate
	Filter         *compile.Filter
	Limit          int
	Offset         int
}

// GroupBy emits SELECT <col-expr> AS "<display>", <agg> ... GROUP BY
// <col-expr> under the same filter stack as List, and returns one Record per
// group keyed by the display and aggregate aliases.
func (c *Client) GroupBy(ctx context.Context, tableID string, args GroupByArgs) ([]Record, error) {
	t, err := c.table(tableID)
	if err != nil {
		return nil, err
	}
	groupCol := t.ColumnByTitleOrStorage(args.GroupColumnRef)
	if groupCol == nil {
		return nil, fmt.Errorf("record: unknown group column %q on table %q", args.GroupColumnRef, tableID)
	}
	groupExpr, err := c.columnExpr(groupCol, t)
	if err != nil {
		return nil, err
	}
	display, err := sanitize.Identifier(groupCol.StorageName)
	if err != nil {
		return nil, err
	}

	cols := []string{fmt.Sprintf("%s AS %s", groupExpr, sqlb.Quote(c.compiler.Dialect, display))}
	for _, agg := range args.Aggregates {
		expr, err := c.aggregateExpr(t, agg)
		if err != nil {
			return nil, err
		}
		alias, err := sanitize.Alias(agg.Alias)
		if err != nil {
			return nil, err
		}
		cols = append(cols, fmt.Sprintf("%s AS %s", expr, sqlb.Quote(c.compiler.Dialect, alias)))
	}

	sel := c.compiler.CreateQueryBuilder(t, Alias, cols...)
	if args.Filter != nil {
		pred, err := c.compiler.Condition(*args.Filter, t, Alias)
		if err != nil {
			return nil, err
		}
		sel.Where(pred)
	}
	sel.GroupBy(groupExpr)
	if args.Limit > 0 {
		sel.Limit(c.clampLimit(args.Limit)).Offset(max(args.Offset, 0))
	}

	query, qargs := sel.Query()
	var rows sqlb.Rows
	if err := c.drv.Query(ctx, query, qargs, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Record
	for rows.Next() {
		dest := make([]any, len(names))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		rec := Record{}
		for i, name := range names {
			v := *(dest[i].(*any))
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			rec[name] = v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (c *Client) columnExpr(col *schema.Column, t *schema.Table) (string, error) {
	if col.IsVirtual() {
		return c.compiler.VirtualExpr(col, t, Alias)
	}
	return c.compiler.QualifiedColumnExprWithCast(col, t, Alias)
}

func (c *Client) aggregateExpr(t *schema.Table, agg Aggregate) (string, error) {
	if agg.Func == "count" {
		return "COUNT(*)", nil
	}
	col := t.ColumnByTitleOrStorage(agg.ColumnRef)
	if col == nil {
		return "", fmt.Errorf("record: unknown aggregate column %q on table %q", agg.ColumnRef, t.ID)
	}
	expr, err := c.columnExpr(col, t)
	if err != nil {
		return "", err
	}
	switch agg.Func {
	case "sum":
		return "SUM(" + expr + ")", nil
	case "avg":
		return "AVG(" + expr + ")", nil
	case "min":
		return "MIN(" + expr + ")", nil
	case "max":
		return "MAX(" + expr + ")", nil
	default:
		return "", fmt.Errorf("record: unknown aggregate function %q", agg.Func)
	}
}
