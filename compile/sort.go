package compile

import (
	sqlb "github.com/gridbase/gridbase/dialect/sql"
	"github.com/gridbase/gridbase/schema"
)

// SortTerm is one entry of a sort list: a column reference and direction.
type SortTerm struct {
	ColumnRef string
	Desc      bool
}

// Sort lowers a sort list into OrderByTerm calls against sel, with stable
// NULL placement: ascending orders put NULLs last, descending puts them
// first, so paged results stay deterministic across the null boundary.
// Virtual columns sort via the same SQL fragments the condition compiler
// uses for its leaves.
func (c *Compiler) Sort(sel *sqlb.Selector, terms []SortTerm, t *schema.Table, alias string) (*sqlb.Selector, error) {
	for _, term := range terms {
		col, err := resolveColumn(t, term.ColumnRef)
		if err != nil {
			return nil, err
		}
		expr, err := c.sortExpr(col, t, alias)
		if err != nil {
			return nil, err
		}
		nulls := "last"
		if term.Desc {
			nulls = "first"
		}
		sel = sel.OrderByTerm(expr, term.Desc, nulls)
	}
	return sel, nil
}

func (c *Compiler) sortExpr(col *schema.Column, t *schema.Table, alias string) (string, error) {
	if col.IsVirtual() {
		return c.VirtualExpr(col, t, alias)
	}
	return c.QualifiedColumnExprWithCast(col, t, alias)
}
