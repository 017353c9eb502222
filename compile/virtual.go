package compile

import (
	"fmt"
	"strings"

	sqlb "github.com/gridbase/gridbase/dialect/sql"
	"github.com/gridbase/gridbase/schema"
)

// ErrUnresolvedRelation is returned when a rollup, lookup, or link-count
// column references a relation column or related table the model does not
// have registered.
var ErrUnresolvedRelation = fmt.Errorf("compile: unresolved relation")

func sqlLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// VirtualExpr resolves any virtual column, including formulas, into a SQL
// expression readable against the parent row aliased as parentAlias.
// Formula columns go through the installed FormulaFn hook; the three
// relation-shaped kinds go through VirtualFragment.
func (c *Compiler) VirtualExpr(col *schema.Column, table *schema.Table, parentAlias string) (string, error) {
	if col.Kind == schema.KindFormula {
		if c.FormulaFn == nil {
			return "", fmt.Errorf("compile: no formula resolver installed for column %q", col.ID)
		}
		return c.FormulaFn(col, table, parentAlias)
	}
	return c.VirtualFragment(col, table, parentAlias)
}

// VirtualFragment resolves the three relation-shaped virtual column kinds
// (rollup, lookup, link-count) into a correlated scalar SQL expression
// readable against the parent row aliased as parentAlias. Formula columns
// go through VirtualExpr, which dispatches to the installed hook.
func (c *Compiler) VirtualFragment(col *schema.Column, table *schema.Table, parentAlias string) (string, error) {
	switch col.Kind {
	case schema.KindRollup:
		return c.rollupFragment(col, table, parentAlias)
	case schema.KindLookup:
		return c.lookupFragment(col, table, parentAlias)
	case schema.KindLinksCount:
		return c.linkCountFragment(col, table, parentAlias)
	default:
		return "", fmt.Errorf("compile: %q is not a relation-shaped virtual column", col.ID)
	}
}

func (c *Compiler) relationColumn(table *schema.Table, relationColumnID string) (*schema.Column, *schema.Table, error) {
	rel := table.Column(relationColumnID)
	if rel == nil || rel.Link == nil {
		return nil, nil, fmt.Errorf("%w: relation column %q on table %q", ErrUnresolvedRelation, relationColumnID, table.ID)
	}
	related := c.Model.Table(rel.Link.RelatedTableID)
	if related == nil {
		return nil, nil, fmt.Errorf("%w: related table %q", ErrUnresolvedRelation, rel.Link.RelatedTableID)
	}
	return rel, related, nil
}

func aggregateExpr(agg schema.Aggregation, expr string) string {
	switch agg {
	case schema.AggSum:
		return "SUM(CAST(NULLIF(" + expr + ", '') AS NUMERIC))"
	case schema.AggAvg:
		return "AVG(CAST(NULLIF(" + expr + ", '') AS NUMERIC))"
	case schema.AggMin:
		return "MIN(" + expr + ")"
	case schema.AggMax:
		return "MAX(" + expr + ")"
	case schema.AggCountEmpty:
		return "COUNT(*) FILTER (WHERE " + expr + " IS NULL OR " + expr + " = '')"
	case schema.AggCountNotEmpty:
		return "COUNT(*) FILTER (WHERE NOT (" + expr + " IS NULL OR " + expr + " = ''))"
	case schema.AggCountDistinct:
		return "COUNT(DISTINCT " + expr + ")"
	case schema.AggSumDistinct:
		return "SUM(DISTINCT CAST(NULLIF(" + expr + ", '') AS NUMERIC))"
	case schema.AggAvgDistinct:
		return "AVG(DISTINCT CAST(NULLIF(" + expr + ", '') AS NUMERIC))"
	default:
		return "COUNT(*)"
	}
}

// rollupFragment builds the correlated aggregate subquery for a rollup
// column, dispatching on the underlying relation's link shape.
func (c *Compiler) rollupFragment(col *schema.Column, table *schema.Table, parentAlias string) (string, error) {
	if col.Rollup == nil {
		return "", fmt.Errorf("compile: rollup column %q missing rollup options", col.ID)
	}
	rel, related, err := c.relationColumn(table, col.Rollup.RelationColumnID)
	if err != nil {
		return "", err
	}
	target := related.Column(col.Rollup.TargetColumnID)
	if target == nil {
		return "", fmt.Errorf("%w: target column %q on table %q", ErrUnresolvedRelation, col.Rollup.TargetColumnID, related.ID)
	}
	const sub = "rl"
	targetExpr, err := c.QualifiedColumnExpr(target, related, sub)
	if err != nil {
		return "", err
	}
	agg := aggregateExpr(col.Rollup.Aggregation, targetExpr)

	switch rel.Link.Type {
	case schema.LinkManyToMany:
		return fmt.Sprintf(
			`(SELECT %s FROM %s %s WHERE %s IN (SELECT "target_record_id" FROM %s WHERE "link_field_id" = %s AND "source_record_id" = %s.%s))`,
			agg, c.quotedTable(PhysicalTable(related)), sub, sub+"."+c.quoteIdent("id"),
			c.quotedTable(LinksTable), sqlLiteral(rel.ID), parentAlias, c.quoteIdent("id"),
		), nil
	case schema.LinkHasMany:
		fkExpr := c.fkExpr(sub, rel.Link.FKColumnStorage)
		return fmt.Sprintf(
			`(SELECT %s FROM %s %s WHERE %s = %s AND %s = %s.%s)`,
			agg, c.quotedTable(PhysicalTable(related)), sub, sub+"."+c.quoteIdent("table_id"), sqlLiteral(related.ID),
			fkExpr, parentAlias, c.quoteIdent("id"),
		), nil
	case schema.LinkBelongsTo:
		return fmt.Sprintf(
			`(SELECT %s FROM %s %s WHERE %s = %s)`,
			agg, c.quotedTable(PhysicalTable(related)), sub, sub+"."+c.quoteIdent("id"),
			c.fkExpr(parentAlias, rel.Link.FKColumnStorage),
		), nil
	default:
		return "", fmt.Errorf("compile: unknown link type %d on column %q", rel.Link.Type, rel.ID)
	}
}

// lookupFragment builds the one-row correlated subquery projecting the
// looked-up column's value from the related table.
func (c *Compiler) lookupFragment(col *schema.Column, table *schema.Table, parentAlias string) (string, error) {
	if col.Lookup == nil {
		return "", fmt.Errorf("compile: lookup column %q missing lookup options", col.ID)
	}
	rel, related, err := c.relationColumn(table, col.Lookup.RelationColumnID)
	if err != nil {
		return "", err
	}
	target := related.Column(col.Lookup.TargetColumnID)
	if target == nil {
		return "", fmt.Errorf("%w: target column %q on table %q", ErrUnresolvedRelation, col.Lookup.TargetColumnID, related.ID)
	}
	const sub = "lk"
	targetExpr, err := c.QualifiedColumnExpr(target, related, sub)
	if err != nil {
		return "", err
	}

	var predicate string
	switch rel.Link.Type {
	case schema.LinkManyToMany:
		predicate = fmt.Sprintf(
			`%s IN (SELECT "target_record_id" FROM %s WHERE "link_field_id" = %s AND "source_record_id" = %s.%s)`,
			sub+"."+c.quoteIdent("id"), c.quotedTable(LinksTable), sqlLiteral(rel.ID), parentAlias, c.quoteIdent("id"),
		)
	case schema.LinkHasMany:
		predicate = fmt.Sprintf(`%s = %s.%s`, c.fkExpr(sub, rel.Link.FKColumnStorage), parentAlias, c.quoteIdent("id"))
	case schema.LinkBelongsTo:
		predicate = fmt.Sprintf(`%s = %s`, sub+"."+c.quoteIdent("id"), c.fkExpr(parentAlias, rel.Link.FKColumnStorage))
	default:
		return "", fmt.Errorf("compile: unknown link type %d on column %q", rel.Link.Type, rel.ID)
	}
	return fmt.Sprintf(
		`(SELECT %s FROM %s %s WHERE %s = %s AND %s LIMIT 1)`,
		targetExpr, c.quotedTable(PhysicalTable(related)), sub,
		sub+"."+c.quoteIdent("table_id"), sqlLiteral(related.ID), predicate,
	), nil
}

// linkCountFragment builds the cardinality expression for a links-count
// column, dispatching on the relation's link shape.
func (c *Compiler) linkCountFragment(col *schema.Column, table *schema.Table, parentAlias string) (string, error) {
	if col.Link == nil {
		return "", fmt.Errorf("compile: links-count column %q missing link options", col.ID)
	}
	related := c.Model.Table(col.Link.RelatedTableID)
	if related == nil {
		return "", fmt.Errorf("%w: related table %q", ErrUnresolvedRelation, col.Link.RelatedTableID)
	}

	switch col.Link.Type {
	case schema.LinkManyToMany:
		return fmt.Sprintf(
			`(SELECT COUNT(*) FROM %s WHERE "link_field_id" = %s AND "source_record_id" = %s.%s)`,
			c.quotedTable(LinksTable), sqlLiteral(col.ID), parentAlias, c.quoteIdent("id"),
		), nil
	case schema.LinkHasMany:
		const sub = "lc"
		fkExpr := c.fkExpr(sub, col.Link.FKColumnStorage)
		return fmt.Sprintf(
			`(SELECT COUNT(*) FROM %s %s WHERE %s = %s AND %s = %s.%s)`,
			c.quotedTable(PhysicalTable(related)), sub, sub+"."+c.quoteIdent("table_id"), sqlLiteral(related.ID),
			fkExpr, parentAlias, c.quoteIdent("id"),
		), nil
	case schema.LinkBelongsTo:
		return fmt.Sprintf(`(CASE WHEN %s IS NOT NULL THEN 1 ELSE 0 END)`, c.fkExpr(parentAlias, col.Link.FKColumnStorage)), nil
	default:
		return "", fmt.Errorf("compile: unknown link type %d on column %q", col.Link.Type, col.ID)
	}
}

func (c *Compiler) quoteIdent(ident string) string { return sqlb.Quote(c.Dialect, ident) }

func (c *Compiler) quotedTable(name string) string { return c.quoteIdent(name) }

// fkExpr returns the JSON-text-extraction expression for the JSON-stored FK
// field storageName on the row aliased as alias, matching
// QualifiedColumnExpr's dialect-aware form for user-stored columns.
func (c *Compiler) fkExpr(alias, storageName string) string {
	dataExpr := alias + "." + c.quoteIdent("data")
	return sqlb.JSONTextExtract(c.Dialect, dataExpr, storageName)
}
