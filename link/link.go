// Package link implements the many-to-many operations over the fixed links
// table: listing linked and excluded target records, pairwise and bulk
// link/unlink, and existence probes. One row of the links table is one
// directed edge; a unique key over (link_field_id, source_record_id,
// target_record_id) makes link insertion idempotent.
package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridbase/gridbase/compile"
	"github.com/gridbase/gridbase/dialect"
	sqlb "github.com/gridbase/gridbase/dialect/sql"
	"github.com/gridbase/gridbase/id"
	"github.com/gridbase/gridbase/record"
	"github.com/gridbase/gridbase/schema"
)

// ErrNotLinkColumn is returned when the referenced column is not a
// many-to-many link column.
var ErrNotLinkColumn = errors.New("link: not a many-to-many link column")

// Client executes link operations, delegating target-record hydration to
// the record client it wraps.
type Client struct {
	records  *record.Client
	drv      dialect.Driver
	compiler *compile.Compiler
	log      *slog.Logger
	newID    func() string
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

// WithIDFunc overrides the edge-id generator, for deterministic tests.
func WithIDFunc(fn func() string) Option { return func(c *Client) { c.newID = fn } }

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(fn func() time.Time) Option { return func(c *Client) { c.now = fn } }

// NewClient returns a Client sharing the record client's driver and
// compiler.
func NewClient(records *record.Client, opts ...Option) *Client {
	c := &Client{
		records:  records,
		drv:      records.Driver(),
		compiler: records.Compiler(),
		log:      slog.Default(),
		newID:    id.New,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTx returns a copy of the client whose operations run on tx.
func (c *Client) WithTx(tx dialect.Tx) *Client {
	clone := *c
	clone.drv = tx
	clone.records = c.records.WithTx(tx)
	return &clone
}

// mmColumn resolves a many-to-many link column and its related table.
func (c *Client) mmColumn(tableID, columnID string) (*schema.Column, *schema.Table, error) {
	t := c.compiler.Model.Table(tableID)
	if t == nil {
		return nil, nil, fmt.Errorf("link: table %q not in schema", tableID)
	}
	col := t.Column(columnID)
	if col == nil || col.Link == nil || col.Link.Type != schema.LinkManyToMany {
		return nil, nil, fmt.Errorf("%w: %q on table %q", ErrNotLinkColumn, columnID, tableID)
	}
	related := c.compiler.Model.Table(col.Link.RelatedTableID)
	if related == nil {
		return nil, nil, fmt.Errorf("link: related table %q not in schema", col.Link.RelatedTableID)
	}
	return col, related, nil
}

// linkedSubquery returns the correlated "target ids linked from parent via
// col" subquery shared by the list and excluded-list shapes.
func linkedSubquery(d string, col *schema.Column, parentID string) *sqlb.Selector {
	links := sqlb.Table(compile.LinksTable).As("l")
	return sqlb.Dialect(d).
		Select("l.target_record_id").
		From(links).
		Where(sqlb.And(
			sqlb.EQ("l.link_field_id", col.ID),
			sqlb.EQ("l.source_record_id", parentID),
		))
}

// MMList returns the target-table records linked from parentID via the
// column, with the record layer's filter, sort, and pagination semantics
// applied on top.
func (c *Client) MMList(ctx context.Context, tableID, columnID, parentID string, args record.ListArgs) ([]record.Record, error) {
	col, related, err := c.mmColumn(tableID, columnID)
	if err != nil {
		return nil, err
	}
	return c.listTargets(ctx, col, related, parentID, args, true)
}

// MMListCount counts the linked set.
func (c *Client) MMListCount(ctx context.Context, tableID, columnID, parentID string) (int, error) {
	col, related, err := c.mmColumn(tableID, columnID)
	if err != nil {
		return 0, err
	}
	return c.countTargets(ctx, col, related, parentID, true)
}

// MMExcludedList returns target-table records not linked from parentID via
// the column.
func (c *Client) MMExcludedList(ctx context.Context, tableID, columnID, parentID string, args record.ListArgs) ([]record.Record, error) {
	col, related, err := c.mmColumn(tableID, columnID)
	if err != nil {
		return nil, err
	}
	return c.listTargets(ctx, col, related, parentID, args, false)
}

// MMExcludedListCount counts the excluded set.
func (c *Client) MMExcludedListCount(ctx context.Context, tableID, columnID, parentID string) (int, error) {
	col, related, err := c.mmColumn(tableID, columnID)
	if err != nil {
		return 0, err
	}
	return c.countTargets(ctx, col, related, parentID, false)
}

func membershipPred(d string, col *schema.Column, parentID string, in bool) sqlb.P {
	sub := linkedSubquery(d, col, parentID)
	if in {
		return sqlb.InSubquery(record.Alias+".id", sub)
	}
	return sqlb.NotInSubquery(record.Alias+".id", sub)
}

func (c *Client) listTargets(ctx context.Context, col *schema.Column, related *schema.Table, parentID string, args record.ListArgs, in bool) ([]record.Record, error) {
	extra := membershipPred(c.compiler.Dialect, col, parentID, in)
	return c.records.ListWhere(ctx, related.ID, args, extra)
}

func (c *Client) countTargets(ctx context.Context, col *schema.Column, related *schema.Table, parentID string, in bool) (int, error) {
	extra := membershipPred(c.compiler.Dialect, col, parentID, in)
	return c.records.CountWhere(ctx, related.ID, record.ListArgs{}, extra)
}

// MMLink idempotently inserts one edge per child: a conflict on the unique
// key is a no-op, so re-linking an existing pair changes nothing. The
// symmetric column's id is stamped on each edge when the column is
// bidirectional and resolvable; resolution is best-effort.
func (c *Client) MMLink(ctx context.Context, tableID, columnID, parentID string, childIDs []string) error {
	col, related, err := c.mmColumn(tableID, columnID)
	if err != nil {
		return err
	}
	if len(childIDs) == 0 {
		return nil
	}
	inverse := c.symmetricColumnID(tableID, col, related)
	now := c.now().UTC()

	ins := sqlb.Dialect(c.compiler.Dialect).
		Insert(compile.LinksTable).
		Columns("id", "source_record_id", "target_record_id", "link_field_id", "inverse_field_id", "created_at").
		OnConflict([]string{"link_field_id", "source_record_id", "target_record_id"}, []string{"inverse_field_id"})
	for _, childID := range childIDs {
		var inv any
		if inverse != "" {
			inv = inverse
		}
		ins.Values(c.newID(), parentID, childID, col.ID, inv, now)
	}
	query, args := ins.Query()
	if err := c.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("link: mmLink: %w", err)
	}
	return nil
}

// MMUnlink deletes the edges for the (column, parent, children) triples.
func (c *Client) MMUnlink(ctx context.Context, tableID, columnID, parentID string, childIDs []string) error {
	col, _, err := c.mmColumn(tableID, columnID)
	if err != nil {
		return err
	}
	if len(childIDs) == 0 {
		return nil
	}
	targets := make([]any, len(childIDs))
	for i, id := range childIDs {
		targets[i] = id
	}
	del := sqlb.Dialect(c.compiler.Dialect).
		Delete(compile.LinksTable).
		Where(sqlb.And(
			sqlb.EQ("link_field_id", col.ID),
			sqlb.EQ("source_record_id", parentID),
			sqlb.In("target_record_id", targets...),
		))
	query, args := del.Query()
	if err := c.drv.Exec(ctx, query, args, nil); err != nil {
		return fmt.Errorf("link: mmUnlink: %w", err)
	}
	return nil
}

// HasChild probes for one edge.
func (c *Client) HasChild(ctx context.Context, tableID, columnID, parentID, childID string) (bool, error) {
	col, _, err := c.mmColumn(tableID, columnID)
	if err != nil {
		return false, err
	}
	links := sqlb.Table(compile.LinksTable).As("l")
	sel := sqlb.Dialect(c.compiler.Dialect).
		Select("l.id").
		From(links).
		Where(sqlb.And(
			sqlb.EQ("l.link_field_id", col.ID),
			sqlb.EQ("l.source_record_id", parentID),
			sqlb.EQ("l.target_record_id", childID),
		)).
		Limit(1)
	query, args := sel.Query()
	var rows sqlb.Rows
	if err := c.drv.Query(ctx, query, args, &rows); err != nil {
		return false, err
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}

// Edges returns the raw (source, target) pairs for a link column restricted
// to the given source ids, one query for any number of parents. It backs the
// lazy loader's batched relation load and the copy operations' relation
// cloning.
func (c *Client) Edges(ctx context.Context, tableID, columnID string, sourceIDs []string) ([]Edge, error) {
	col, _, err := c.mmColumn(tableID, columnID)
	if err != nil {
		return nil, err
	}
	if len(sourceIDs) == 0 {
		return nil, nil
	}
	sources := make([]any, len(sourceIDs))
	for i, id := range sourceIDs {
		sources[i] = id
	}
	links := sqlb.Table(compile.LinksTable).As("l")
	sel := sqlb.Dialect(c.compiler.Dialect).
		Select("l.source_record_id", "l.target_record_id").
		From(links).
		Where(sqlb.And(
			sqlb.EQ("l.link_field_id", col.ID),
			sqlb.In("l.source_record_id", sources...),
		))
	query, args := sel.Query()
	var rows sqlb.Rows
	if err := c.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.SourceID, &e.TargetID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Edge is one directed association read back from the links table.
type Edge struct {
	SourceID string
	TargetID string
}

// symmetricColumnID locates the inverse link column on the related table
// whose relation points back at the source table. Best-effort: the
// explicitly declared SymmetricColumnID wins, then the first matching
// reverse column; "" when neither resolves.
func (c *Client) symmetricColumnID(sourceTableID string, col *schema.Column, related *schema.Table) string {
	if col.Link.SymmetricColumnID != "" {
		return col.Link.SymmetricColumnID
	}
	if !col.Link.Bidirectional {
		return ""
	}
	for _, candidate := range related.Columns {
		if candidate.Link == nil || candidate.Link.Type != schema.LinkManyToMany {
			continue
		}
		if candidate.Link.RelatedTableID == sourceTableID && candidate.ID != col.ID {
			return candidate.ID
		}
	}
	return ""
}
