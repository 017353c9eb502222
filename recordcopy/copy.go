// Package recordcopy implements shallow and deep record duplication:
// copying one record without its system fields, re-linking or recursively
// cloning its relations up to a bounded depth, and bulk-cloning a whole
// table. Every variant runs inside a single transaction — supplied by a
// transaction-scoped record client or opened here — and rolls back on any
// error.
//
// Deep copies traverse the link graph with a visited map keyed by source
// id: revisiting a node reuses the already-cloned target instead of cloning
// again, so cycles terminate and DAG structure is preserved within one copy
// session. A depth overflow truncates recursion but keeps a shallow link to
// the original child.
package recordcopy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gridbase/gridbase/dialect"
	"github.com/gridbase/gridbase/link"
	"github.com/gridbase/gridbase/record"
	"github.com/gridbase/gridbase/schema"
)

// DefaultMaxDepth bounds relation recursion when Options.MaxDepth is unset.
const DefaultMaxDepth = 3

// Options tunes a copy.
type Options struct {
	// ExcludeFields names additional input keys dropped from the copy, on
	// top of the always-excluded system fields and virtual columns.
	ExcludeFields []string

	// WithRelations also copies MM relations after the record itself.
	WithRelations bool

	// Deep clones related records recursively instead of re-linking the
	// copy to the same children.
	Deep bool

	// MaxDepth bounds Deep recursion; DefaultMaxDepth when zero.
	MaxDepth int
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

// systemFields are never carried into a copy.
var systemFields = map[string]bool{
	"id": true, "created_at": true, "updated_at": true,
	"created_by": true, "updated_by": true, "table_id": true,
}

// Client executes copy operations over the record and link layers.
type Client struct {
	records *record.Client
	links   *link.Client
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger relation-copy failures are reported to.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

// NewClient returns a copy client over the given record and link clients.
func NewClient(records *record.Client, links *link.Client, opts ...Option) *Client {
	c := &Client{records: records, links: links, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// session tracks one copy traversal: source id -> cloned id.
type session struct {
	visited map[string]string
}

// inTx runs fn with transaction-scoped record and link clients, reusing the
// caller's transaction when the record client already carries one.
func (c *Client) inTx(ctx context.Context, fn func(recs *record.Client, lnks *link.Client) error) error {
	drv := c.records.Driver()
	if _, ok := drv.(dialect.Tx); ok {
		return fn(c.records, c.links)
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return err
	}
	if err := fn(c.records.WithTx(tx), c.links.WithTx(tx)); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

// CopyRecord duplicates one record: system fields, user-excluded fields and
// virtual columns are dropped, a new id is allocated, and relations are
// copied when requested.
func (c *Client) CopyRecord(ctx context.Context, tableID, recordID string, opts Options) (record.Record, error) {
	var out record.Record
	err := c.inTx(ctx, func(recs *record.Client, lnks *link.Client) error {
		s := &session{visited: make(map[string]string)}
		newID, err := c.copyOne(ctx, recs, lnks, tableID, recordID, opts, s, 0)
		if err != nil {
			return err
		}
		out, err = recs.ReadByPk(ctx, tableID, newID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeepCopy is CopyRecord with deep relation cloning enabled.
func (c *Client) DeepCopy(ctx context.Context, tableID, recordID string, opts Options) (record.Record, error) {
	opts.WithRelations = true
	opts.Deep = true
	return c.CopyRecord(ctx, tableID, recordID, opts)
}

// CopyRelations re-creates sourceID's MM relations on targetID: shallow
// re-links to the same children, or deep clones them up to MaxDepth. A
// per-column failure is logged and skipped; the remaining columns still
// copy.
func (c *Client) CopyRelations(ctx context.Context, tableID, sourceID, targetID string, opts Options) error {
	return c.inTx(ctx, func(recs *record.Client, lnks *link.Client) error {
		s := &session{visited: map[string]string{sourceID: targetID}}
		return c.copyRelations(ctx, recs, lnks, tableID, sourceID, targetID, opts, s, 0)
	})
}

// copyOne clones one record and, when requested, its relations. Revisiting
// an already-cloned source short-circuits to the cached target id.
func (c *Client) copyOne(ctx context.Context, recs *record.Client, lnks *link.Client, tableID, sourceID string, opts Options, s *session, depth int) (string, error) {
	if cloned, ok := s.visited[sourceID]; ok {
		return cloned, nil
	}
	src, err := recs.ReadByPk(ctx, tableID, sourceID)
	if err != nil {
		return "", err
	}
	t := recs.Compiler().Model.Table(tableID)
	if t == nil {
		return "", fmt.Errorf("recordcopy: table %q not in schema", tableID)
	}

	data := record.Record{}
	for k, v := range src {
		if systemFields[k] || excluded(opts.ExcludeFields, k) || isVirtualKey(t, k) {
			continue
		}
		data[k] = v
	}
	inserted, err := recs.Insert(ctx, tableID, data)
	if err != nil {
		return "", err
	}
	s.visited[sourceID] = inserted.ID()

	if opts.WithRelations {
		if err := c.copyRelations(ctx, recs, lnks, tableID, sourceID, inserted.ID(), opts, s, depth); err != nil {
			return "", err
		}
	}
	return inserted.ID(), nil
}

func (c *Client) copyRelations(ctx context.Context, recs *record.Client, lnks *link.Client, tableID, sourceID, targetID string, opts Options, s *session, depth int) error {
	t := recs.Compiler().Model.Table(tableID)
	if t == nil {
		return fmt.Errorf("recordcopy: table %q not in schema", tableID)
	}
	for _, col := range t.Columns {
		if col.Link == nil || col.Link.Type != schema.LinkManyToMany || col.Kind != schema.KindLinkToRecord {
			continue
		}
		if err := c.copyColumnRelations(ctx, recs, lnks, t, col, sourceID, targetID, opts, s, depth); err != nil {
			// The primary copy stands even when one relation column fails.
			c.log.Warn("relation copy failed",
				"table", tableID, "column", col.ID, "source", sourceID, "err", err)
		}
	}
	return nil
}

func (c *Client) copyColumnRelations(ctx context.Context, recs *record.Client, lnks *link.Client, t *schema.Table, col *schema.Column, sourceID, targetID string, opts Options, s *session, depth int) error {
	edges, err := lnks.Edges(ctx, t.ID, col.ID, []string{sourceID})
	if err != nil {
		return err
	}
	if len(edges) == 0 {
		return nil
	}

	childIDs := make([]string, 0, len(edges))
	for _, e := range edges {
		childIDs = append(childIDs, e.TargetID)
	}

	if !opts.Deep || depth >= opts.maxDepth() {
		// Shallow, or the depth overflow case: link the copy to the same
		// existing children.
		return lnks.MMLink(ctx, t.ID, col.ID, targetID, childIDs)
	}

	newChildren := make([]string, 0, len(childIDs))
	for _, childID := range childIDs {
		cloned, err := c.copyOne(ctx, recs, lnks, col.Link.RelatedTableID, childID, opts, s, depth+1)
		if err != nil {
			return err
		}
		newChildren = append(newChildren, cloned)
	}
	return lnks.MMLink(ctx, t.ID, col.ID, targetID, newChildren)
}

// CopyTable bulk-clones every row under srcTableID into tgtTableID and
// returns the source-to-clone id mapping. Relations are not carried; the
// clones are plain rows of the target table.
func (c *Client) CopyTable(ctx context.Context, srcTableID, tgtTableID string, opts Options) (map[string]string, error) {
	mapping := make(map[string]string)
	err := c.inTx(ctx, func(recs *record.Client, lnks *link.Client) error {
		srcTable := recs.Compiler().Model.Table(srcTableID)
		if srcTable == nil {
			return fmt.Errorf("recordcopy: table %q not in schema", srcTableID)
		}
		if recs.Compiler().Model.Table(tgtTableID) == nil {
			return fmt.Errorf("recordcopy: table %q not in schema", tgtTableID)
		}
		ids, err := recs.IDs(ctx, srcTableID, record.ListArgs{})
		if err != nil {
			return err
		}
		for _, sourceID := range ids {
			src, err := recs.ReadByPk(ctx, srcTableID, sourceID)
			if err != nil {
				return err
			}
			data := record.Record{}
			for k, v := range src {
				if systemFields[k] || excluded(opts.ExcludeFields, k) || isVirtualKey(srcTable, k) {
					continue
				}
				data[k] = v
			}
			inserted, err := recs.Insert(ctx, tgtTableID, data)
			if err != nil {
				return err
			}
			mapping[sourceID] = inserted.ID()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mapping, nil
}

func excluded(fields []string, key string) bool {
	for _, f := range fields {
		if f == key {
			return true
		}
	}
	return false
}

func isVirtualKey(t *schema.Table, key string) bool {
	col := t.ColumnByTitleOrStorage(key)
	return col != nil && col.IsVirtual()
}
