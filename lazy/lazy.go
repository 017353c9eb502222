// Package lazy eliminates the N+1 pattern when a caller wants parent
// records plus their link-children: one query fetches all edges for a batch
// of parents, one more fetches every referenced child, and the children are
// grouped per parent in memory.
//
// A Loader is request-scoped. Its cache is instance-local with no TTL — a
// memoization layer for one request, not a process-global cache.
package lazy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gridbase/gridbase/contrib/dataloader"
	"github.com/gridbase/gridbase/link"
	"github.com/gridbase/gridbase/record"
)

// Loader batches relation loads for sets of parent records, caching per
// column.
type Loader struct {
	records *record.Client
	links   *link.Client
	log     *slog.Logger

	// scope identifies this loader instance in debug logs, since several
	// request-scoped loaders may interleave on one process.
	scope string

	// cache is column id -> parent id -> children.
	cache map[string]map[string][]record.Record
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(ld *Loader) { ld.log = l } }

// NewLoader returns an empty request-scoped loader.
func NewLoader(records *record.Client, links *link.Client, opts ...Option) *Loader {
	ld := &Loader{
		records: records,
		links:   links,
		log:     slog.Default(),
		scope:   uuid.NewString(),
		cache:   make(map[string]map[string][]record.Record),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// ClearCache drops the cached children for one column, or for every column
// when no id is given.
func (ld *Loader) ClearCache(columnIDs ...string) {
	if len(columnIDs) == 0 {
		ld.cache = make(map[string]map[string][]record.Record)
		return
	}
	for _, id := range columnIDs {
		delete(ld.cache, id)
	}
}

// BatchLoadRelated loads the link-children of every parent for one MM
// column: one edge query, one child-records query, then an in-memory group
// by parent id. Results are cached per (column, parent) for the loader's
// lifetime; parents already cached are not re-fetched.
func (ld *Loader) BatchLoadRelated(ctx context.Context, tableID, columnID string, parents []record.Record) (map[string][]record.Record, error) {
	colCache := ld.cache[columnID]
	if colCache == nil {
		colCache = make(map[string][]record.Record)
		ld.cache[columnID] = colCache
	}

	var missing []string
	for _, p := range parents {
		if _, ok := colCache[p.ID()]; !ok {
			missing = append(missing, p.ID())
		}
	}
	if len(missing) > 0 {
		if err := ld.loadInto(ctx, tableID, columnID, missing, colCache); err != nil {
			return nil, err
		}
	} else {
		ld.log.Debug("relation batch served from cache", "scope", ld.scope, "column", columnID)
	}

	out := make(map[string][]record.Record, len(parents))
	for _, p := range parents {
		out[p.ID()] = colCache[p.ID()]
	}
	return out, nil
}

func (ld *Loader) loadInto(ctx context.Context, tableID, columnID string, parentIDs []string, colCache map[string][]record.Record) error {
	edges, err := ld.links.Edges(ctx, tableID, columnID, parentIDs)
	if err != nil {
		return err
	}

	grouped := dataloader.GroupByKey(edges, func(e link.Edge) string { return e.SourceID })

	childIDs := make([]string, 0, len(edges))
	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		if !seen[e.TargetID] {
			seen[e.TargetID] = true
			childIDs = append(childIDs, e.TargetID)
		}
	}

	byID := make(map[string]record.Record, len(childIDs))
	if len(childIDs) > 0 {
		relatedTableID, err := ld.relatedTable(tableID, columnID)
		if err != nil {
			return err
		}
		children, err := ld.records.ByIDs(ctx, relatedTableID, childIDs)
		if err != nil {
			return err
		}
		for _, child := range children {
			byID[child.ID()] = child
		}
	}

	for _, parentID := range parentIDs {
		var kids []record.Record
		for _, e := range grouped[parentID] {
			if child, ok := byID[e.TargetID]; ok {
				kids = append(kids, child)
			}
		}
		colCache[parentID] = kids
	}
	return nil
}

func (ld *Loader) relatedTable(tableID, columnID string) (string, error) {
	t := ld.records.Compiler().Model.Table(tableID)
	if t == nil {
		return "", fmt.Errorf("lazy: table %q not in schema", tableID)
	}
	col := t.Column(columnID)
	if col == nil || col.Link == nil {
		return "", fmt.Errorf("lazy: column %q on table %q is not a link column", columnID, tableID)
	}
	return col.Link.RelatedTableID, nil
}

// ListWithRelations composes a list with one batched relation load per
// requested link column. Children land on each parent record under the link
// column's storage name.
func (ld *Loader) ListWithRelations(ctx context.Context, tableID string, args record.ListArgs, preloadRelations []string) ([]record.Record, error) {
	parents, err := ld.records.List(ctx, tableID, args)
	if err != nil {
		return nil, err
	}
	if err := ld.attach(ctx, tableID, parents, preloadRelations); err != nil {
		return nil, err
	}
	return parents, nil
}

// ReadByPkWithRelations reads one record and loads its children for each
// requested link column.
func (ld *Loader) ReadByPkWithRelations(ctx context.Context, tableID, recordID string, loadRelations []string) (record.Record, error) {
	rec, err := ld.records.ReadByPk(ctx, tableID, recordID)
	if err != nil {
		return nil, err
	}
	if err := ld.attach(ctx, tableID, []record.Record{rec}, loadRelations); err != nil {
		return nil, err
	}
	return rec, nil
}

func (ld *Loader) attach(ctx context.Context, tableID string, parents []record.Record, columnIDs []string) error {
	if len(parents) == 0 {
		return nil
	}
	t := ld.records.Compiler().Model.Table(tableID)
	for _, columnID := range columnIDs {
		byParent, err := ld.BatchLoadRelated(ctx, tableID, columnID, parents)
		if err != nil {
			return err
		}
		key := columnID
		if col := t.Column(columnID); col != nil {
			key = col.StorageName
		}
		for _, p := range parents {
			p[key] = byParent[p.ID()]
		}
	}
	return nil
}
