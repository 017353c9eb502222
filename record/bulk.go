package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gridbase/gridbase/compile"
	"github.com/gridbase/gridbase/dialect"
	sqlb "github.com/gridbase/gridbase/dialect/sql"
	"github.com/gridbase/gridbase/schema"
)

// BulkOptions tunes the bulk operations.
type BulkOptions struct {
	// ChunkSize bounds how many rows one physical statement carries.
	// Defaults to 100.
	ChunkSize int
}

func (o BulkOptions) chunkSize() int {
	if o.ChunkSize <= 0 {
		return 100
	}
	return o.ChunkSize
}

// inTx runs fn inside the client's transaction if it already has one, or an
// engine-opened transaction that commits on success and rolls back on any
// error.
func (c *Client) inTx(ctx context.Context, fn func(txc *Client) error) error {
	if _, ok := c.drv.(dialect.Tx); ok {
		return fn(c)
	}
	tx, txc, err := c.Tx(ctx)
	if err != nil {
		return err
	}
	if err := fn(txc); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

// BulkInsert writes rows in chunks inside one transaction and rehydrates all
// inserted rows with a single trailing SELECT. A collision on a pre-supplied
// id fails the whole batch, leaving the table unchanged.
func (c *Client) BulkInsert(ctx context.Context, tableID string, rows []Record, opts BulkOptions) ([]Record, error) {
	t, err := c.table(tableID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	err = c.inTx(ctx, func(txc *Client) error {
		now := txc.now().UTC()
		actor, _ := ActorFromContext(ctx)
		for _, chunk := range chunks(len(rows), opts.chunkSize()) {
			ins := sqlb.Dialect(txc.compiler.Dialect).
				Insert(compile.RecordsTable).
				Columns("id", "table_id", "data", "created_at", "updated_at", "created_by", "updated_by")
			for _, row := range rows[chunk.lo:chunk.hi] {
				sys, userData, err := txc.shred(t, row)
				if err != nil {
					return err
				}
				if sys.id == "" {
					sys.id = txc.newID()
				}
				if sys.createdAt.IsZero() {
					sys.createdAt = now
				}
				if sys.createdBy == "" {
					sys.createdBy = actor
				}
				blob, err := json.Marshal(userData)
				if err != nil {
					return fmt.Errorf("record: encode data blob: %w", err)
				}
				ids = append(ids, sys.id)
				ins.Values(sys.id, t.ID, string(blob), sys.createdAt, now, nullable(sys.createdBy), nullable(sys.updatedBy))
			}
			query, args := ins.Query()
			if err := txc.drv.Exec(ctx, query, args, nil); err != nil {
				return txc.classify("bulkInsert", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.readByIDs(ctx, tableID, ids)
}

// BulkUpdate merges and writes each row carrying an id, dispatching per-row
// updates concurrently within a chunk under one transaction. Rows without an
// id and rows whose id matches nothing are skipped; only the rows actually
// updated are rehydrated by the trailing SELECT.
func (c *Client) BulkUpdate(ctx context.Context, tableID string, rows []Record, opts BulkOptions) ([]Record, error) {
	t, err := c.table(tableID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var updated []string
	err = c.inTx(ctx, func(txc *Client) error {
		for _, chunk := range chunks(len(rows), opts.chunkSize()) {
			results := make([]string, chunk.hi-chunk.lo)
			g, gctx := errgroup.WithContext(ctx)
			for i, row := range rows[chunk.lo:chunk.hi] {
				i, row := i, row
				g.Go(func() error {
					recordID := row.ID()
					if recordID == "" {
						txc.log.Warn("bulkUpdate row without id skipped", "table", t.ID)
						return nil
					}
					ok, err := txc.updateOne(gctx, t, recordID, row)
					if err != nil {
						return err
					}
					if ok {
						results[i] = recordID
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			for _, id := range results {
				if id != "" {
					updated = append(updated, id)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.readByIDs(ctx, tableID, updated)
}

// updateOne merges row over the stored blob and rewrites it. It reports
// false, nil for an unknown id (bulk semantics: silently skipped).
func (c *Client) updateOne(ctx context.Context, t *schema.Table, recordID string, row Record) (bool, error) {
	existing, err := c.rawBlob(ctx, t, recordID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	_, userData, err := c.shred(t, row)
	if err != nil {
		return false, err
	}
	for k, v := range userData {
		existing[k] = v
	}
	blob, err := json.Marshal(existing)
	if err != nil {
		return false, fmt.Errorf("record: encode data blob: %w", err)
	}
	actor, _ := ActorFromContext(ctx)
	upd := sqlb.Dialect(c.compiler.Dialect).
		Update(compile.RecordsTable).
		Set("data", string(blob)).
		Set("updated_at", c.now().UTC()).
		Set("updated_by", nullable(actor)).
		Where(sqlb.And(sqlb.EQ("id", recordID), sqlb.EQ("table_id", t.ID)))
	query, args := upd.Query()
	var res sqlb.Result
	if err := c.drv.Exec(ctx, query, args, &res); err != nil {
		return false, c.classify("bulkUpdate", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// BulkUpdateAll resolves the ids matching filterArgs, then issues one UPDATE
// per chunk of matched ids, merging patch into each row's blob. Returns the
// number of rows updated.
func (c *Client) BulkUpdateAll(ctx context.Context, tableID string, filterArgs ListArgs, patch Record, opts BulkOptions) (int, error) {
	t, err := c.table(tableID)
	if err != nil {
		return 0, err
	}
	ids, err := c.matchingIDs(ctx, t, filterArgs)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	_, userData, err := c.shred(t, patch)
	if err != nil {
		return 0, err
	}
	blob, err := json.Marshal(userData)
	if err != nil {
		return 0, fmt.Errorf("record: encode data blob: %w", err)
	}

	total := 0
	err = c.inTx(ctx, func(txc *Client) error {
		now := txc.now().UTC()
		actor, _ := ActorFromContext(ctx)
		for _, chunk := range chunks(len(ids), opts.chunkSize()) {
			upd := sqlb.Dialect(txc.compiler.Dialect).
				Update(compile.RecordsTable).
				Set("data", mergeBlobExpr(txc.compiler.Dialect, string(blob))).
				Set("updated_at", now).
				Set("updated_by", nullable(actor)).
				Where(sqlb.And(
					sqlb.In("id", anySlice(ids[chunk.lo:chunk.hi])...),
					sqlb.EQ("table_id", t.ID),
				))
			query, args := upd.Query()
			var res sqlb.Result
			if err := txc.drv.Exec(ctx, query, args, &res); err != nil {
				return txc.classify("bulkUpdateAll", err)
			}
			if n, err := res.RowsAffected(); err == nil {
				total += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// mergeBlobExpr yields the dialect's JSON merge assignment for the data
// column: a top-level jsonb concatenation on Postgres, and a recursive merge
// patch (JSON_MERGE_PATCH, json_patch) on MySQL and SQLite.
func mergeBlobExpr(dialectName, patchJSON string) any {
	switch dialectName {
	case dialect.Postgres:
		return sqlb.Expr(`"data"::jsonb || ?::jsonb`, patchJSON)
	case dialect.MySQL:
		return sqlb.Expr("JSON_MERGE_PATCH(`data`, ?)", patchJSON)
	default:
		return sqlb.Expr(`json_patch("data", ?)`, patchJSON)
	}
}

// BulkDelete deletes the given ids in chunks inside one transaction,
// returning how many rows were removed.
func (c *Client) BulkDelete(ctx context.Context, tableID string, ids []string, opts BulkOptions) (int, error) {
	t, err := c.table(tableID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	total := 0
	err = c.inTx(ctx, func(txc *Client) error {
		for _, chunk := range chunks(len(ids), opts.chunkSize()) {
			del := sqlb.Dialect(txc.compiler.Dialect).
				Delete(compile.RecordsTable).
				Where(sqlb.And(
					sqlb.In("id", anySlice(ids[chunk.lo:chunk.hi])...),
					sqlb.EQ("table_id", t.ID),
				))
			query, args := del.Query()
			var res sqlb.Result
			if err := txc.drv.Exec(ctx, query, args, &res); err != nil {
				return txc.classify("bulkDelete", err)
			}
			if n, err := res.RowsAffected(); err == nil {
				total += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// BulkDeleteAll deletes every row matching filterArgs, returning the count.
func (c *Client) BulkDeleteAll(ctx context.Context, tableID string, filterArgs ListArgs, opts BulkOptions) (int, error) {
	t, err := c.table(tableID)
	if err != nil {
		return 0, err
	}
	ids, err := c.matchingIDs(ctx, t, filterArgs)
	if err != nil {
		return 0, err
	}
	return c.BulkDelete(ctx, tableID, ids, opts)
}

// IDs resolves every id matching args' filter, unclamped.
func (c *Client) IDs(ctx context.Context, tableID string, args ListArgs) ([]string, error) {
	t, err := c.table(tableID)
	if err != nil {
		return nil, err
	}
	return c.matchingIDs(ctx, t, args)
}

// matchingIDs resolves every id matching the filter, unclamped — the *All
// operations act on the full match set, not one page of it.
func (c *Client) matchingIDs(ctx context.Context, t *schema.Table, args ListArgs) ([]string, error) {
	sel := c.compiler.CreateQueryBuilder(t, Alias, Alias+".id")
	if args.Filter != nil {
		pred, err := c.compiler.Condition(*args.Filter, t, Alias)
		if err != nil {
			return nil, err
		}
		sel.Where(pred)
	}
	query, qargs := sel.Query()
	var rows sqlb.Rows
	if err := c.drv.Query(ctx, query, qargs, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ByIDs rehydrates the rows with the given ids in one SELECT — the batched
// read the lazy loader and copy operations lean on.
func (c *Client) ByIDs(ctx context.Context, tableID string, ids []string) ([]Record, error) {
	return c.readByIDs(ctx, tableID, ids)
}

// readByIDs rehydrates a set of rows with one SELECT, preserving no
// particular order.
func (c *Client) readByIDs(ctx context.Context, tableID string, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	t, err := c.table(tableID)
	if err != nil {
		return nil, err
	}
	sel, err := c.selector(t, nil)
	if err != nil {
		return nil, err
	}
	sel.Where(sqlb.In(Alias+".id", anySlice(ids)...))
	return c.queryRecords(ctx, t, sel, nil)
}

type span struct{ lo, hi int }

// chunks returns [lo, hi) spans of size at most n covering total.
func chunks(total, n int) []span {
	out := make([]span, 0, (total+n-1)/n)
	for lo := 0; lo < total; lo += n {
		hi := lo + n
		if hi > total {
			hi = total
		}
		out = append(out, span{lo, hi})
	}
	return out
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
