// Package record implements the record-operations layer: CRUD, list/count,
// bulk insert/update/delete, and group-by aggregation over logical records
// stored in the fixed records table. It consults the schema snapshot for
// system/user column separation and the compile package for every SQL
// fragment it assembles; values are always parameter-bound.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridbase/gridbase/compile"
	"github.com/gridbase/gridbase/dialect"
	sqlb "github.com/gridbase/gridbase/dialect/sql"
	"github.com/gridbase/gridbase/dialect/sql/sqlgraph"
	"github.com/gridbase/gridbase/id"
	"github.com/gridbase/gridbase/sanitize"
	"github.com/gridbase/gridbase/schema"
)

// Record is one logical record: system fields under their physical names
// (id, created_at, ...), user fields under their column storage names, and
// virtual fields under their storage names when projection includes them.
type Record map[string]any

// ID returns the record's id, or "" if absent.
func (r Record) ID() string {
	s, _ := r["id"].(string)
	return s
}

// Sentinel errors. The model façade classifies these into its transport
// taxonomy at the boundary; this package stays below it.
var (
	ErrNotFound  = errors.New("record: record not found")
	ErrConflict  = errors.New("record: conflict")
	ErrTableGone = errors.New("record: table not in schema")
)

// Alias is the row alias every compiled query binds the records table to.
const Alias = "r"

// Client executes record operations against one schema snapshot and one
// backend handle. It is immutable after construction; WithTx derives a
// transaction-scoped copy sharing everything but the driver.
type Client struct {
	drv      dialect.Driver
	compiler *compile.Compiler
	log      *slog.Logger
	newID    func() string
	now      func() time.Time

	limitDefault int
	limitMin     int
	limitMax     int
	virtual      bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger compiler degradations and bulk skips are
// reported to.
func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

// WithIDFunc overrides the id generator, for deterministic tests.
func WithIDFunc(fn func() string) Option { return func(c *Client) { c.newID = fn } }

// WithClock overrides the wall clock, for deterministic tests.
func WithClock(fn func() time.Time) Option { return func(c *Client) { c.now = fn } }

// WithLimits sets the [min, max] clamp and default for list pagination.
func WithLimits(min, def, max int) Option {
	return func(c *Client) {
		c.limitMin, c.limitDefault, c.limitMax = min, def, max
	}
}

// WithVirtualColumns toggles projecting virtual columns on reads.
func WithVirtualColumns(enabled bool) Option {
	return func(c *Client) { c.virtual = enabled }
}

// NewClient returns a Client bound to drv and the compiler's schema
// snapshot.
func NewClient(drv dialect.Driver, compiler *compile.Compiler, opts ...Option) *Client {
	c := &Client{
		drv:          drv,
		compiler:     compiler,
		log:          slog.Default(),
		newID:        id.New,
		now:          time.Now,
		limitDefault: 25,
		limitMin:     1,
		limitMax:     1000,
		virtual:      true,
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
	return &clone
}

// Driver exposes the underlying driver (or transaction) for sibling layers
// that share it.
func (c *Client) Driver() dialect.Driver { return c.drv }

// Compiler exposes the bound compiler for sibling layers.
func (c *Client) Compiler() *compile.Compiler { return c.compiler }

// Tx opens a transaction on the underlying driver and returns both it and a
// transaction-scoped client. It fails if the client is already
// transaction-scoped.
func (c *Client) Tx(ctx context.Context) (dialect.Tx, *Client, error) {
	if _, ok := c.drv.(dialect.Tx); ok {
		return nil, nil, errors.New("record: cannot start a transaction within a transaction")
	}
	tx, err := c.drv.Tx(ctx)
	if err != nil {
		return nil, nil, err
	}
	return tx, c.WithTx(tx), nil
}

func (c *Client) table(tableID string) (*schema.Table, error) {
	t := c.compiler.Model.Table(tableID)
	if t == nil {
		return nil, fmt.Errorf("%w: %q", ErrTableGone, tableID)
	}
	return t, nil
}

// ListArgs parameterizes List/Count/FindOne and the *All bulk operations.
type ListArgs struct {
	Filter *compile.Filter
	Sorts  []compile.SortTerm
	Fields []string
	Limit  int
	Offset int
}

// ReadByPk returns the logical record with the given id, or ErrNotFound.
// Virtual columns are projected when enabled; fields, when non-empty,
// restricts the returned keys (id is always kept).
func (c *Client) ReadByPk(ctx context.Context, tableID, recordID string, fields ...string) (Record, error) {
	t, err := c.table(tableID)
	if err != nil {
		return nil, err
	}
	sel, err := c.selector(t, fields)
	if err != nil {
		return nil, err
	}
	sel.Where(sqlb.EQ(Alias+".id", recordID)).Limit(1)
	recs, err := c.queryRecords(ctx, t, sel, fields)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, tableID, recordID)
	}
	return recs[0], nil
}

// Exists reports whether a record with the given id exists in the table.
func (c *Client) Exists(ctx context.Context, tableID, recordID string) (bool, error) {
	t, err := c.table(tableID)
	if err != nil {
		return false, err
	}
	sel := c.compiler.CreateQueryBuilder(t, Alias, Alias+".id").
		Where(sqlb.EQ(Alias+".id", recordID)).
		Limit(1)
	query, args := sel.Query()
	var rows sqlb.Rows
	if err := c.drv.Query(ctx, query, args, &rows); err != nil {
		return false, err
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}

// Insert sanitizes and shreds data, writes the physical row, and returns a
// fresh read of it. The id is server-assigned unless supplied.
func (c *Client) Insert(ctx context.Context, tableID string, data Record) (Record, error) {
	t, err := c.table(tableID)
	if err != nil {
		return nil, err
	}
	sys, userData, err := c.shred(t, data)
	if err != nil {
		return nil, err
	}
	if sys.id == "" {
		sys.id = c.newID()
	}
	now := c.now().UTC()
	if sys.createdAt.IsZero() {
		sys.createdAt = now
	}
	sys.updatedAt = now
	if sys.createdBy == "" {
		sys.createdBy, _ = ActorFromContext(ctx)
	}

	blob, err := json.Marshal(userData)
	if err != nil {
		return nil, fmt.Errorf("record: encode data blob: %w", err)
	}
	ins := sqlb.Dialect(c.compiler.Dialect).
		Insert(compile.RecordsTable).
		Columns("id", "table_id", "data", "created_at", "updated_at", "created_by", "updated_by").
		Values(sys.id, t.ID, string(blob), sys.createdAt, sys.updatedAt, nullable(sys.createdBy), nullable(sys.updatedBy))
	query, args := ins.Query()
	if err := c.drv.Exec(ctx, query, args, nil); err != nil {
		return nil, c.classify("insert", err)
	}
	return c.ReadByPk(ctx, tableID, sys.id)
}

// UpdateByPk merges data over the existing record's blob, rewrites the
// modification system columns, and returns a fresh read. ErrNotFound if the
// row is absent.
func (c *Client) UpdateByPk(ctx context.Context, tableID, recordID string, data Record) (Record, error) {
	t, err := c.table(tableID)
	if err != nil {
		return nil, err
	}
	existing, err := c.rawBlob(ctx, t, recordID)
	if err != nil {
		return nil, err
	}
	sys, userData, err := c.shred(t, data)
	if err != nil {
		return nil, err
	}
	for k, v := range userData {
		existing[k] = v
	}
	updatedBy := sys.updatedBy
	if updatedBy == "" {
		updatedBy, _ = ActorFromContext(ctx)
	}

	blob, err := json.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("record: encode data blob: %w", err)
	}
	upd := sqlb.Dialect(c.compiler.Dialect).
		Update(compile.RecordsTable).
		Set("data", string(blob)).
		Set("updated_at", c.now().UTC()).
		Set("updated_by", nullable(updatedBy)).
		Where(sqlb.And(sqlb.EQ("id", recordID), sqlb.EQ("table_id", t.ID)))
	query, args := upd.Query()
	var res sqlb.Result
	if err := c.drv.Exec(ctx, query, args, &res); err != nil {
		return nil, c.classify("updateByPk", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, tableID, recordID)
	}
	return c.ReadByPk(ctx, tableID, recordID)
}

// DeleteByPk physically deletes the row, scoped by id and table_id, and
// returns the number of rows removed. ErrNotFound if the row was absent.
func (c *Client) DeleteByPk(ctx context.Context, tableID, recordID string) (int, error) {
	t, err := c.table(tableID)
	if err != nil {
		return 0, err
	}
	del := sqlb.Dialect(c.compiler.Dialect).
		Delete(compile.RecordsTable).
		Where(sqlb.And(sqlb.EQ("id", recordID), sqlb.EQ("table_id", t.ID)))
	query, args := del.Query()
	var res sqlb.Result
	if err := c.drv.Exec(ctx, query, args, &res); err != nil {
		return 0, c.classify("deleteByPk", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %s/%s", ErrNotFound, tableID, recordID)
	}
	return int(n), nil
}

// List assembles and runs the filtered, sorted, paginated SELECT for the
// table. ignoreFilterSort drops args.Filter and args.Sorts, keeping only
// pagination — used by callers that already scoped the query.
func (c *Client) List(ctx context.Context, tableID string, args ListArgs, ignoreFilterSort ...bool) ([]Record, error) {
	t, err := c.table(tableID)
	if err != nil {
		return nil, err
	}
	sel, err := c.selectorWithArgs(t, args, len(ignoreFilterSort) > 0 && ignoreFilterSort[0])
	if err != nil {
		return nil, err
	}
	sel.Limit(c.clampLimit(args.Limit)).Offset(max(args.Offset, 0))
	return c.queryRecords(ctx, t, sel, args.Fields)
}

// Count runs COUNT(*) under the same predicate stack as List.
func (c *Client) Count(ctx context.Context, tableID string, args ListArgs, ignoreFilterSort ...bool) (int, error) {
	t, err := c.table(tableID)
	if err != nil {
		return 0, err
	}
	sel := c.compiler.CreateQueryBuilder(t, Alias, "COUNT(*)")
	if !(len(ignoreFilterSort) > 0 && ignoreFilterSort[0]) && args.Filter != nil {
		pred, err := c.compiler.Condition(*args.Filter, t, Alias)
		if err != nil {
			return 0, err
		}
		sel.Where(pred)
	}
	query, qargs := sel.Query()
	var rows sqlb.Rows
	if err := c.drv.Query(ctx, query, qargs, &rows); err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, rows.Err()
	}
	var n int
	if err := rows.Scan(&n); err != nil {
		return 0, err
	}
	return n, rows.Err()
}

// FindOne returns the first record matching args, or ErrNotFound.
func (c *Client) FindOne(ctx context.Context, tableID string, args ListArgs) (Record, error) {
	args.Limit = 1
	recs, err := c.List(ctx, tableID, args)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, tableID)
	}
	return recs[0], nil
}

// ListWhere behaves like List with an additional predicate ANDed into the
// WHERE stack — the hook the link layer uses to scope a target-table list to
// a parent's linked (or excluded) set.
func (c *Client) ListWhere(ctx context.Context, tableID string, args ListArgs, extra sqlb.P) ([]Record, error) {
	t, err := c.table(tableID)
	if err != nil {
		return nil, err
	}
	sel, err := c.selectorWithArgs(t, args, false)
	if err != nil {
		return nil, err
	}
	sel.Where(extra)
	sel.Limit(c.clampLimit(args.Limit)).Offset(max(args.Offset, 0))
	return c.queryRecords(ctx, t, sel, args.Fields)
}

// CountWhere behaves like Count with an additional predicate ANDed in.
func (c *Client) CountWhere(ctx context.Context, tableID string, args ListArgs, extra sqlb.P) (int, error) {
	t, err := c.table(tableID)
	if err != nil {
		return 0, err
	}
	sel := c.compiler.CreateQueryBuilder(t, Alias, "COUNT(*)")
	if args.Filter != nil {
		pred, err := c.compiler.Condition(*args.Filter, t, Alias)
		if err != nil {
			return 0, err
		}
		sel.Where(pred)
	}
	sel.Where(extra)
	query, qargs := sel.Query()
	var rows sqlb.Rows
	if err := c.drv.Query(ctx, query, qargs, &rows); err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, rows.Err()
	}
	var n int
	if err := rows.Scan(&n); err != nil {
		return 0, err
	}
	return n, rows.Err()
}

// selector builds the base SELECT (system columns plus enabled virtual
// projections) with the table-isolation predicate applied.
func (c *Client) selector(t *schema.Table, fields []string) (*sqlb.Selector, error) {
	cols := []string{
		Alias + ".id", Alias + ".table_id", Alias + ".data",
		Alias + ".created_at", Alias + ".updated_at",
		Alias + ".created_by", Alias + ".updated_by",
	}
	if c.virtual {
		for _, col := range t.Columns {
			if !col.IsVirtual() || col.Kind == schema.KindLinkToRecord {
				continue
			}
			if len(fields) > 0 && !fieldRequested(fields, col) {
				continue
			}
			expr, err := c.compiler.VirtualExpr(col, t, Alias)
			if err != nil {
				c.log.Warn("virtual column projection skipped", "table", t.ID, "column", col.ID, "err", err)
				continue
			}
			alias, err := sanitize.Identifier(col.StorageName)
			if err != nil {
				return nil, err
			}
			cols = append(cols, fmt.Sprintf(`%s AS %s`, expr, sqlb.Quote(c.compiler.Dialect, alias)))
		}
	}
	return c.compiler.CreateQueryBuilder(t, Alias, cols...), nil
}

func (c *Client) selectorWithArgs(t *schema.Table, args ListArgs, ignoreFilterSort bool) (*sqlb.Selector, error) {
	sel, err := c.selector(t, args.Fields)
	if err != nil {
		return nil, err
	}
	if ignoreFilterSort {
		return sel, nil
	}
	if args.Filter != nil {
		pred, err := c.compiler.Condition(*args.Filter, t, Alias)
		if err != nil {
			return nil, err
		}
		sel.Where(pred)
	}
	if len(args.Sorts) > 0 {
		if _, err := c.compiler.Sort(sel, args.Sorts, t, Alias); err != nil {
			return nil, err
		}
	}
	return sel, nil
}

func fieldRequested(fields []string, col *schema.Column) bool {
	for _, f := range fields {
		if f == col.ID || f == col.Title || f == col.StorageName {
			return true
		}
	}
	return false
}

func (c *Client) clampLimit(limit int) int {
	if limit <= 0 {
		return c.limitDefault
	}
	if limit < c.limitMin {
		return c.limitMin
	}
	if limit > c.limitMax {
		return c.limitMax
	}
	return limit
}

// rawBlob fetches the undecorated user-data blob for one row.
func (c *Client) rawBlob(ctx context.Context, t *schema.Table, recordID string) (map[string]any, error) {
	sel := c.compiler.CreateQueryBuilder(t, Alias, Alias+".data").
		Where(sqlb.EQ(Alias+".id", recordID)).
		Limit(1)
	query, args := sel.Query()
	var rows sqlb.Rows
	if err := c.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, t.ID, recordID)
	}
	var raw any
	if err := rows.Scan(&raw); err != nil {
		return nil, err
	}
	blob := map[string]any{}
	if b := asBytes(raw); len(b) > 0 {
		if err := json.Unmarshal(b, &blob); err != nil {
			return nil, fmt.Errorf("record: decode data blob: %w", err)
		}
	}
	return blob, nil
}

// classify folds backend constraint failures into ErrConflict so callers can
// branch without driver-specific knowledge.
func (c *Client) classify(op string, err error) error {
	if sqlgraph.IsConstraintError(err) {
		return fmt.Errorf("%w: %s: %v", ErrConflict, op, err)
	}
	return fmt.Errorf("record: %s: %w", op, err)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type actorKey struct{}

// WithActor returns a context carrying the acting user's id, recorded into
// created_by/updated_by on writes.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the acting user's id, if any.
func ActorFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(actorKey{}).(string)
	return s, ok
}
