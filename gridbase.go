package gridbase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gridbase/gridbase/compile"
	"github.com/gridbase/gridbase/compile/formula"
	"github.com/gridbase/gridbase/compile/legacy"
	"github.com/gridbase/gridbase/dialect"
	sqlb "github.com/gridbase/gridbase/dialect/sql"
	"github.com/gridbase/gridbase/id"
	"github.com/gridbase/gridbase/lazy"
	"github.com/gridbase/gridbase/link"
	"github.com/gridbase/gridbase/record"
	"github.com/gridbase/gridbase/recordcopy"
	"github.com/gridbase/gridbase/sanitize"
	"github.com/gridbase/gridbase/schema"
)

// Bundle selects which operation layers a Client composes. Each bundle
// includes everything below it; Full also wires the versioned schema store.
type Bundle int

const (
	// BundleMinimal wires record operations only.
	BundleMinimal Bundle = iota
	// BundleDefault adds link operations.
	BundleDefault
	// BundleLazy adds the request-scoped relation loader.
	BundleLazy
	// BundleCopy adds the copy operations.
	BundleCopy
	// BundleFull adds the versioned schema store.
	BundleFull
)

// Client is the composition root: it binds an immutable schema snapshot, a
// database handle, and optionally an explicit transaction for the duration
// of one request, and exposes the operation layers the chosen bundle
// includes. Layers outside the bundle are nil.
type Client struct {
	drv      dialect.Driver
	compiler *compile.Compiler
	log      *slog.Logger
	bundle   Bundle
	stats    *sqlb.StatsDriver

	// Records is always present.
	Records *record.Client
	// Links is present from BundleDefault up.
	Links *link.Client
	// Copies is present from BundleCopy up.
	Copies *recordcopy.Client
	// Schemas is present in BundleFull.
	Schemas *schema.Store
}

// Option configures a Client.
type Option func(*config)

type config struct {
	bundle     Bundle
	log        *slog.Logger
	registry   *formula.Registry
	recordOpts []record.Option
	schemas    *schema.Store
	stats      bool
	statsOpts  []sqlb.StatsOption
	debug      bool
	debugOpts  []sqlb.DebugOption
}

// WithBundle selects the operation bundle; BundleDefault if unset.
func WithBundle(b Bundle) Option { return func(c *config) { c.bundle = b } }

// WithLogger sets the logger threaded through every layer.
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.log = l } }

// WithFormulaRegistry overrides the formula function registry — the place a
// caller opts into strict unknown-function handling or plugs in extra
// functions, declared once at construction.
func WithFormulaRegistry(r *formula.Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithRecordOptions forwards options to the record layer (limits, clocks,
// id generation).
func WithRecordOptions(opts ...record.Option) Option {
	return func(c *config) { c.recordOpts = append(c.recordOpts, opts...) }
}

// WithSchemaStore supplies an existing schema store instead of a fresh one
// (BundleFull only).
func WithSchemaStore(s *schema.Store) Option { return func(c *config) { c.schemas = s } }

// WithQueryStats wraps the driver with the query-statistics decorator so
// every query and exec the engine issues is counted and timed. Read the
// collected numbers through Client.QueryStats.
func WithQueryStats(opts ...sqlb.StatsOption) Option {
	return func(c *config) {
		c.stats = true
		c.statsOpts = append(c.statsOpts, opts...)
	}
}

// WithDebug wraps the driver with the debug-logging decorator, logging
// every statement before it runs.
func WithDebug(opts ...sqlb.DebugOption) Option {
	return func(c *config) {
		c.debug = true
		c.debugOpts = append(c.debugOpts, opts...)
	}
}

// New composes a Client over drv and an immutable schema snapshot. The
// snapshot is never mutated by operations; schema editing produces new
// snapshots through the schema package and a new Client binds them.
func New(drv dialect.Driver, model *schema.Model, opts ...Option) *Client {
	cfg := config{bundle: BundleDefault, log: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.debug {
		drv = sqlb.NewDebugDriver(drv, cfg.debugOpts...)
	}
	var stats *sqlb.StatsDriver
	if cfg.stats {
		stats = sqlb.NewStatsDriver(drv, cfg.statsOpts...)
		drv = stats
	}

	compiler := compile.New(model, drv.Dialect())
	formula.Install(compiler, cfg.registry, cfg.log)

	recordOpts := append([]record.Option{record.WithLogger(cfg.log)}, cfg.recordOpts...)
	c := &Client{
		drv:      drv,
		compiler: compiler,
		log:      cfg.log,
		bundle:   cfg.bundle,
		stats:    stats,
		Records:  record.NewClient(drv, compiler, recordOpts...),
	}
	if cfg.bundle >= BundleDefault {
		c.Links = link.NewClient(c.Records, link.WithLogger(cfg.log))
	}
	if cfg.bundle >= BundleCopy {
		c.Copies = recordcopy.NewClient(c.Records, c.Links, recordcopy.WithLogger(cfg.log))
	}
	if cfg.bundle >= BundleFull {
		c.Schemas = cfg.schemas
		if c.Schemas == nil {
			c.Schemas = schema.NewStore(id.New, nil)
		}
	}
	return c
}

// Loader returns a fresh request-scoped relation loader (BundleLazy and
// up), or nil below it. Each call is a new instance with its own cache.
func (c *Client) Loader() *lazy.Loader {
	if c.bundle < BundleLazy || c.Links == nil {
		return nil
	}
	return lazy.NewLoader(c.Records, c.Links, lazy.WithLogger(c.log))
}

// QueryStats returns the statistics collected by the WithQueryStats
// decorator, or nil when it was not enabled.
func (c *Client) QueryStats() *sqlb.QueryStats {
	if c.stats == nil {
		return nil
	}
	return c.stats.QueryStats()
}

// Model returns the bound schema snapshot.
func (c *Client) Model() *schema.Model { return c.compiler.Model }

// Dialect returns the bound SQL dialect name.
func (c *Client) Dialect() string { return c.compiler.Dialect }

// Tx opens a transaction and returns a transaction-scoped Client sharing
// this one's snapshot and configuration. Commit or roll back the returned
// Tx; the derived Client dies with it.
func (c *Client) Tx(ctx context.Context) (*Client, dialect.Tx, error) {
	if _, ok := c.drv.(dialect.Tx); ok {
		return nil, nil, ErrTxStarted
	}
	tx, err := c.drv.Tx(ctx)
	if err != nil {
		return nil, nil, err
	}
	clone := *c
	clone.drv = tx
	clone.Records = c.Records.WithTx(tx)
	if c.Links != nil {
		clone.Links = c.Links.WithTx(tx)
	}
	if c.Copies != nil {
		clone.Copies = recordcopy.NewClient(clone.Records, clone.Links, recordcopy.WithLogger(c.log))
	}
	return &clone, tx, nil
}

// ParseListArgs converts the legacy where-string and sort-string grammars
// into record list arguments. It is a compatibility shim for callers still
// holding "(field,op,value)~and(...)" filters and "+f,-f" sorts.
func ParseListArgs(where, sort string) record.ListArgs {
	args := record.ListArgs{}
	if where != "" {
		f := legacy.ParseWhere(where)
		args.Filter = &f
	}
	if sort != "" {
		args.Sorts = legacy.ParseSort(sort)
	}
	return args
}

// Classify maps any engine error onto the transport-agnostic Kind taxonomy:
// a KindError reports its own Kind, the lower layers' sentinel errors map to
// the corresponding Kind, and anything else is KindInternal. The error
// itself is not converted.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var ke KindError
	if errors.As(err, &ke) {
		return ke.Kind()
	}
	switch {
	case errors.Is(err, record.ErrNotFound),
		errors.Is(err, schema.ErrTableNotFound),
		errors.Is(err, schema.ErrColumnNotFound),
		errors.Is(err, schema.ErrSchemaNotFound),
		errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, record.ErrConflict),
		errors.Is(err, schema.ErrTableExists),
		errors.Is(err, schema.ErrColumnExists):
		return KindConflict
	case errors.Is(err, record.ErrTableGone),
		errors.Is(err, link.ErrNotLinkColumn),
		errors.Is(err, ErrInvalidIdentifier),
		isInvalidIdentifier(err):
		return KindBadRequest
	default:
		return KindInternal
	}
}

func isInvalidIdentifier(err error) bool {
	var e *sanitize.ErrInvalidIdentifier
	return errors.As(err, &e)
}
