package dialect

import "context"

// Supported dialect names, matched against database/sql driver names.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite3"
)

// Driver is the interface every dialect driver (and transaction) implements.
type Driver interface {
	// Exec executes a query that doesn't return records, e.g insert, update, delete.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns records, e.g. select.
	Query(ctx context.Context, query string, args, v any) error
	// Tx starts a transaction.
	Tx(ctx context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx is the interface implemented by a started transaction. A Tx is itself
// a Driver so compiled queries run identically in and out of a transaction.
type Tx interface {
	Driver
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction.
	Rollback() error
}

// ExecQuerier wraps the Exec and Query methods, the common surface shared
// by Driver and Tx.
type ExecQuerier interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
}

// NopCloser wraps a Driver without a Close behavior, useful for wrapping a
// driver that is shared and should not be closed by a single caller.
type NopCloser struct {
	Driver
}

// Close is a no-op.
func (NopCloser) Close() error { return nil }
