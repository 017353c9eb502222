// Package dialect provides the database dialect abstraction for gridbase.
//
// This package defines the interfaces and types used for database-specific
// operations, allowing the engine to support multiple backends:
// PostgreSQL (primary target), MySQL, and SQLite.
//
// # Dialect Constants
//
// Each dialect is identified by a constant string matched against
// database/sql driver names:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite3"
//
// # Driver Interface
//
// The Driver interface is the engine's sole view of the backend:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// A Tx is itself a Driver, so compiled queries run identically in and out
// of a transaction:
//
//	type Tx interface {
//	    Driver
//	    Commit() error
//	    Rollback() error
//	}
//
// # Usage
//
// Opening a database connection:
//
//	import (
//	    "github.com/gridbase/gridbase/dialect"
//	    "github.com/gridbase/gridbase/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
//	client := gridbase.New(drv, model)
//
// # Sub-packages
//
//   - dialect/sql: SQL statement builders and the database/sql driver
//   - dialect/sql/sqlgraph: driver-specific constraint-error classification
package dialect
