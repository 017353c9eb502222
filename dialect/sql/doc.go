// Package sql provides SQL statement building primitives and the
// database/sql-backed driver implementation.
//
// This package is the foundation for generating and executing the physical
// SQL the engine's compilers assemble, across PostgreSQL, MySQL, and
// SQLite. It provides a fluent API for constructing parameterized
// statements.
//
// # Builder Types
//
// The package provides specialized builders for different SQL operations:
//
//   - Builder: low-level SQL string builder with identifier quoting
//   - Selector: SELECT builder with joins, predicates, and pagination
//   - InsertBuilder: INSERT builder with RETURNING and upsert support
//   - UpdateBuilder: UPDATE builder with SET and WHERE clauses
//   - DeleteBuilder: DELETE builder with WHERE predicates
//
// # Dialect Support
//
// SQL generation adapts to the dialect the builder is scoped to:
//
//	import "github.com/gridbase/gridbase/dialect"
//
//	b := sql.Dialect(dialect.Postgres)
//	b.Select("id", "data").From(sql.Table("records")).Where(sql.EQ("table_id", "tasks"))
//
// # Predicates
//
// Predicates are functions over a Selector and compose freely:
//
//	sql.EQ("table_id", "tasks")         // table_id = $1
//	sql.GT("created_at", t)             // created_at > $1
//	sql.Contains("id", "01H")           // id LIKE '%01H%'
//	sql.IsNull("updated_by")            // updated_by IS NULL
//	sql.In("id", "a", "b")              // id IN ($1, $2)
//	sql.And(p1, sql.Or(p2, p3))
//
// # Joins
//
//	links := sql.Table("links").As("l")
//	records := sql.Table("records").As("r")
//	sql.Dialect(dialect.Postgres).
//	    Select("r.id").
//	    From(records).
//	    Join(links).On(records.C("id"), links.C("target_record_id"))
//
// # Row-Level Locking
//
// Pessimistic locking for transactions (no-op on SQLite):
//
//	sel.Where(sql.EQ("id", id)).ForUpdate()
//
// # Usage
//
// This package is typically used through the compile and record layers,
// but can be used directly for custom queries against the three storage
// tables.
package sql
