// Package gridbase is a schema-driven record engine: it stores user-defined
// logical tables and records in a small, fixed set of physical tables
// (records, links, schemas) backed by a relational database with JSON
// column support, and translates logical CRUD, filter, sort, aggregation
// and relationship traversal into physical SQL against them.
package gridbase

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error the way a transport-agnostic caller needs to,
// independent of the concrete Go error type that carries it.
type Kind string

// The fixed error taxonomy.
const (
	KindBadRequest   Kind = "BAD_REQUEST"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindValidation   Kind = "VALIDATION"
	KindRateLimit    Kind = "RATE_LIMIT"
	KindInternal     Kind = "INTERNAL"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("gridbase: entity not found")

	// ErrNotSingular is returned when a query that expects exactly one result
	// returns zero or multiple results.
	ErrNotSingular = errors.New("gridbase: entity not singular")

	// ErrTxStarted is returned when attempting to start a new transaction
	// within an existing transaction.
	ErrTxStarted = errors.New("gridbase: cannot start a transaction within a transaction")

	// ErrInvalidIdentifier is returned when a user-supplied SQL identifier
	// (column storage name or alias) fails the identifier regex.
	ErrInvalidIdentifier = errors.New("gridbase: invalid identifier")
)

// KindError is implemented by every typed error below, so a caller at a
// transport boundary can map any engine error to a Kind without a type
// switch over concrete types.
type KindError interface {
	error
	Kind() Kind
}

// NotFoundError represents an error when an entity (table, column, record,
// link edge or schema) is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for.
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("gridbase: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("gridbase: %s not found", e.label)
}

// Kind implements KindError.
func (e *NotFoundError) Kind() Kind { return KindNotFound }

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string { return e.label }

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any { return e.id }

// NewNotFoundError returns a new NotFoundError for the given entity label.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// NotSingularError represents an error when a query expects a singular
// result (findOne) but receives zero or multiple results.
type NotSingularError struct {
	label string
	count int // Number of results returned (-1 if unknown).
}

// Error returns the error string.
func (e *NotSingularError) Error() string {
	if e.count >= 0 {
		return fmt.Sprintf("gridbase: %s not singular (got %d results, expected 1)", e.label, e.count)
	}
	return fmt.Sprintf("gridbase: %s not singular", e.label)
}

// Kind implements KindError.
func (e *NotSingularError) Kind() Kind { return KindNotFound }

// Is reports whether the target error matches NotSingularError.
func (e *NotSingularError) Is(err error) bool {
	return err == ErrNotSingular
}

// Label returns the entity label.
func (e *NotSingularError) Label() string { return e.label }

// Count returns the number of results, or -1 if unknown.
func (e *NotSingularError) Count() int { return e.count }

// NewNotSingularError returns a new NotSingularError for the given entity label.
func NewNotSingularError(label string) *NotSingularError {
	return &NotSingularError{label: label, count: -1}
}

// NewNotSingularErrorWithCount returns a new NotSingularError with the result count.
func NewNotSingularErrorWithCount(label string, count int) *NotSingularError {
	return &NotSingularError{label: label, count: count}
}

// IsNotSingular returns true if the error is a NotSingularError.
func IsNotSingular(err error) bool {
	if err == nil {
		return false
	}
	var e *NotSingularError
	return errors.As(err, &e) || errors.Is(err, ErrNotSingular)
}

// ConstraintError represents a database constraint violation, classified
// from the underlying driver error (see dialect/sql/sqlgraph).
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e ConstraintError) Error() string {
	return fmt.Sprintf("gridbase: constraint failed: %s", e.msg)
}

// Kind implements KindError.
func (e ConstraintError) Kind() Kind { return KindConflict }

// Unwrap returns the underlying error.
func (e ConstraintError) Unwrap() error { return e.wrap }

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// ValidationError represents a column-constraint violation.
type ValidationError struct {
	Name string // Column name.
	Err  error  // Underlying validation error.
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("gridbase: validation failed for column %q: %s", e.Name, e.Err)
}

// Kind implements KindError.
func (e *ValidationError) Kind() Kind { return KindValidation }

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError returns a new ValidationError for the given column.
func NewValidationError(name string, err error) *ValidationError {
	return &ValidationError{Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during a bulk
// operation that skips offending rows and returns the successful subset.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "gridbase: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("gridbase: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Kind implements KindError.
func (e *AggregateError) Kind() Kind { return KindInternal }

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return &AggregateError{Errors: filtered}
	}
}

// QueryError wraps a query-compilation or query-execution error with
// context about which table and operation were involved.
type QueryError struct {
	Entity string // Table/column being queried.
	Op     string // Operation (e.g. "list", "count", "readByPk").
	Err    error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("gridbase: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("gridbase: querying %s: %v", e.Entity, e.Err)
}

// Kind implements KindError, passing through the wrapped error's Kind when known.
func (e *QueryError) Kind() Kind {
	var ke KindError
	if errors.As(e.Err, &ke) {
		return ke.Kind()
	}
	return KindInternal
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error { return e.Err }

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a create/update/delete error with context about
// which table and operation were involved.
type MutationError struct {
	Entity string // Table being mutated.
	Op     string // Operation (e.g. "insert", "updateByPk", "bulkDelete").
	Err    error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("gridbase: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Kind implements KindError, passing through the wrapped error's Kind when known.
func (e *MutationError) Kind() Kind {
	var ke KindError
	if errors.As(e.Err, &ke) {
		return ke.Kind()
	}
	return KindInternal
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error { return e.Err }

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}
