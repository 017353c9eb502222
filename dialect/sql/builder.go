package sql

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gridbase/gridbase/dialect"
)

// Querier wraps the basic Query method that's implemented by the different
// builders in this file. The query can be used in conjunction with the
// ExecQuerier interface.
type Querier interface {
	// Query returns the query representation of the element
	// and its arguments (if any).
	Query() (string, []any)
}

// Builder is the base SQL builder. It's embedded in the other query
// builders below and provides identifier quoting and argument collection
// that's shared across them.
type Builder struct {
	sb      strings.Builder
	args    []any
	dialect string
	total   int // counter for placeholder numbering ($1, $2, ...)
}

// Dialect returns a new Builder scoped to the given dialect, the entrypoint
// for every statement builder in this package.
func Dialect(name string) *Builder {
	return &Builder{dialect: name}
}

// Quote quotes ident using the given dialect's quoting rules, for callers
// outside this package (the SQL-fragment layer) that assemble raw SQL text
// rather than going through a Selector/InsertBuilder/etc.
func Quote(dialectName, ident string) string {
	return Dialect(dialectName).quote(ident)
}

// JSONTextExtract returns a dialect-appropriate SQL expression extracting
// key as text from the JSON expression dataExpr: the "->>'" operator on
// Postgres and SQLite, and its JSON-path form on MySQL.
func JSONTextExtract(dialectName, dataExpr, key string) string {
	escaped := strings.ReplaceAll(key, "'", "''")
	if dialectName == dialect.MySQL {
		return dataExpr + " ->> '$." + escaped + "'"
	}
	return dataExpr + " ->> '" + escaped + "'"
}

// JSONExtract returns the expression extracting key from dataExpr as a JSON
// value rather than text — the "->" operator, or its JSON-path form on
// MySQL. Callers that compare against JSON structure (array containment,
// overlap) need this form; the text extraction above strips the value down
// to a string the JSON operators cannot apply to.
func JSONExtract(dialectName, dataExpr, key string) string {
	escaped := strings.ReplaceAll(key, "'", "''")
	if dialectName == dialect.MySQL {
		return dataExpr + " -> '$." + escaped + "'"
	}
	return dataExpr + " -> '" + escaped + "'"
}

// String returns the accumulated query string.
func (b *Builder) String() string { return b.sb.String() }

// Args returns the accumulated query arguments.
func (b *Builder) Args() []any { return b.args }

// Query implements the Querier interface.
func (b *Builder) Query() (string, []any) { return b.sb.String(), b.args }

// clone returns a shallow copy of the builder used when nesting builders
// (e.g. Selector used in a subquery) so arguments interleave correctly.
func (b *Builder) clone() *Builder {
	return &Builder{dialect: b.dialect, total: b.total}
}

func (b *Builder) writeByte(c byte) *Builder { b.sb.WriteByte(c); return b }

func (b *Builder) writeString(s string) *Builder { b.sb.WriteString(s); return b }

// quote quotes an identifier using the dialect's quoting rules. MySQL uses
// backticks, Postgres and SQLite use double quotes.
func (b *Builder) quote(ident string) string {
	if ident == "*" {
		return ident
	}
	parts := strings.Split(ident, ".")
	q := `"`
	if b.dialect == dialect.MySQL {
		q = "`"
	}
	for i, p := range parts {
		parts[i] = q + p + q
	}
	return strings.Join(parts, ".")
}

// ident writes a possibly-qualified identifier, quoted — unless s is
// already a composed SQL expression (a JSON extraction, a CAST, a
// correlated subquery) rather than a bare column reference, in which case
// it's written verbatim. The SQL-fragment layer hands such expressions to
// Select/Where/OrderBy in place of a plain column name, so quoting them as
// one giant identifier would corrupt the query; a bare identifier or
// alias.column reference never contains the characters that disqualify it.
func (b *Builder) ident(s string) *Builder {
	if !isPlainIdent(s) {
		b.writeString(s)
		return b
	}
	b.writeString(b.quote(s))
	return b
}

// isPlainIdent reports whether s is a bare identifier or dotted
// alias.column reference: letters, digits, underscore and dot only.
func isPlainIdent(s string) bool {
	if s == "" || s == "*" {
		return true
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}

// exprValue is a raw SQL expression with bind args, produced by Expr and
// consumed by arg below so placeholder numbering stays correct per dialect.
type exprValue struct {
	format string
	args   []any
}

// Expr wraps a raw SQL expression containing '?' markers, one per arg, for
// use where a builder expects a value — e.g. an UPDATE assignment whose
// right-hand side references the column itself ("data" || ?::jsonb). The
// markers are rewritten to the dialect's placeholder form at render time.
func Expr(format string, args ...any) any {
	return exprValue{format: format, args: args}
}

// arg records an argument and writes its placeholder.
func (b *Builder) arg(a any) *Builder {
	if e, ok := a.(exprValue); ok {
		parts := strings.Split(e.format, "?")
		for i, p := range parts {
			if i > 0 && i-1 < len(e.args) {
				b.arg(e.args[i-1])
			}
			b.writeString(p)
		}
		return b
	}
	if q, ok := a.(Querier); ok {
		b.subquery(q)
		return b
	}
	b.total++
	b.args = append(b.args, a)
	switch b.dialect {
	case dialect.Postgres:
		b.writeString("$" + strconv.Itoa(b.total))
	default:
		b.writeByte('?')
	}
	return b
}

// placeholderRe matches Postgres positional placeholders for renumbering.
var placeholderRe = regexp.MustCompile(`\$(\d+)`)

// subquery renders q inline, renumbering its positional placeholders to
// continue from this builder's counter so the combined statement binds
// correctly.
func (b *Builder) subquery(q Querier) {
	query, args := q.Query()
	if b.dialect == dialect.Postgres && b.total > 0 {
		offset := b.total
		query = placeholderRe.ReplaceAllStringFunc(query, func(m string) string {
			n, err := strconv.Atoi(m[1:])
			if err != nil {
				return m
			}
			return "$" + strconv.Itoa(n+offset)
		})
	}
	b.total += len(args)
	b.writeString(query)
	b.args = append(b.args, args...)
}

// RawP returns a predicate writing format verbatim, binding one arg per '?'
// marker with the dialect's placeholder form — the escape hatch for
// operators and function calls the typed predicate constructors don't
// cover. The format must not contain a literal '?' outside a marker.
func RawP(format string, args ...any) P {
	return func(s *Selector) {
		s.builder.arg(Expr(format, args...))
	}
}

// InSubquery returns a "col IN (SELECT ...)" predicate.
func InSubquery(col string, sub *Selector) P {
	return func(s *Selector) {
		s.builder.ident(col).writeString(" IN (")
		s.builder.subquery(sub)
		s.builder.writeByte(')')
	}
}

// NotInSubquery returns a "col NOT IN (SELECT ...)" predicate.
func NotInSubquery(col string, sub *Selector) P {
	return func(s *Selector) {
		s.builder.ident(col).writeString(" NOT IN (")
		s.builder.subquery(sub)
		s.builder.writeByte(')')
	}
}

// join writes a comma-joined list calling fn for each element.
func (b *Builder) join(n int, fn func(i int)) *Builder {
	for i := 0; i < n; i++ {
		if i > 0 {
			b.writeString(", ")
		}
		fn(i)
	}
	return b
}

// TableView wraps a table name or subquery so Selector.From can accept both.
type TableView struct {
	name    string
	alias   string
	subject Querier
}

// Table returns a new TableView for the given table name.
func Table(name string) *TableView { return &TableView{name: name} }

// As sets an alias for the table view.
func (t *TableView) As(alias string) *TableView {
	t.alias = alias
	return t
}

// TableName returns the underlying table name (empty for subqueries).
func (t *TableView) TableName() string { return t.name }

// Alias returns the table view's alias, if any.
func (t *TableView) Alias() string { return t.alias }

// C returns the column reference qualified by this table's alias (or name,
// if no alias was set) — e.g. users.As("u").C("id") returns "u.id".
func (t *TableView) C(column string) string {
	if t.alias != "" {
		return t.alias + "." + column
	}
	return t.name + "." + column
}

func (t *TableView) ref(b *Builder) string {
	name := t.name
	if t.subject != nil {
		var sub Builder
		sub.dialect = b.dialect
		sub.total = b.total
		sub.subquery(t.subject)
		b.total = sub.total
		b.args = append(b.args, sub.args...)
		name = "(" + sub.String() + ")"
	} else {
		name = b.quote(name)
	}
	if t.alias != "" {
		name += " AS " + b.quote(t.alias)
	}
	return name
}

// P is a predicate over a Selector, the common currency for WHERE/HAVING
// clauses in this package: WHERE and HAVING both accept `func(*Selector)`.
type P func(*Selector)

// And combines predicates with AND.
func And(preds ...P) P {
	return func(s *Selector) {
		s.whereP("AND", preds)
	}
}

// Or combines predicates with OR.
func Or(preds ...P) P {
	return func(s *Selector) {
		s.whereP("OR", preds)
	}
}

// Not negates a predicate.
func Not(pred P) P {
	return func(s *Selector) {
		s.builder.writeString("NOT (")
		pred(s)
		s.builder.writeByte(')')
	}
}

func binary(col, op string, v any) P {
	return func(s *Selector) {
		s.builder.ident(col).writeString(" " + op + " ").arg(v)
	}
}

// ExprOp returns a predicate embedding expr, exactly as given, compared
// against v using an arbitrary SQL operator — for operators (JSONB
// containment "@>", array overlap "?|") the typed predicate constructors
// below don't cover.
func ExprOp(expr, op string, v any) P { return binary(expr, op, v) }

// EQ returns a "=" predicate.
func EQ(col string, v any) P { return binary(col, "=", v) }

// NEQ returns a "<>" predicate.
func NEQ(col string, v any) P { return binary(col, "<>", v) }

// GT returns a ">" predicate.
func GT(col string, v any) P { return binary(col, ">", v) }

// GTE returns a ">=" predicate.
func GTE(col string, v any) P { return binary(col, ">=", v) }

// LT returns a "<" predicate.
func LT(col string, v any) P { return binary(col, "<", v) }

// LTE returns a "<=" predicate.
func LTE(col string, v any) P { return binary(col, "<=", v) }

// Like returns a LIKE predicate with the pattern used as-is.
func Like(col, pattern string) P {
	return func(s *Selector) {
		s.builder.ident(col).writeString(" LIKE ").arg(pattern)
	}
}

// Contains returns a LIKE '%v%' predicate.
func Contains(col, sub string) P { return Like(col, "%"+sub+"%") }

// ContainsFold is a case-insensitive Contains, using ILIKE on Postgres and
// LOWER()/LIKE elsewhere.
func ContainsFold(col, sub string) P {
	return func(s *Selector) {
		if s.builder.dialect == dialect.Postgres {
			s.builder.ident(col).writeString(" ILIKE ").arg("%" + sub + "%")
			return
		}
		s.builder.writeString("LOWER(").ident(col).writeString(") LIKE ").arg("%" + strings.ToLower(sub) + "%")
	}
}

// HasPrefix returns a LIKE 'v%' predicate.
func HasPrefix(col, prefix string) P { return Like(col, prefix+"%") }

// HasSuffix returns a LIKE '%v' predicate.
func HasSuffix(col, suffix string) P { return Like(col, "%"+suffix) }

// EqualFold is a case-insensitive equality predicate.
func EqualFold(col, v string) P {
	return func(s *Selector) {
		s.builder.writeString("LOWER(").ident(col).writeString(") = ").arg(strings.ToLower(v))
	}
}

// IsNull returns an "IS NULL" predicate.
func IsNull(col string) P {
	return func(s *Selector) { s.builder.ident(col).writeString(" IS NULL") }
}

// NotNull returns an "IS NOT NULL" predicate.
func NotNull(col string) P {
	return func(s *Selector) { s.builder.ident(col).writeString(" IS NOT NULL") }
}

// In returns an "IN (...)" predicate. An empty vs produces a predicate that
// never matches, since "col IN ()" is invalid SQL.
func In(col string, vs ...any) P {
	return func(s *Selector) {
		if len(vs) == 0 {
			s.builder.writeString("1 = 0")
			return
		}
		s.builder.ident(col).writeString(" IN (")
		s.builder.join(len(vs), func(i int) { s.builder.arg(vs[i]) })
		s.builder.writeByte(')')
	}
}

// NotIn returns a "NOT IN (...)" predicate.
func NotIn(col string, vs ...any) P {
	return func(s *Selector) {
		if len(vs) == 0 {
			s.builder.writeString("1 = 1")
			return
		}
		s.builder.ident(col).writeString(" NOT IN (")
		s.builder.join(len(vs), func(i int) { s.builder.arg(vs[i]) })
		s.builder.writeByte(')')
	}
}

// Between returns a "BETWEEN a AND b" predicate.
func Between(col string, a, b any) P {
	return func(s *Selector) {
		s.builder.ident(col).writeString(" BETWEEN ").arg(a).writeString(" AND ").arg(b)
	}
}

// FieldEQ/FieldNEQ/... are aliases matching the sql.FieldXxx naming used by
// generated predicate helpers; they just forward to the package-level
// predicate constructors above.
var (
	FieldEQ       = EQ
	FieldNEQ      = NEQ
	FieldGT       = GT
	FieldGTE      = GTE
	FieldLT       = LT
	FieldLTE      = LTE
	FieldIsNull   = IsNull
	FieldNotNull  = NotNull
	FieldContains = Contains
)

// FieldIn is the variadic-friendly counterpart of In.
func FieldIn(col string, vs ...any) P { return In(col, vs...) }

// FieldNotIn is the variadic-friendly counterpart of NotIn.
func FieldNotIn(col string, vs ...any) P { return NotIn(col, vs...) }

// FieldContainsFold forwards to ContainsFold.
func FieldContainsFold(col, sub string) P { return ContainsFold(col, sub) }

// FieldHasPrefix forwards to HasPrefix.
func FieldHasPrefix(col, prefix string) P { return HasPrefix(col, prefix) }

// FieldHasSuffix forwards to HasSuffix.
func FieldHasSuffix(col, suffix string) P { return HasSuffix(col, suffix) }

// FieldEqualFold forwards to EqualFold.
func FieldEqualFold(col, v string) P { return EqualFold(col, v) }

// OrderTerm describes a single ORDER BY term.
type OrderTerm struct {
	col  string
	desc bool
	null string // "first", "last" or "" for dialect default
}

const (
	// OrderAsc sorts ascending.
	OrderAsc = false
	// OrderDesc sorts descending.
	OrderDesc = true
)

// Selector builds a SELECT statement.
type Selector struct {
	builder    *Builder
	from       []*TableView
	distinct   bool
	selections []string
	where      P
	having     P
	groups     []string
	orders     []OrderTerm
	limit      *int
	offset     *int
	forUpdate  bool
	joins      []selectorJoin
}

type selectorJoin struct {
	kind string // "JOIN", "LEFT JOIN"
	view *TableView
	on   P
}

// Select starts a new Selector for the given columns ("*" if none given).
func (b *Builder) Select(columns ...string) *Selector {
	if len(columns) == 0 {
		columns = []string{"*"}
	}
	return &Selector{builder: &Builder{dialect: b.dialect}, selections: columns}
}

// From sets the FROM clause of the selector.
func (s *Selector) From(t *TableView) *Selector {
	s.from = append(s.from, t)
	return s
}

// Distinct marks the selector as SELECT DISTINCT.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// Join adds an inner join.
func (s *Selector) Join(t *TableView) *joinBuilder {
	return &joinBuilder{sel: s, kind: "JOIN", view: t}
}

// LeftJoin adds a left outer join.
func (s *Selector) LeftJoin(t *TableView) *joinBuilder {
	return &joinBuilder{sel: s, kind: "LEFT JOIN", view: t}
}

type joinBuilder struct {
	sel  *Selector
	kind string
	view *TableView
}

// On completes a join with an "a = b" equality condition between two
// qualified column references.
func (j *joinBuilder) On(a, b string) *Selector {
	j.sel.joins = append(j.sel.joins, selectorJoin{
		kind: j.kind,
		view: j.view,
		on: func(s *Selector) {
			s.builder.ident(a).writeString(" = ").ident(b)
		},
	})
	return j.sel
}

// OnP completes a join with an arbitrary predicate.
func (j *joinBuilder) OnP(pred P) *Selector {
	j.sel.joins = append(j.sel.joins, selectorJoin{kind: j.kind, view: j.view, on: pred})
	return j.sel
}

// Where sets (or AND-combines with an existing) WHERE predicate.
func (s *Selector) Where(pred P) *Selector {
	s.where = combine(s.where, pred)
	return s
}

// Having sets (or AND-combines with an existing) HAVING predicate.
func (s *Selector) Having(pred P) *Selector {
	s.having = combine(s.having, pred)
	return s
}

func combine(existing, next P) P {
	if existing == nil {
		return next
	}
	return And(existing, next)
}

func (s *Selector) whereP(op string, preds []P) {
	s.builder.writeByte('(')
	for i, p := range preds {
		if i > 0 {
			s.builder.writeString(" " + op + " ")
		}
		p(s)
	}
	s.builder.writeByte(')')
}

// GroupBy sets the GROUP BY columns.
func (s *Selector) GroupBy(columns ...string) *Selector {
	s.groups = append(s.groups, columns...)
	return s
}

// OrderBy adds one or more ascending ORDER BY terms.
func (s *Selector) OrderBy(columns ...string) *Selector {
	for _, c := range columns {
		s.orders = append(s.orders, OrderTerm{col: c})
	}
	return s
}

// OrderByDesc adds one or more descending ORDER BY terms.
func (s *Selector) OrderByDesc(columns ...string) *Selector {
	for _, c := range columns {
		s.orders = append(s.orders, OrderTerm{col: c, desc: true})
	}
	return s
}

// OrderByTerm adds a fully specified ORDER BY term, including NULL
// placement ("first"/"last"/"").
func (s *Selector) OrderByTerm(column string, desc bool, nulls string) *Selector {
	s.orders = append(s.orders, OrderTerm{col: column, desc: desc, null: nulls})
	return s
}

// Limit sets the LIMIT clause.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Offset sets the OFFSET clause.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

// ForUpdate appends "FOR UPDATE" for pessimistic row locking within a
// transaction. No-op on dialects without row locking support (SQLite).
func (s *Selector) ForUpdate() *Selector {
	s.forUpdate = true
	return s
}

// Query implements the Querier interface, rendering the accumulated clauses
// into a single SQL string and its positional arguments.
func (s *Selector) Query() (string, []any) {
	b := s.builder
	b.writeString("SELECT ")
	if s.distinct {
		b.writeString("DISTINCT ")
	}
	b.join(len(s.selections), func(i int) {
		col := s.selections[i]
		if col == "*" {
			b.writeByte('*')
			return
		}
		b.ident(col)
	})
	if len(s.from) > 0 {
		b.writeString(" FROM ")
		b.join(len(s.from), func(i int) { b.writeString(s.from[i].ref(b)) })
	}
	for _, j := range s.joins {
		b.writeString(" " + j.kind + " " + j.view.ref(b) + " ON ")
		j.on(s)
	}
	if s.where != nil {
		b.writeString(" WHERE ")
		s.where(s)
	}
	if len(s.groups) > 0 {
		b.writeString(" GROUP BY ")
		b.join(len(s.groups), func(i int) { b.ident(s.groups[i]) })
	}
	if s.having != nil {
		b.writeString(" HAVING ")
		s.having(s)
	}
	if len(s.orders) > 0 {
		b.writeString(" ORDER BY ")
		b.join(len(s.orders), func(i int) {
			o := s.orders[i]
			b.ident(o.col)
			if o.desc {
				b.writeString(" DESC")
			} else {
				b.writeString(" ASC")
			}
			switch o.null {
			case "first":
				b.writeString(" NULLS FIRST")
			case "last":
				b.writeString(" NULLS LAST")
			}
		})
	}
	if s.limit != nil {
		b.writeString(" LIMIT " + strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		b.writeString(" OFFSET " + strconv.Itoa(*s.offset))
	}
	if s.forUpdate && b.dialect != dialect.SQLite {
		b.writeString(" FOR UPDATE")
	}
	return b.String(), b.Args()
}

// As wraps the selector as a subquery table view with the given alias.
func (s *Selector) As(alias string) *TableView {
	return &TableView{alias: alias, subject: s}
}

// InsertBuilder builds an INSERT statement.
type InsertBuilder struct {
	builder   *Builder
	table     string
	columns   []string
	values    [][]any
	isDefault bool
	returning []string
	conflict  *conflictClause
}

type conflictClause struct {
	columns []string
	update  []string
}

// Insert starts a new InsertBuilder for the given table.
func (b *Builder) Insert(table string) *InsertBuilder {
	return &InsertBuilder{builder: &Builder{dialect: b.dialect}, table: table}
}

// Columns sets the column list for the VALUES that follow.
func (i *InsertBuilder) Columns(columns ...string) *InsertBuilder {
	i.columns = columns
	return i
}

// Values appends one row of values, matching the order set by Columns.
func (i *InsertBuilder) Values(values ...any) *InsertBuilder {
	i.values = append(i.values, values)
	return i
}

// Default marks the statement as a defaults-only insert ("INSERT INTO t
// DEFAULT VALUES"), used for tables whose columns are entirely defaulted.
func (i *InsertBuilder) Default() *InsertBuilder {
	i.isDefault = true
	return i
}

// Returning sets a RETURNING clause (Postgres/SQLite only; ignored under
// MySQL where the caller falls back to LastInsertId).
func (i *InsertBuilder) Returning(columns ...string) *InsertBuilder {
	i.returning = columns
	return i
}

// OnConflict configures an upsert: on a conflict over `columns`, update
// `update` columns from the excluded row.
func (i *InsertBuilder) OnConflict(columns, update []string) *InsertBuilder {
	i.conflict = &conflictClause{columns: columns, update: update}
	return i
}

// Query implements the Querier interface.
func (i *InsertBuilder) Query() (string, []any) {
	b := i.builder
	b.writeString("INSERT INTO ").ident(i.table)
	if i.isDefault {
		b.writeString(" DEFAULT VALUES")
	} else {
		b.writeString(" (")
		b.join(len(i.columns), func(idx int) { b.ident(i.columns[idx]) })
		b.writeString(") VALUES ")
		for r, row := range i.values {
			if r > 0 {
				b.writeString(", ")
			}
			b.writeByte('(')
			b.join(len(row), func(idx int) { b.arg(row[idx]) })
			b.writeByte(')')
		}
	}
	if i.conflict != nil {
		switch b.dialect {
		case dialect.MySQL:
			b.writeString(" ON DUPLICATE KEY UPDATE ")
			b.join(len(i.conflict.update), func(idx int) {
				col := i.conflict.update[idx]
				b.ident(col).writeString(" = VALUES(").ident(col).writeByte(')')
			})
		default:
			b.writeString(" ON CONFLICT (")
			b.join(len(i.conflict.columns), func(idx int) { b.ident(i.conflict.columns[idx]) })
			b.writeString(") DO UPDATE SET ")
			b.join(len(i.conflict.update), func(idx int) {
				col := i.conflict.update[idx]
				b.ident(col).writeString(" = EXCLUDED.").ident(col)
			})
		}
	}
	if len(i.returning) > 0 && b.dialect != dialect.MySQL {
		b.writeString(" RETURNING ")
		b.join(len(i.returning), func(idx int) { b.ident(i.returning[idx]) })
	}
	return b.String(), b.Args()
}

// UpdateBuilder builds an UPDATE statement.
type UpdateBuilder struct {
	builder *Builder
	table   string
	sets    []setClause
	where   P
}

type setClause struct {
	col string
	val any
}

// Update starts a new UpdateBuilder for the given table.
func (b *Builder) Update(table string) *UpdateBuilder {
	return &UpdateBuilder{builder: &Builder{dialect: b.dialect}, table: table}
}

// Set appends a "col = value" assignment.
func (u *UpdateBuilder) Set(col string, value any) *UpdateBuilder {
	u.sets = append(u.sets, setClause{col: col, val: value})
	return u
}

// Where sets (or AND-combines with an existing) WHERE predicate.
func (u *UpdateBuilder) Where(pred P) *UpdateBuilder {
	u.where = combine(u.where, pred)
	return u
}

// Query implements the Querier interface.
func (u *UpdateBuilder) Query() (string, []any) {
	b := u.builder
	b.writeString("UPDATE ").ident(u.table).writeString(" SET ")
	b.join(len(u.sets), func(i int) {
		b.ident(u.sets[i].col).writeString(" = ").arg(u.sets[i].val)
	})
	if u.where != nil {
		b.writeString(" WHERE ")
		sel := &Selector{builder: b}
		u.where(sel)
	}
	return b.String(), b.Args()
}

// DeleteBuilder builds a DELETE statement.
type DeleteBuilder struct {
	builder *Builder
	table   string
	where   P
}

// Delete starts a new DeleteBuilder for the given table.
func (b *Builder) Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{builder: &Builder{dialect: b.dialect}, table: table}
}

// Where sets (or AND-combines with an existing) WHERE predicate.
func (d *DeleteBuilder) Where(pred P) *DeleteBuilder {
	d.where = combine(d.where, pred)
	return d
}

// Query implements the Querier interface.
func (d *DeleteBuilder) Query() (string, []any) {
	b := d.builder
	b.writeString("DELETE FROM ").ident(d.table)
	if d.where != nil {
		b.writeString(" WHERE ")
		sel := &Selector{builder: b}
		d.where(sel)
	}
	return b.String(), b.Args()
}

// Raw wraps a raw SQL fragment (with pre-numbered/positional placeholders
// rewritten for the target dialect is the caller's responsibility) as a
// Querier, useful for escape-hatch fragments inside larger statements.
type Raw struct {
	Stmt string
	Args []any
}

// Query implements the Querier interface.
func (r Raw) Query() (string, []any) { return r.Stmt, r.Args }
