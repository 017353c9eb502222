package formula

import (
	"fmt"
	"strings"
)

// Func lowers already-compiled argument SQL fragments into one SQL
// expression. Every registered function is pure and total over its inputs.
type Func func(args []string) (string, error)

// Registry maps uppercased function names to their lowerings. It is open:
// callers may Register additional functions before handing the registry to a
// Resolver. A permissive registry passes unknown names through as
// NAME(args...), letting the SQL engine resolve or reject them at execution;
// a strict one rejects them at compile time. The mode is declared once at
// construction.
type Registry struct {
	fns    map[string]Func
	strict bool
}

// NewRegistry returns a registry pre-populated with the built-in function
// set, in permissive mode.
func NewRegistry() *Registry {
	r := &Registry{fns: make(map[string]Func)}
	r.registerBuiltins()
	return r
}

// Strict switches the registry to reject unknown function names instead of
// passing them through.
func (r *Registry) Strict() *Registry {
	r.strict = true
	return r
}

// Register adds or replaces a function lowering. The name is uppercased to
// match the parser's normalization.
func (r *Registry) Register(name string, fn Func) {
	r.fns[strings.ToUpper(name)] = fn
}

// Lower dispatches a call to its registered lowering, or applies the
// unknown-name policy.
func (r *Registry) Lower(name string, args []string) (string, error) {
	if fn, ok := r.fns[name]; ok {
		return fn(args)
	}
	if r.strict {
		return "", fmt.Errorf("formula: unknown function %q", name)
	}
	return name + "(" + strings.Join(args, ", ") + ")", nil
}

// exactly returns a Func that checks its arity before delegating.
func exactly(n int, fn Func) Func {
	return func(args []string) (string, error) {
		if len(args) != n {
			return "", fmt.Errorf("formula: expected %d argument(s), got %d", n, len(args))
		}
		return fn(args)
	}
}

// atLeast returns a Func that enforces a minimum arity.
func atLeast(n int, fn Func) Func {
	return func(args []string) (string, error) {
		if len(args) < n {
			return "", fmt.Errorf("formula: expected at least %d argument(s), got %d", n, len(args))
		}
		return fn(args)
	}
}

// chain joins args with a binary SQL operator, parenthesized.
func chain(op string) Func {
	return atLeast(2, func(args []string) (string, error) {
		return "(" + strings.Join(args, " "+op+" ") + ")", nil
	})
}

// sqlFn emits a plain NAME(arg, ...) call under a fixed SQL name.
func sqlFn(name string) Func {
	return func(args []string) (string, error) {
		return name + "(" + strings.Join(args, ", ") + ")", nil
	}
}

// num coerces a textual fragment to NUMERIC the same way the fragment layer
// casts user columns, so arithmetic over JSON-extracted values behaves.
func num(expr string) string {
	return "CAST(NULLIF(" + expr + ", '') AS NUMERIC)"
}

// ts coerces a fragment to TIMESTAMP for the date/time family.
func ts(expr string) string {
	return "CAST(NULLIF(" + expr + ", '') AS TIMESTAMP)"
}

func (r *Registry) registerBuiltins() {
	// Arithmetic.
	r.Register("ADD", chain("+"))
	r.Register("SUB", chain("-"))
	r.Register("MUL", chain("*"))
	r.Register("DIV", chain("/"))
	r.Register("MOD", exactly(2, func(a []string) (string, error) {
		return "(" + a[0] + " % " + a[1] + ")", nil
	}))
	r.Register("NEG", exactly(1, func(a []string) (string, error) {
		return "(-1 * " + a[0] + ")", nil
	}))
	r.Register("ABS", exactly(1, sqlFn("ABS")))
	r.Register("ROUND", atLeast(1, sqlFn("ROUND")))
	r.Register("CEIL", exactly(1, sqlFn("CEIL")))
	r.Register("FLOOR", exactly(1, sqlFn("FLOOR")))
	r.Register("MIN", atLeast(1, sqlFn("LEAST")))
	r.Register("MAX", atLeast(1, sqlFn("GREATEST")))
	r.Register("SUM", atLeast(1, func(a []string) (string, error) {
		coerced := make([]string, len(a))
		for i, arg := range a {
			coerced[i] = "COALESCE(" + num(arg) + ", 0)"
		}
		return "(" + strings.Join(coerced, " + ") + ")", nil
	}))
	r.Register("AVG", atLeast(1, func(a []string) (string, error) {
		coerced := make([]string, len(a))
		for i, arg := range a {
			coerced[i] = "COALESCE(" + num(arg) + ", 0)"
		}
		return fmt.Sprintf("((%s) / %d)", strings.Join(coerced, " + "), len(a)), nil
	}))
	r.Register("COUNT", atLeast(1, func(a []string) (string, error) {
		terms := make([]string, len(a))
		for i, arg := range a {
			terms[i] = "(CASE WHEN " + arg + " IS NULL THEN 0 ELSE 1 END)"
		}
		return "(" + strings.Join(terms, " + ") + ")", nil
	}))

	// Strings.
	r.Register("LEN", exactly(1, sqlFn("LENGTH")))
	r.Register("LOWER", exactly(1, sqlFn("LOWER")))
	r.Register("UPPER", exactly(1, sqlFn("UPPER")))
	r.Register("CONCAT", atLeast(1, sqlFn("CONCAT")))
	r.Register("TRIM", exactly(1, sqlFn("TRIM")))
	r.Register("REPLACE", exactly(3, sqlFn("REPLACE")))
	r.Register("SEARCH", exactly(2, func(a []string) (string, error) {
		return "POSITION(" + a[1] + " IN " + a[0] + ")", nil
	}))
	r.Register("LEFT", exactly(2, sqlFn("LEFT")))
	r.Register("RIGHT", exactly(2, sqlFn("RIGHT")))
	r.Register("MID", exactly(3, sqlFn("SUBSTR")))

	// Logic.
	r.Register("IF", exactly(3, func(a []string) (string, error) {
		return "(CASE WHEN " + a[0] + " THEN " + a[1] + " ELSE " + a[2] + " END)", nil
	}))
	r.Register("SWITCH", atLeast(3, func(a []string) (string, error) {
		var sb strings.Builder
		sb.WriteString("(CASE " + a[0])
		pairs := a[1:]
		for len(pairs) >= 2 {
			sb.WriteString(" WHEN " + pairs[0] + " THEN " + pairs[1])
			pairs = pairs[2:]
		}
		if len(pairs) == 1 {
			sb.WriteString(" ELSE " + pairs[0])
		}
		sb.WriteString(" END)")
		return sb.String(), nil
	}))
	r.Register("AND", chain("AND"))
	r.Register("OR", chain("OR"))
	r.Register("NOT", exactly(1, func(a []string) (string, error) {
		return "(NOT " + a[0] + ")", nil
	}))
	r.Register("ISBLANK", exactly(1, func(a []string) (string, error) {
		return "(" + a[0] + " IS NULL OR " + a[0] + " = '')", nil
	}))
	r.Register("COALESCE", atLeast(1, sqlFn("COALESCE")))

	// Dates.
	r.Register("NOW", exactly(0, func([]string) (string, error) { return "NOW()", nil }))
	r.Register("TODAY", exactly(0, func([]string) (string, error) { return "CURRENT_DATE", nil }))
	for _, part := range []string{"YEAR", "MONTH", "DAY", "HOUR", "MINUTE", "SECOND"} {
		part := part
		r.Register(part, exactly(1, func(a []string) (string, error) {
			return "EXTRACT(" + part + " FROM " + ts(a[0]) + ")", nil
		}))
	}
	r.Register("DATEADD", exactly(3, func(a []string) (string, error) {
		return "(" + ts(a[0]) + " + (" + num(a[1]) + " * CAST('1 ' || " + a[2] + " AS INTERVAL)))", nil
	}))
	r.Register("DATESUB", exactly(3, func(a []string) (string, error) {
		return "(" + ts(a[0]) + " - (" + num(a[1]) + " * CAST('1 ' || " + a[2] + " AS INTERVAL)))", nil
	}))
	r.Register("DATEDIFF", exactly(2, func(a []string) (string, error) {
		return "(CAST(NULLIF(" + a[0] + ", '') AS DATE) - CAST(NULLIF(" + a[1] + ", '') AS DATE))", nil
	}))
	r.Register("DATESTR", exactly(1, func(a []string) (string, error) {
		return "TO_CHAR(" + ts(a[0]) + ", 'YYYY-MM-DD')", nil
	}))
	r.Register("FORMAT", exactly(2, func(a []string) (string, error) {
		return "TO_CHAR(" + ts(a[0]) + ", " + a[1] + ")", nil
	}))

	// Introspection and regular expressions.
	r.Register("TYPE", exactly(1, func(a []string) (string, error) {
		return "PG_TYPEOF(" + a[0] + ")::TEXT", nil
	}))
	r.Register("REGEX_MATCH", exactly(2, func(a []string) (string, error) {
		return "(" + a[0] + " ~ " + a[1] + ")", nil
	}))
	r.Register("REGEX_EXTRACT", exactly(2, func(a []string) (string, error) {
		return "SUBSTRING(" + a[0] + " FROM " + a[1] + ")", nil
	}))
	r.Register("REGEX_REPLACE", exactly(3, sqlFn("REGEXP_REPLACE")))
}
