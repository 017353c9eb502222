// Package formula compiles formula-column expressions to SQL: a lexer and
// recursive-descent parser produce an AST, which is lowered to a SQL
// expression by recursively resolving column references — including other
// virtual columns — through the compile package.
//
// Compilation is deliberately lenient on the read path: a formula that fails
// to parse lowers to NULL and the fault is logged, never surfaced as a
// request error. Unknown column references behave the same way. A strict
// registry (see Registry.Strict) upgrades unknown function names to
// compile-time errors; that knob is declared once at resolver construction.
package formula

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gridbase/gridbase/compile"
	"github.com/gridbase/gridbase/schema"
)

// Resolver lowers formula columns for one schema snapshot. Install wires it
// into a Compiler as the FormulaFn hook used by the condition and sort
// compilers and the record-operations projection.
type Resolver struct {
	c   *compile.Compiler
	reg *Registry
	log *slog.Logger
}

// NewResolver returns a Resolver bound to c and reg. A nil logger falls back
// to slog.Default.
func NewResolver(c *compile.Compiler, reg *Registry, log *slog.Logger) *Resolver {
	if reg == nil {
		reg = NewRegistry()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{c: c, reg: reg, log: log}
}

// Install sets r as the Compiler's formula hook and returns the Compiler for
// chaining.
func Install(c *compile.Compiler, reg *Registry, log *slog.Logger) *compile.Compiler {
	r := NewResolver(c, reg, log)
	c.FormulaFn = r.Fragment
	return c
}

// Fragment compiles col's formula expression into a SQL fragment readable
// against the parent row aliased as alias. Parse faults degrade to NULL and
// are logged; lowering faults (bad arity, unknown function in strict mode,
// self-referential formulas) are returned to the caller.
func (r *Resolver) Fragment(col *schema.Column, t *schema.Table, alias string) (string, error) {
	return r.fragment(col, t, alias, map[string]bool{})
}

func (r *Resolver) fragment(col *schema.Column, t *schema.Table, alias string, visiting map[string]bool) (string, error) {
	if col.Formula == nil {
		return "", fmt.Errorf("formula: column %q missing formula options", col.ID)
	}
	if visiting[col.ID] {
		return "", fmt.Errorf("formula: column %q references itself", col.ID)
	}
	visiting[col.ID] = true
	defer delete(visiting, col.ID)

	ast, err := Parse(col.Formula.Expression)
	if err != nil {
		r.log.Warn("formula parse failed, compiling to NULL",
			"table", t.ID, "column", col.ID, "err", err)
		return "NULL", nil
	}
	return r.lower(ast, t, alias, visiting)
}

func (r *Resolver) lower(n Node, t *schema.Table, alias string, visiting map[string]bool) (string, error) {
	switch v := n.(type) {
	case NumberLit:
		return v.Value, nil
	case StringLit:
		return stringLiteral(v.Value), nil
	case ColumnRef:
		return r.lowerColumnRef(v, t, alias, visiting)
	case Binary:
		left, err := r.lower(v.Left, t, alias, visiting)
		if err != nil {
			return "", err
		}
		right, err := r.lower(v.Right, t, alias, visiting)
		if err != nil {
			return "", err
		}
		return "(" + left + " " + v.Op + " " + right + ")", nil
	case Call:
		args := make([]string, len(v.Args))
		for i, arg := range v.Args {
			lowered, err := r.lower(arg, t, alias, visiting)
			if err != nil {
				return "", err
			}
			args[i] = lowered
		}
		return r.reg.Lower(v.Name, args)
	default:
		return "", fmt.Errorf("formula: unknown AST node %T", n)
	}
}

// lowerColumnRef resolves a reference by title or storage name. A virtual
// target recurses: another formula compiles in place; rollup, lookup and
// links-count delegate to their own compilers. Unknown references degrade to
// NULL with a log line, mirroring the parse-fault policy.
func (r *Resolver) lowerColumnRef(ref ColumnRef, t *schema.Table, alias string, visiting map[string]bool) (string, error) {
	// Bareword literals the lexer cannot distinguish from column refs.
	switch strings.ToUpper(ref.Name) {
	case "NULL":
		return "NULL", nil
	case "TRUE":
		return "TRUE", nil
	case "FALSE":
		return "FALSE", nil
	}

	col := t.ColumnByTitleOrStorage(ref.Name)
	if col == nil {
		r.log.Warn("formula references unknown column, compiling to NULL",
			"table", t.ID, "ref", ref.Name)
		return "NULL", nil
	}
	if col.Kind == schema.KindFormula {
		return r.fragment(col, t, alias, visiting)
	}
	if col.IsVirtual() {
		return r.c.VirtualFragment(col, t, alias)
	}
	return r.c.QualifiedColumnExpr(col, t, alias)
}

func stringLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
