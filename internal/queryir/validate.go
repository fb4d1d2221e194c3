package queryir

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/rowsource/internal/value"
)

// Validate checks that a query is well formed before it is compiled.
//
// Rules:
//  1. From names a table
//  2. Columns are explicit - no SELECT *
//  3. Every selected Column of a grouped query is also grouped
//  4. Equals never compares to NULL
//
// All problems are reported together, joined with errors.Join.
// Validate is a pure function with no side effects.
func Validate(query Query) error {
	v := &validator{}
	v.validateQuery(query)
	return errors.Join(v.problems...)
}

// validator accumulates problems during traversal.
type validator struct {
	problems []error
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Errorf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.From == "" {
		v.addProblem("select has no table")
	}
	if len(sel.Columns) == 0 {
		v.addProblem("select has no columns - explicit column selection required")
	}
	for _, expr := range sel.Columns {
		v.validateExpr(expr, sel.GroupBy)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validateExpr(expr Expr, groupBy []string) {
	switch e := expr.(type) {
	case Column:
		if len(groupBy) > 0 && !slices.Contains(groupBy, e.Name) {
			v.addProblem("column %q selected but not grouped", e.Name)
		}
	case CountAll:
	case Sum:
	case Null:
	case nil:
		v.addProblem("nil column expression")
	default:
		v.addProblem("unknown expression type: %T", expr)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		// nil predicates are valid (no filter)
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case In:
	case *In:
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	if eq.Value == nil {
		v.addProblem("field %q compared to nil value", eq.Field)
		return
	}
	if _, isNull := eq.Value.(value.Null); isNull {
		v.addProblem("field %q compared to NULL - never matches", eq.Field)
	}
}

func (v *validator) validateAnd(and And) {
	for _, subPred := range and.Predicates {
		v.validatePredicate(subPred)
	}
}
