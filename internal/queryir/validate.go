package queryir

import (
	"fmt"
	"strings"
)

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Err folds the result into a single error, or nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("invalid query: %s", strings.Join(r.Errors, "; "))
}

// Validate checks a query against the trace schema: known tables and
// columns, literal types matching column kinds, and operators applicable to
// the column. Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{}
	v.validateQuery(query)
	return ValidationResult{
		Valid:  len(v.errors) == 0,
		Errors: v.errors,
	}
}

type validator struct {
	errors []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addError("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	case Join:
		v.validateJoin(query)
	case *Join:
		v.validateJoin(*query)
	default:
		v.addError("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	table, ok := Tables[sel.From]
	if !ok {
		v.addError("unknown table %q", sel.From)
		return
	}
	for _, f := range sel.Fields {
		if _, ok := table.Column(f); !ok {
			v.addError("unknown column %q in %s", f, table.Name)
		}
	}
	v.validatePredicate(table, sel.Filter)
}

func (v *validator) validateJoin(join Join) {
	v.validateSelect(join.Left)
	v.validateSelect(join.Right)
	if len(join.On) == 0 {
		v.addError("join of %s and %s has no ON columns", join.Left.From, join.Right.From)
	}
	left, lok := Tables[join.Left.From]
	right, rok := Tables[join.Right.From]
	if !lok || !rok {
		return
	}
	for _, c := range join.On {
		lc, ok1 := left.Column(c)
		rc, ok2 := right.Column(c)
		if !ok1 || !ok2 {
			v.addError("join column %q must exist in %s and %s", c, left.Name, right.Name)
			continue
		}
		if lc.Kind != rc.Kind {
			v.addError("join column %q is %s in %s but %s in %s", c, lc.Kind, left.Name, rc.Kind, right.Name)
		}
	}
}

func (v *validator) validatePredicate(table Table, p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.validateComparison(table, pred.Field, OpEq, pred.Value)
	case *Equals:
		v.validateComparison(table, pred.Field, OpEq, pred.Value)
	case Compare:
		v.validateComparison(table, pred.Field, pred.Op, pred.Value)
	case *Compare:
		v.validateComparison(table, pred.Field, pred.Op, pred.Value)
	case HasRule:
		v.validateHasRule(table, pred)
	case *HasRule:
		v.validateHasRule(table, *pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(table, sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(table, sub)
		}
	default:
		v.addError("unknown predicate type: %T", p)
	}
}

func (v *validator) validateComparison(table Table, field string, op Op, value any) {
	col, ok := table.Column(field)
	if !ok {
		v.addError("unknown column %q in %s", field, table.Name)
		return
	}
	switch op {
	case OpEq, OpNe:
	case OpLt, OpLe, OpGt, OpGe:
		if col.Kind != KindInt {
			v.addError("operator %s needs an integer column, %s is %s", op, field, col.Kind)
			return
		}
	default:
		v.addError("unknown operator %q", op)
		return
	}
	if got := kindOf(value); got != col.Kind {
		v.addError("column %s is %s, compared with %T", field, col.Kind, value)
	}
}

func (v *validator) validateHasRule(table Table, h HasRule) {
	if _, ok := table.Column("rules"); !ok {
		v.addError("%s has no rules column", table.Name)
	}
	if h.Rule == "" {
		v.addError("empty rule name")
	}
}

func kindOf(value any) Kind {
	switch value.(type) {
	case string:
		return KindText
	case int64, int:
		return KindInt
	case bool:
		return KindBool
	default:
		return Kind(-1)
	}
}
