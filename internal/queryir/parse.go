package queryir

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// fieldAliases maps the short names accepted by ParseWhere to columns.
var fieldAliases = map[string]string{
	"flow":     "flow_id",
	"t":        "time",
	"distance": "causal_distance",
	"d":        "causal_distance",
}

// whereLexer switches to value mode after the operator, so a value may
// contain spaces and operator characters, as in rule=A -> B.
var whereLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Op", Pattern: `>=|<=|!=|=|>|<`, Action: lexer.Push("Value")},
		{Name: "Field", Pattern: `[^\s=!<>]+`},
	},
	"Value": {
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'[^']*'`},
		{Name: "Text", Pattern: `\S.*`},
	},
})

type whereNode struct {
	Field string `@Field?`
	Op    string `@Op`
	Value string `@(String | Text)?`
}

var whereParser = participle.MustBuild[whereNode](
	participle.Lexer(whereLexer),
	participle.Elide("Whitespace"),
)

// ParseWhere parses one "field<op>value" expression against table.
//
// The value is typed by the column: integers for integer columns, true/false
// for boolean columns, anything else as text with optional surrounding
// quotes removed. The pseudo-field "rule" (with =) matches events that fired
// the named rule.
//
//	distance>=2
//	inert=true
//	rule="AB -> ABAB"
func ParseWhere(table, expr string) (Predicate, error) {
	t, ok := Tables[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	field, op, raw, err := splitExpr(expr)
	if err != nil {
		return nil, err
	}
	raw = unquote(raw)

	if field == "rule" {
		if op != OpEq {
			return nil, fmt.Errorf("%q: rule supports = only", expr)
		}
		return HasRule{Rule: raw}, nil
	}
	if alias, ok := fieldAliases[field]; ok {
		field = alias
	}
	col, ok := t.Column(field)
	if !ok {
		return nil, fmt.Errorf("%q: unknown field %q", expr, field)
	}

	var value any
	switch col.Kind {
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %s needs an integer", expr, field)
		}
		value = n
	case KindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%q: %s needs true or false", expr, field)
		}
		value = b
	default:
		value = raw
	}

	if op == OpEq {
		return Equals{Field: field, Value: value}, nil
	}
	pred := Compare{Field: field, Op: op, Value: value}
	if errs := Validate(Select{From: table, Filter: pred}); !errs.Valid {
		return nil, fmt.Errorf("%q: %s", expr, errs.Errors[0])
	}
	return pred, nil
}

// ParseWheres parses every expression and joins them with And.
// No expressions yield a nil predicate.
func ParseWheres(table string, exprs []string) (Predicate, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	preds := make([]Predicate, 0, len(exprs))
	for _, e := range exprs {
		p, err := ParseWhere(table, e)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if len(preds) == 1 {
		return preds[0], nil
	}
	return And{Predicates: preds}, nil
}

func splitExpr(expr string) (string, Op, string, error) {
	node, err := whereParser.ParseString("", expr)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			return "", "", "", fmt.Errorf("%q: expected field<op>value: %s at column %d", expr, perr.Message(), perr.Position().Column)
		}
		return "", "", "", fmt.Errorf("%q: expected field<op>value: %w", expr, err)
	}
	if node.Field == "" {
		return "", "", "", fmt.Errorf("%q: missing field", expr)
	}
	return node.Field, Op(node.Op), strings.TrimSpace(node.Value), nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
