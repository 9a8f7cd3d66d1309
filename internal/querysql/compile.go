package querysql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ruleflow/internal/queryir"
)

// SQLCompiler compiles queries to parameterized SQL for SQLite.
//
// Every query ends in an ORDER BY over the table's stable key so results
// are deterministic. Literal values are always passed as parameters, never
// interpolated.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// Compile converts a query to parameterized SQL.
// The query is validated first; invalid queries are rejected.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Join:
		return c.compileJoin(query)
	case *queryir.Join:
		return c.compileJoin(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	table := queryir.Tables[q.From]
	fields := selectedFields(table, q.Fields)

	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(strings.Join(fields, ", "))
	b.WriteString(" FROM ")
	b.WriteString(table.Name)

	var params []any
	if q.Filter != nil {
		where, filterParams, err := c.compilePredicate(q.Filter, "")
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = filterParams
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(orderKey(table, fields, q.Distinct, ""))
	return b.String(), params, nil
}

func (c *SQLCompiler) compileJoin(j queryir.Join) (string, []any, error) {
	left := queryir.Tables[j.Left.From]
	right := queryir.Tables[j.Right.From]

	var cols []string
	for _, f := range selectedFields(left, j.Left.Fields) {
		cols = append(cols, "l."+f)
	}
	for _, f := range j.Right.Fields {
		cols = append(cols, "r."+f)
	}

	on := make([]string, len(j.On))
	for i, col := range j.On {
		on[i] = fmt.Sprintf("l.%s = r.%s", col, col)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if j.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(strings.Join(cols, ", "))
	fmt.Fprintf(&b, " FROM %s AS l INNER JOIN %s AS r ON %s", left.Name, right.Name, strings.Join(on, " AND "))

	var where []string
	var params []any
	for _, side := range []struct {
		alias  string
		filter queryir.Predicate
	}{{"l.", j.Left.Filter}, {"r.", j.Right.Filter}} {
		if side.filter == nil {
			continue
		}
		sql, p, err := c.compilePredicate(side.filter, side.alias)
		if err != nil {
			return "", nil, fmt.Errorf("compile join filter: %w", err)
		}
		where = append(where, sql)
		params = append(params, p...)
	}
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(orderKey(left, selectedFields(left, j.Left.Fields), j.Distinct, "l."))
	return b.String(), params, nil
}

// selectedFields defaults an empty field list to every column.
func selectedFields(table queryir.Table, fields []string) []string {
	if len(fields) == 0 {
		return table.ColumnNames()
	}
	return fields
}

// orderKey renders the table's stable sort key. With DISTINCT only selected
// columns may be used, so keys outside the selection are dropped and the
// selection itself is the fallback.
func orderKey(table queryir.Table, fields []string, distinct bool, alias string) string {
	keys := table.Order
	if distinct {
		keys = nil
		for _, k := range table.Order {
			if slices.Contains(fields, k) {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			keys = fields
		}
	}

	parts := make([]string, len(keys))
	for i, k := range keys {
		col, _ := table.Column(k)
		if col.Kind == queryir.KindText {
			parts[i] = alias + k + " COLLATE BINARY ASC"
		} else {
			parts[i] = alias + k + " ASC"
		}
	}
	return strings.Join(parts, ", ")
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate, alias string) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return compileComparison(alias+pred.Field, queryir.OpEq, pred.Value)
	case *queryir.Equals:
		return compileComparison(alias+pred.Field, queryir.OpEq, pred.Value)
	case queryir.Compare:
		return compileComparison(alias+pred.Field, pred.Op, pred.Value)
	case *queryir.Compare:
		return compileComparison(alias+pred.Field, pred.Op, pred.Value)
	case queryir.HasRule:
		return compileHasRule(alias, pred)
	case *queryir.HasRule:
		return compileHasRule(alias, *pred)
	case queryir.And:
		return c.compileAnd(pred, alias)
	case *queryir.And:
		return c.compileAnd(*pred, alias)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileComparison(column string, op queryir.Op, value any) (string, []any, error) {
	param, err := toParam(value)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s %s ?", column, op), []any{param}, nil
}

// compileHasRule tests membership in the JSON array stored in rules.
func compileHasRule(alias string, h queryir.HasRule) (string, []any, error) {
	sql := fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%srules) WHERE json_each.value = ?)", alias)
	return sql, []any{h.Rule}, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And, alias string) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, p, err := c.compilePredicate(pred, alias)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// toParam converts a literal to its SQLite parameter. Booleans are stored
// as 0/1 integers.
func toParam(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	default:
		return nil, fmt.Errorf("unsupported literal type for SQL parameter: %T", v)
	}
}
