// Package queryir provides an abstract query representation over the
// tables of a trace database.
//
// Queries are built in memory, checked against the trace schema with
// Validate, and handed to a backend compiler (see querysql) that renders
// them to parameterized SQL. The CLI builds them from --where expressions
// with ParseWhere; the store builds them for its own lookups.
//
// SUPPORTED FRAGMENT:
//
//   - Select(from, filter, fields) - one table with an optional filter
//   - Join(left, right, on) - inner equi-join of two selects on shared columns
//   - Predicates: Equals, Compare, HasRule, And
//
// OR, aggregation and subqueries are not part of the fragment.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, so backends can switch
// exhaustively:
//
//	switch q := query.(type) {
//	case Select:
//	    // Handle select
//	case Join:
//	    // Handle join
//	}
//
// Literal values are string, int64 or bool. Booleans are stored as 0/1
// integers and compared that way by the SQL backend.
package queryir
