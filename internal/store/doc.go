// Package store provides SQLite-backed export of flow causal graphs.
//
// A stored flow is a read-only projection of an evolved Flow:
//   - flows: one row per exported flow, keyed by flow id
//   - events: event time, inertness, causal distance and fired rules
//   - event_spaces: the space texts alive at each event
//   - causal_edges: creator/destroyer event pairs with multiplicity
//
// A flow cannot be resumed from the store. Predecessor sets are derived from
// causal_edges on read, so the two can never disagree.
//
// # Ordering
//
// All queries order by logical event time (and space index or edge endpoints),
// never by wall time, so reads are identical across exports of the same flow.
// Cross-flow lookups (FindSpace, FindEvents) are built as queryir queries and
// rendered by querysql, which always appends the table's stable sort key.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
