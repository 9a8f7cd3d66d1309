// Package vec implements the persistent cell sequence store.
//
// A Vec holds the cells of one branch in an immutable.List, so Branch is O(1)
// and never copies cells. Alongside the list it keeps a search buffer: one
// byte per cell, buffer[i] == cells[i].Quanta, used by FindLiteral and
// FindPattern. The buffer is copy-on-write at whole-buffer granularity: a
// branch shares it with its origin until one of them writes.
//
// Mutations come in two shapes with different costs:
//
//   - Point path: Set, and SetRange with a replacement of equal length.
//     Each touched index is updated in place in the list (path copying) and
//     in the buffer.
//   - Rebuild path: SetRange with a different length, InsertAt and
//     DeleteRange. The list is rebuilt with a ListBuilder and a fresh buffer
//     is produced.
//
// Stats counts both paths and buffer copies so callers can observe them.
//
// Compiled patterns and literal search plans are cached in a Cache shared by
// every branch of one flow. The cache only ever affects latency.
package vec
