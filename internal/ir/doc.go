// Package ir defines the data model shared by every layer of ruleflow.
//
// The types here are deliberately plain: cells and their lifecycle metadata,
// spans, the tagged Selector and Target values handed over by a rule front
// end, the DeltaCell record produced by every edit, and the flat snapshot
// records used for export and golden comparison.
//
// # Cells
//
// A Cell carries one Quanta plus the indices of the events that created and
// destroyed it. Equality is semantic: two cells are equal when their quanta
// are equal, whatever their metadata says. Cells are shared by pointer across
// branches; any edit that destroys a cell records a Clone so that sibling
// branches can stamp different destruction events on "the same" cell.
//
// # Canonical JSON
//
// MarshalCanonical produces RFC 8785 style JSON (sorted keys by UTF-16 code
// units, NFC strings, no HTML escaping, no floats). It is the only encoding
// used for hashing and for golden trace files.
package ir
