// Package rule implements rewrite rules and rule sets.
//
// A Rule binds one of six edit kinds to a generic match/apply protocol.
// Match scans a window of spaces with every selector and records which
// matches conflict. Apply walks the matches, editing working copies of the
// input space and branching according to the rule's flags:
//
//   - ParallelLimit edits accumulate on one working copy before it is
//     flushed as an output.
//   - BranchLimit bounds how many further working copies a single Apply
//     may start for one input space.
//   - ConflictResolution decides what happens to conflicting matches:
//     branch them off, skip them, stop, or ignore the conflict.
//
// Earlier non-overlapping edits on the same working copy shift the positions
// of later matches; Apply re-bases each match by the length change of the
// edits before it.
//
// A RuleSet applies its rules in order once per step and handles groups:
// when a rule fires with GroupBreak set, the rest of its group sits out the
// step unless marked AlwaysApply.
//
// Rules report what they do through a Sink. The default Sink does nothing.
package rule
