// Package engine implements the ruleflow event engine.
//
// A Flow drives a RuleSet step by step. Each step runs the rule set over the
// spaces of the latest Event; whatever fires becomes the next Event. Cells
// created by a step are stamped with its time, destroyed cells with the time
// that destroyed them, and every destroyed cell contributes a causal edge
// from the event that created it.
//
// ARCHITECTURE:
//
// Single-writer stepping:
// Evolve matches and applies every rule before returning. Matching across
// independent spaces may run concurrently (see WithParallelism); application
// never does. Cancellation is checked between steps only.
//
// Logical clock:
// Event times come from Clock.Next(), never from wall-clock time. The
// initial event has time 0.
//
// Termination:
// A step in which nothing fires marks the latest event inert. Inert is
// terminal: further Evolve calls return the same event. EvolveUntilInert
// enforces a step cap through QuotaEnforcer and fails with
// StepsExceededError when it is reached.
package engine
