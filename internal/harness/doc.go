// Package harness runs rule programs against YAML scenarios and checks the
// resulting causal history.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: causal_chain
//	description: "Each rewrite consumes the cells made one step earlier"
//	init: [AB]
//	rules:
//	  - "AB -> ABAB"
//	flags: "-pl[1]"
//	directives: ["@compress(0)"]
//	steps: 3
//	assertions:
//	  - type: final_spaces
//	    spaces: [ABABABAB]
//	  - type: causal_predecessors
//	    time: 3
//	    predecessors: [2]
//
// Instead of inline rules a scenario may name a CUE program file:
//
//	program: ../programs/rule30.cue
//
// Relative program paths are resolved against the scenario's base path.
// steps, until_inert and max_steps in the scenario override the program's.
// regex_backend: regexp2 enables backreferences and lookaround in /regex/
// selectors.
//
// # Assertion Types
//
//   - final_spaces: the spaces of the last event, in order
//   - inert: whether the flow ended inert
//   - event_count: number of events including the initial one
//   - causal_predecessors: predecessor times of the event at a given time
//   - causal_distance: causal distance of the event at a given time
//
// # Deterministic Testing
//
// Flows run with a fixed flow id (flow_id, or testutil.DefaultFlowID) and
// the engine's logical clock, so the same scenario always yields the same
// snapshot. RunWithGolden compares that snapshot, in canonical JSON, with a
// golden file under testdata/golden.
package harness
