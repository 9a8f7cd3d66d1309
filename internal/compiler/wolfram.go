package compiler

import (
	"fmt"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/rule"
)

// neighborhoods lists the elementary cellular automaton neighborhoods in
// Wolfram's order, most significant bit first.
var neighborhoods = [8][3]int{
	{1, 1, 1}, {1, 1, 0}, {1, 0, 1}, {1, 0, 0},
	{0, 1, 1}, {0, 1, 0}, {0, 0, 1}, {0, 0, 0},
}

// WolframPair is one neighborhood and the state its center cell becomes.
type WolframPair struct {
	Neighborhood string
	Center       byte
}

// WolframPairs enumerates elementary cellular automaton number n over a
// two-symbol charset: charset[0] is the dead state, charset[1] the live one.
func WolframPairs(charset string, n int) ([]WolframPair, error) {
	if len(charset) != 2 {
		return nil, fmt.Errorf("charset must contain exactly 2 symbols, got %q", charset)
	}
	if n < 0 || n > 255 {
		return nil, fmt.Errorf("rule number must be in [0,255], got %d", n)
	}
	pairs := make([]WolframPair, len(neighborhoods))
	for i, nb := range neighborhoods {
		bit := (n >> (7 - i)) & 1
		pairs[i] = WolframPair{
			Neighborhood: string([]byte{charset[nb[0]], charset[nb[1]], charset[nb[2]]}),
			Center:       charset[bit],
		}
	}
	return pairs, nil
}

// WolframRules returns one overwrite instruction per neighborhood of rule
// n. Each writes the new center state and leaves both neighbors untouched
// through wildcards, as in "ABA --> _A".
func WolframRules(charset string, n int) ([]ir.Instruction, error) {
	pairs, err := WolframPairs(charset, n)
	if err != nil {
		return nil, err
	}
	out := make([]ir.Instruction, len(pairs))
	for i, p := range pairs {
		target := string([]byte{byte(ir.Wildcard), p.Center})
		out[i] = ir.Instruction{
			Source:    p.Neighborhood + " " + rule.OpOverwrite + " " + target,
			Selectors: []ir.Selector{ir.LiteralSelector(p.Neighborhood)},
			Operator:  rule.OpOverwrite,
			Targets:   []ir.Target{ir.CellsTarget(target)},
			Flags:     ir.Flags{},
		}
	}
	return out, nil
}
