package ir

// DeltaCell is the result of one atomic edit: the cells it destroyed and
// the cells it created. Destroyed cells are clones owned by the delta.
type DeltaCell struct {
	Destroyed []*Cell
	Created   []*Cell
}

// Changed reports whether the edit created or destroyed anything.
func (d DeltaCell) Changed() bool {
	return len(d.Destroyed) > 0 || len(d.Created) > 0
}

// MergeDeltas concatenates several deltas into one, preserving order.
func MergeDeltas(deltas []DeltaCell) DeltaCell {
	if len(deltas) == 1 {
		return deltas[0]
	}
	var out DeltaCell
	for _, d := range deltas {
		out.Destroyed = append(out.Destroyed, d.Destroyed...)
		out.Created = append(out.Created, d.Created...)
	}
	return out
}
