package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/ruleflow/internal/ir"
)

// marshalRules converts the fired rule names of an event to canonical JSON TEXT.
// An empty list is stored as "[]" so the column is never NULL.
func marshalRules(rules []string) (string, error) {
	if rules == nil {
		rules = []string{}
	}
	data, err := ir.MarshalCanonical(rules)
	if err != nil {
		return "", fmt.Errorf("marshal rules: %w", err)
	}
	return string(data), nil
}

// unmarshalRules parses the rules column. A missing value yields an empty list.
func unmarshalRules(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var rules []string
	if err := json.Unmarshal([]byte(data), &rules); err != nil {
		return nil, fmt.Errorf("unmarshal rules: %w", err)
	}
	return rules, nil
}

// spaceDigest identifies a stored space text.
func spaceDigest(text string) string {
	return ir.SpaceDigest(ir.CellsOf(text))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
