package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWhere(t *testing.T) {
	tests := []struct {
		expr string
		want Predicate
	}{
		{"time=3", Equals{Field: "time", Value: int64(3)}},
		{"distance>=2", Compare{Field: "causal_distance", Op: OpGe, Value: int64(2)}},
		{"d < 4", Compare{Field: "causal_distance", Op: OpLt, Value: int64(4)}},
		{"created>0", Compare{Field: "created", Op: OpGt, Value: int64(0)}},
		{"inert=true", Equals{Field: "inert", Value: true}},
		{"flow!=flow-a", Compare{Field: "flow_id", Op: OpNe, Value: "flow-a"}},
		{`flow="flow-b"`, Equals{Field: "flow_id", Value: "flow-b"}},
		{`rule="AB -> ABAB"`, HasRule{Rule: "AB -> ABAB"}},
		{"rule=A -> B", HasRule{Rule: "A -> B"}},
		{`flow="a>=b"`, Equals{Field: "flow_id", Value: "a>=b"}},
		{"  distance  >  1  ", Compare{Field: "causal_distance", Op: OpGt, Value: int64(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseWhere(TableEvents, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWhere_Errors(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr string
	}{
		{"time", "expected field<op>value"},
		{"time 3", "expected field<op>value"},
		{"time=", "time needs an integer"},
		{"=3", "missing field"},
		{"color=red", `unknown field "color"`},
		{"time=soon", "time needs an integer"},
		{"inert=maybe", "inert needs true or false"},
		{"rule>=A", "rule supports = only"},
		{"flow>a", "needs an integer column"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := ParseWhere(TableEvents, tt.expr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseWhere_UnknownTable(t *testing.T) {
	_, err := ParseWhere("bindings", "time=1")
	assert.ErrorContains(t, err, `unknown table "bindings"`)
}

func TestParseWheres(t *testing.T) {
	p, err := ParseWheres(TableEvents, nil)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = ParseWheres(TableEvents, []string{"time=1"})
	require.NoError(t, err)
	assert.Equal(t, Equals{Field: "time", Value: int64(1)}, p)

	p, err = ParseWheres(TableEvents, []string{"time>=1", "inert=false"})
	require.NoError(t, err)
	assert.Equal(t, And{Predicates: []Predicate{
		Compare{Field: "time", Op: OpGe, Value: int64(1)},
		Equals{Field: "inert", Value: false},
	}}, p)

	_, err = ParseWheres(TableEvents, []string{"time>=1", "bogus"})
	assert.Error(t, err)
}
