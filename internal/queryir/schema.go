package queryir

// Kind is the value type of a column.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "integer"
	case KindBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// Column describes one queryable column.
type Column struct {
	Name string
	Kind Kind
}

// Table describes one queryable table. Order is the stable sort key used by
// backends so results are deterministic.
type Table struct {
	Name    string
	Columns []Column
	Order   []string
}

// Column returns the named column.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames lists the table's columns in schema order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Table names.
const (
	TableFlows       = "flows"
	TableEvents      = "events"
	TableEventSpaces = "event_spaces"
	TableCausalEdges = "causal_edges"
)

// Tables is the trace schema as seen by queries.
var Tables = map[string]Table{
	TableFlows: {
		Name: TableFlows,
		Columns: []Column{
			{"id", KindText},
			{"spec_hash", KindText},
			{"event_count", KindInt},
			{"inert", KindBool},
		},
		Order: []string{"id"},
	},
	TableEvents: {
		Name: TableEvents,
		Columns: []Column{
			{"flow_id", KindText},
			{"time", KindInt},
			{"inert", KindBool},
			{"causal_distance", KindInt},
			{"rules", KindText},
			{"created", KindInt},
			{"destroyed", KindInt},
		},
		Order: []string{"flow_id", "time"},
	},
	TableEventSpaces: {
		Name: TableEventSpaces,
		Columns: []Column{
			{"flow_id", KindText},
			{"time", KindInt},
			{"idx", KindInt},
			{"text", KindText},
			{"digest", KindText},
		},
		Order: []string{"flow_id", "time", "idx"},
	},
	TableCausalEdges: {
		Name: TableCausalEdges,
		Columns: []Column{
			{"flow_id", KindText},
			{"from_time", KindInt},
			{"to_time", KindInt},
			{"count", KindInt},
		},
		Order: []string{"flow_id", "from_time", "to_time"},
	},
}
