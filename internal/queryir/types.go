package queryir

// Query is a read over the trace tables.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate is a row filter.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Select reads Fields from one table.
//
//	SELECT [DISTINCT] <fields> FROM <from> WHERE <filter>
//
// An empty Fields list selects every column of the table, in schema order.
type Select struct {
	From     string    // table name (see Tables)
	Filter   Predicate // WHERE conditions (nil = no filter)
	Fields   []string  // columns to return
	Distinct bool
}

func (Select) queryNode() {}

// Join is an inner equi-join of two selects.
//
//	SELECT <left.fields>, <right.fields> FROM <left> JOIN <right>
//	ON left.c = right.c AND ... WHERE <left.filter> AND <right.filter>
//
// Every column in On must exist in both tables.
type Join struct {
	Left     Select
	Right    Select
	On       []string
	Distinct bool
}

func (Join) queryNode() {}

// Equals matches rows whose Field equals Value.
type Equals struct {
	Field string
	Value any // string, int64 or bool
}

func (Equals) predicateNode() {}

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="
)

// Compare matches rows whose Field stands in relation Op to Value.
// Ordering operators apply to integer columns only.
type Compare struct {
	Field string
	Op    Op
	Value any
}

func (Compare) predicateNode() {}

// HasRule matches events whose fired rule list contains Rule.
type HasRule struct {
	Rule string
}

func (HasRule) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
