package vec

import (
	"bytes"
	"sync/atomic"

	"github.com/benbjohnson/immutable"

	"github.com/roach88/ruleflow/internal/ir"
)

// Stats counts mutation paths across every branch of one store family.
type Stats struct {
	PointUpdates atomic.Int64
	Rebuilds     atomic.Int64
	BufferCopies atomic.Int64
}

// Vec is a branchable cell sequence with a byte search buffer.
// A Vec is not safe for concurrent mutation; concurrent reads are fine.
type Vec struct {
	cells   *immutable.List[*ir.Cell]
	buf     []byte
	owned   bool
	cache   *Cache
	backend Backend
	stats   *Stats
}

// Option configures a Vec.
type Option func(*Vec)

// WithCache shares a pattern cache with the new store and its branches.
func WithCache(c *Cache) Option {
	return func(v *Vec) { v.cache = c }
}

// WithBackend selects the regex backend used by FindPattern.
func WithBackend(b Backend) Option {
	return func(v *Vec) { v.backend = b }
}

// WithStats shares a stats counter with the new store and its branches.
func WithStats(s *Stats) Option {
	return func(v *Vec) { v.stats = s }
}

// New creates a store holding cells. The slice itself is not retained.
func New(cells []*ir.Cell, opts ...Option) *Vec {
	v := &Vec{
		cells: immutable.NewList[*ir.Cell](cells...),
		buf:   ir.Encode(cells),
		owned: true,
		stats: &Stats{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// FromString creates a store of fresh cells from the bytes of s.
func FromString(s string, opts ...Option) *Vec {
	return New(ir.CellsOf(s), opts...)
}

// Len returns the number of cells.
func (v *Vec) Len() int { return v.cells.Len() }

// Get returns the cell at i. It panics if i is out of range.
func (v *Vec) Get(i int) *ir.Cell { return v.cells.Get(i) }

// Slice returns the cells in [start, end). It panics on bad bounds.
func (v *Vec) Slice(start, end int) []*ir.Cell {
	out := make([]*ir.Cell, 0, end-start)
	itr := v.cells.Slice(start, end).Iterator()
	for !itr.Done() {
		_, c := itr.Next()
		out = append(out, c)
	}
	return out
}

// Cells returns all cells in order.
func (v *Vec) Cells() []*ir.Cell { return v.Slice(0, v.Len()) }

// Bytes returns the search buffer. Callers must not modify it.
func (v *Vec) Bytes() []byte { return v.buf }

// Text renders the quanta of the store.
func (v *Vec) Text() string { return string(v.buf) }

// Stats returns the mutation counters shared with this store's branches.
func (v *Vec) Stats() *Stats { return v.stats }

// Cache returns the pattern cache, or nil.
func (v *Vec) Cache() *Cache { return v.cache }

// Branch returns a store sharing this one's cells and search buffer.
// Whichever side writes first copies the buffer.
func (v *Vec) Branch() *Vec {
	v.owned = false
	return &Vec{
		cells:   v.cells,
		buf:     v.buf,
		owned:   false,
		cache:   v.cache,
		backend: v.backend,
		stats:   v.stats,
	}
}

func (v *Vec) ensureOwned() {
	if v.owned {
		return
	}
	v.buf = bytes.Clone(v.buf)
	v.owned = true
	v.stats.BufferCopies.Add(1)
}

// Set replaces the cell at i.
func (v *Vec) Set(i int, c *ir.Cell) error {
	if i < 0 || i >= v.Len() {
		return &BoundsError{Op: "set", Start: i, End: i + 1, Length: v.Len()}
	}
	v.ensureOwned()
	v.cells = v.cells.Set(i, c)
	v.buf[i] = byte(c.Quanta)
	v.stats.PointUpdates.Add(1)
	return nil
}

// SetRange replaces [start, end) with cells. Equal lengths take the point
// path; anything else rebuilds the list and the buffer.
func (v *Vec) SetRange(start, end int, cells []*ir.Cell) error {
	if start < 0 || end < start || end > v.Len() {
		return &BoundsError{Op: "set_range", Start: start, End: end, Length: v.Len()}
	}
	if len(cells) == end-start {
		if len(cells) == 0 {
			return nil
		}
		v.ensureOwned()
		list := v.cells
		for i, c := range cells {
			list = list.Set(start+i, c)
			v.buf[start+i] = byte(c.Quanta)
		}
		v.cells = list
		v.stats.PointUpdates.Add(1)
		return nil
	}
	v.rebuild(start, end, cells)
	return nil
}

// InsertAt inserts cells before index i. i == Len appends.
func (v *Vec) InsertAt(i int, cells []*ir.Cell) error {
	if i < 0 || i > v.Len() {
		return &BoundsError{Op: "insert_at", Start: i, End: i, Length: v.Len()}
	}
	if len(cells) == 0 {
		return nil
	}
	v.rebuild(i, i, cells)
	return nil
}

// DeleteRange removes [start, end).
func (v *Vec) DeleteRange(start, end int) error {
	if start < 0 || end < start || end > v.Len() {
		return &BoundsError{Op: "delete_range", Start: start, End: end, Length: v.Len()}
	}
	if start == end {
		return nil
	}
	v.rebuild(start, end, nil)
	return nil
}

// Append adds cells at the end.
func (v *Vec) Append(cells ...*ir.Cell) {
	if len(cells) == 0 {
		return
	}
	v.ensureOwned()
	list := v.cells
	for _, c := range cells {
		list = list.Append(c)
		v.buf = append(v.buf, byte(c.Quanta))
	}
	v.cells = list
}

// rebuild replaces [start, end) with cells, producing a new list and a
// private buffer.
func (v *Vec) rebuild(start, end int, cells []*ir.Cell) {
	b := immutable.NewListBuilder[*ir.Cell]()
	itr := v.cells.Iterator()
	for !itr.Done() {
		i, c := itr.Next()
		if i == start {
			for _, nc := range cells {
				b.Append(nc)
			}
		}
		if i < start || i >= end {
			b.Append(c)
		}
	}
	if start == v.Len() {
		for _, nc := range cells {
			b.Append(nc)
		}
	}

	buf := make([]byte, 0, len(v.buf)-(end-start)+len(cells))
	buf = append(buf, v.buf[:start]...)
	buf = append(buf, ir.Encode(cells)...)
	buf = append(buf, v.buf[end:]...)

	v.cells = b.List()
	v.buf = buf
	v.owned = true
	v.stats.Rebuilds.Add(1)
}

// FindLiteral returns the spans of every occurrence of pattern, overlapping
// occurrences included, left to right. Cells whose quanta equal wildcard
// match anything.
func (v *Vec) FindLiteral(pattern []*ir.Cell, wildcard ir.Quanta) []ir.Span {
	plan := v.cache.literal(ir.Encode(pattern), byte(wildcard))
	return plan.findAll(v.buf)
}

// FindPattern returns non-overlapping leftmost matches of a regex over the
// search buffer.
func (v *Vec) FindPattern(pattern string) ([]ir.Span, error) {
	m, err := v.cache.pattern(v.backend, pattern)
	if err != nil {
		return nil, err
	}
	return m.findAll(v.buf)
}
