package vec

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds each of the two caches.
const DefaultCacheSize = 256

type patternKey struct {
	backend Backend
	pattern string
}

type literalKey struct {
	text     string
	wildcard byte
}

// Cache holds compiled patterns and literal search plans. It is safe for
// concurrent use. Entries are read with Peek so eviction is by insertion
// order, not by recency.
type Cache struct {
	literals *lru.Cache[literalKey, *literalPlan]
	patterns *lru.Cache[patternKey, matcher]
}

// NewCache creates a cache holding at most size entries of each kind.
func NewCache(size int) (*Cache, error) {
	literals, err := lru.New[literalKey, *literalPlan](size)
	if err != nil {
		return nil, fmt.Errorf("literal cache: %w", err)
	}
	patterns, err := lru.New[patternKey, matcher](size)
	if err != nil {
		return nil, fmt.Errorf("pattern cache: %w", err)
	}
	return &Cache{literals: literals, patterns: patterns}, nil
}

// MustNewCache is like NewCache but panics on error.
func MustNewCache(size int) *Cache {
	c, err := NewCache(size)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of cached literal plans and compiled patterns.
func (c *Cache) Len() (literals, patterns int) {
	if c == nil {
		return 0, 0
	}
	return c.literals.Len(), c.patterns.Len()
}

func (c *Cache) literal(encoded []byte, wildcard byte) *literalPlan {
	if c == nil {
		return newLiteralPlan(encoded, wildcard)
	}
	key := literalKey{text: string(encoded), wildcard: wildcard}
	if plan, ok := c.literals.Peek(key); ok {
		return plan
	}
	plan := newLiteralPlan(encoded, wildcard)
	c.literals.Add(key, plan)
	return plan
}

func (c *Cache) pattern(backend Backend, pattern string) (matcher, error) {
	if c == nil {
		return compile(backend, pattern)
	}
	key := patternKey{backend: backend, pattern: pattern}
	if m, ok := c.patterns.Peek(key); ok {
		return m, nil
	}
	m, err := compile(backend, pattern)
	if err != nil {
		return nil, err
	}
	c.patterns.Add(key, m)
	return m, nil
}
