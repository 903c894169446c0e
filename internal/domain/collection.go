package domain

import (
	"sync"

	"cloud.google.com/go/civil"
	"github.com/google/btree"
)

const collectionDegree = 16

// Collection holds at most one Operation per date, ordered ascending.
// It is safe for concurrent use.
type Collection struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[*Operation]
}

func operationLess(a, b *Operation) bool {
	return a.date.Before(b.date)
}

// NewCollection returns a collection populated with ops. Later operations
// replace earlier ones with the same date.
func NewCollection(ops ...*Operation) *Collection {
	c := &Collection{tree: btree.NewG[*Operation](collectionDegree, operationLess)}
	for _, op := range ops {
		c.tree.ReplaceOrInsert(op)
	}
	return c
}

// Put inserts op, replacing any operation with the same date. It reports
// whether an existing operation was replaced.
func (c *Collection) Put(op *Operation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, replaced := c.tree.ReplaceOrInsert(op)
	return replaced
}

// Get returns the operation for date.
func (c *Collection) Get(date civil.Date) (*Operation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Get(&Operation{date: date})
}

// Range returns the operations with start <= date <= end, ascending.
func (c *Collection) Range(start, end civil.Date) []*Operation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Operation
	c.tree.AscendGreaterOrEqual(&Operation{date: start}, func(op *Operation) bool {
		if op.date.After(end) {
			return false
		}
		out = append(out, op)
		return true
	})
	return out
}

// All returns every operation, ascending.
func (c *Collection) All() []*Operation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Operation, 0, c.tree.Len())
	c.tree.Ascend(func(op *Operation) bool {
		out = append(out, op)
		return true
	})
	return out
}

// First returns the earliest operation.
func (c *Collection) First() (*Operation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Min()
}

// Last returns the latest operation.
func (c *Collection) Last() (*Operation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Max()
}

// Len returns the number of operations.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Len()
}

// Merge copies every operation from other into c; other wins on equal dates.
// It returns the number of dates that were replaced.
func (c *Collection) Merge(other *Collection) int {
	if other == nil || other == c {
		return 0
	}
	incoming := other.All()
	c.mu.Lock()
	defer c.mu.Unlock()
	replaced := 0
	for _, op := range incoming {
		if _, ok := c.tree.ReplaceOrInsert(op); ok {
			replaced++
		}
	}
	return replaced
}
