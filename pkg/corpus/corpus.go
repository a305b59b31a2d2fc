// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package corpus implements the ordered collection of kept Testcases: ids
// stable once assigned, removal rare and may renumber, at most one
// Testcase "current" at a time in cache-backed variants. Generalized from
// a *prog.Prog-specific ProgramsList/progSelector (prio.go, selection.go,
// weighted_pc_selection.go) to the generic testcase.Testcase.
package corpus

import (
	"fmt"
	"sync"

	"github.com/google/goafl/pkg/testcase"
)

// Corpus operations: add, get, count, current/set_current, optional
// remove.
type Corpus interface {
	Add(tc *testcase.Testcase) int
	Get(id int) (*testcase.Testcase, bool)
	Count() int
	Current() int
	SetCurrent(id int)
	Remove(id int) error
	All() []*testcase.Testcase
	// Ids returns the currently live ids, in no particular order.
	Ids() []int
}

// InMemoryCorpus keeps every testcase resident; ids are the position a
// testcase was assigned at insertion and never reused, even across Remove.
type InMemoryCorpus struct {
	mu      sync.RWMutex
	entries map[int]*testcase.Testcase
	nextID  int
	current int
}

func NewInMemoryCorpus() *InMemoryCorpus {
	return &InMemoryCorpus{entries: make(map[int]*testcase.Testcase), current: -1}
}

func (c *InMemoryCorpus) Add(tc *testcase.Testcase) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.entries[id] = tc
	return id
}

func (c *InMemoryCorpus) Get(id int) (*testcase.Testcase, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tc, ok := c.entries[id]
	return tc, ok
}

func (c *InMemoryCorpus) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *InMemoryCorpus) Current() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *InMemoryCorpus) SetCurrent(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = id
}

// Remove deletes id from the corpus. Ids are never reassigned, so
// subsequent Add calls keep monotonically increasing ids: ids are stable
// once assigned and removal never renumbers. The on-disk variants behave
// the same way.
func (c *InMemoryCorpus) Remove(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok {
		return fmt.Errorf("corpus: no such id %d", id)
	}
	delete(c.entries, id)
	if c.current == id {
		c.current = -1
	}
	return nil
}

func (c *InMemoryCorpus) All() []*testcase.Testcase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*testcase.Testcase, 0, len(c.entries))
	for _, tc := range c.entries {
		out = append(out, tc)
	}
	return out
}

func (c *InMemoryCorpus) Ids() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	return ids
}
