// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package mutator implements the primitive mutators and the scheduled
// chain that applies them: a mutator chain is a list of primitive
// mutators; a scheduled mutator picks k primitives uniformly and applies
// them in sequence, and if all skip, the stage discards the iteration.
package mutator

import "math/rand"

// Result is a primitive mutator's verdict.
type Result int

const (
	Skipped Result = iota
	Mutated
)

// Mutator mutates buf in place (or returns a replacement, for mutators that
// must resize), reporting whether it changed anything.
type Mutator interface {
	Name() string
	Mutate(r *rand.Rand, buf []byte) ([]byte, Result)
}

// Chain picks k mutators uniformly from a fixed pool and applies them in
// sequence to a buffer. If every pick is a Skip, the caller should discard
// the iteration.
type Chain struct {
	pool []Mutator
	k    int
}

// NewChain builds a scheduled mutator applying k randomly chosen primitives
// per call from pool.
func NewChain(pool []Mutator, k int) *Chain {
	return &Chain{pool: pool, k: k}
}

func (c *Chain) Apply(r *rand.Rand, buf []byte) ([]byte, Result) {
	out := buf
	overall := Skipped
	for i := 0; i < c.k; i++ {
		if len(c.pool) == 0 {
			break
		}
		m := c.pool[r.Intn(len(c.pool))]
		next, res := m.Mutate(r, out)
		if res == Mutated {
			out = next
			overall = Mutated
		}
	}
	return out, overall
}
