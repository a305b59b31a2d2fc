// Copyright 2025 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"math/rand"

	"github.com/google/goafl/pkg/signal"
	"github.com/google/goafl/pkg/testcase"
)

// SeedSelection is a pluggable corpus-wide seed-selection policy: it tracks
// testcases and their signals as they're saved, and picks one to mutate
// next. Generalized from a *prog.Prog-specific interface of the same shape.
type SeedSelection interface {
	ChooseTestcase(r *rand.Rand) *testcase.Testcase
	SaveTestcase(tc *testcase.Testcase, sig signal.Signal, cover []uint32)
	Testcases() []*testcase.Testcase
	Empty() SeedSelection
}

func NewWeightedPCSelection() SeedSelection {
	return &WeightedPCSelection{
		cellMap: make(map[uint32]int),
	}
}

// WeightedPCSelection picks a testcase in two steps: first a covered edge
// cell among cells ever seen, weighted by 1/(number of testcases that cover
// it); then a testcase covering that cell, chosen uniformly among its
// coverers. This naturally favors testcases that are the
// unique or rare coverer of some cell. Implemented as a segment tree over
// cells so selection is O(log n).
type WeightedPCSelection struct {
	tree       []weightedPCNode
	cellMap    map[uint32]int
	allEntries []*testcase.Testcase
}

type weightedPCNode struct {
	selection *tcWeightedBag
	weight    float64
	sum       float64
}

func (s *WeightedPCSelection) ChooseTestcase(r *rand.Rand) *testcase.Testcase {
	if len(s.tree) == 0 {
		return nil
	}
	idx := 0
	val := r.Float64() * s.tree[0].sum
	for {
		left := 2*idx + 1
		if left < len(s.tree) {
			if val < s.tree[left].sum {
				idx = left
				continue
			}
			val -= s.tree[left].sum
		}

		if val < s.tree[idx].weight {
			return s.tree[idx].selection.choose(r)
		}
		val -= s.tree[idx].weight

		right := 2*idx + 2
		if right < len(s.tree) {
			idx = right
			continue
		}

		return s.tree[idx].selection.choose(r)
	}
}

func (s *WeightedPCSelection) SaveTestcase(tc *testcase.Testcase, sig signal.Signal, cover []uint32) {
	if s.cellMap == nil {
		s.cellMap = make(map[uint32]int)
	}
	for _, cell := range cover {
		idx, ok := s.cellMap[cell]
		if !ok {
			idx = len(s.tree)
			s.cellMap[cell] = idx
			s.tree = append(s.tree, weightedPCNode{selection: &tcWeightedBag{}})
		}
		node := &s.tree[idx]
		node.selection.save(tc)
		node.weight = 1.0 / float64(len(node.selection.entries))
		s.updateSum(idx)
	}
	s.allEntries = append(s.allEntries, tc)
}

func (s *WeightedPCSelection) updateSum(idx int) {
	for {
		node := &s.tree[idx]
		sum := node.weight
		left := 2*idx + 1
		if left < len(s.tree) {
			sum += s.tree[left].sum
		}
		right := 2*idx + 2
		if right < len(s.tree) {
			sum += s.tree[right].sum
		}
		node.sum = sum

		if idx == 0 {
			break
		}
		idx = (idx - 1) / 2
	}
}

func (s *WeightedPCSelection) Testcases() []*testcase.Testcase {
	return s.allEntries
}

func (s *WeightedPCSelection) Empty() SeedSelection {
	return NewWeightedPCSelection()
}

// tcWeightedBag is a uniform bag of testcases sharing one covered cell.
type tcWeightedBag struct {
	entries []*testcase.Testcase
}

func (b *tcWeightedBag) save(tc *testcase.Testcase) {
	b.entries = append(b.entries, tc)
}

func (b *tcWeightedBag) choose(r *rand.Rand) *testcase.Testcase {
	if len(b.entries) == 0 {
		return nil
	}
	return b.entries[r.Intn(len(b.entries))]
}
