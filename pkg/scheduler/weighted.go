// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package scheduler

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/google/goafl/pkg/corpus"
	"github.com/google/goafl/pkg/signal"
	"github.com/google/goafl/pkg/testcase"
)

// CoverageOf reports the signal a testcase covers, so Weighted can tell
// which testcases are each cell's unique/cheapest coverer without owning
// feedback internals itself.
type CoverageOf func(tc *testcase.Testcase) signal.Signal

// Weighted recomputes a favored set whenever new coverage arrives: a
// testcase is favored if it is the shortest/fastest one covering at least
// one otherwise-uncovered edge. Next() picks favored with high
// probability, non-favored with low probability; a per-testcase skip
// counter decays favored testcases chosen too often so they don't starve
// the rest of the corpus.
type Weighted struct {
	coverageOf CoverageOf

	mu          sync.Mutex
	favoredIDs  []int
	skipCounter map[int]int
	generation  int // bumped whenever OnAdd invalidates the favored set
}

func NewWeighted(coverageOf CoverageOf) *Weighted {
	return &Weighted{coverageOf: coverageOf, skipCounter: make(map[int]int)}
}

// favoredProbability is the chance Next() picks from the favored set when
// it is non-empty (AFL's classic ~spec-equivalent heuristic: favor the
// minimized corpus most of the time, but keep exploring the rest).
const favoredProbability = 0.85

func (w *Weighted) Next(c corpus.Corpus, r *rand.Rand) (int, bool) {
	ids := c.Ids()
	if len(ids) == 0 {
		return 0, false
	}

	w.mu.Lock()
	if w.favoredIDs == nil {
		w.recompute(c)
	}
	favored := w.favoredIDs
	w.mu.Unlock()

	if len(favored) > 0 && r.Float64() < favoredProbability {
		for attempt := 0; attempt < len(favored); attempt++ {
			id := favored[r.Intn(len(favored))]
			w.mu.Lock()
			skip := w.skipCounter[id]
			if skip > 0 && r.Intn(skip+1) != 0 {
				w.skipCounter[id] = skip - 1
				w.mu.Unlock()
				continue
			}
			w.skipCounter[id] = skip + 1
			w.mu.Unlock()
			return id, true
		}
	}

	sort.Ints(ids)
	return ids[r.Intn(len(ids))], true
}

// OnAdd invalidates the cached favored set; it is recomputed lazily on the
// next Next() call, since new coverage may change which testcases are
// favored.
func (w *Weighted) OnAdd(c corpus.Corpus, id int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.favoredIDs = nil
	w.generation++
}

// recompute walks every testcase and keeps, for each covered cell, the
// testcase that wins the tie-break ordering: (fewer edges covered once,
// shorter input, lower execution time, lower id).
func (w *Weighted) recompute(c corpus.Corpus) {
	type candidate struct {
		id      int
		tc      *testcase.Testcase
		covered int
	}
	best := make(map[uint32]candidate)

	for _, id := range c.Ids() {
		tc, ok := c.Get(id)
		if !ok {
			continue
		}
		sig := w.coverageOf(tc)
		covered := sig.Len()
		for _, cell := range sig.ToRaw() {
			cur, ok := best[cell]
			if !ok || tieBreakLess(covered, tc, id, cur.covered, cur.tc, cur.id) {
				best[cell] = candidate{id: id, tc: tc, covered: covered}
			}
		}
	}

	seen := make(map[int]bool)
	var favored []int
	for _, cand := range best {
		if !seen[cand.id] {
			seen[cand.id] = true
			favored = append(favored, cand.id)
		}
	}
	sort.Ints(favored)
	w.favoredIDs = favored
}

// tieBreakLess orders candidates by (fewer edges covered once, shorter
// input, lower execution time, lower id).
func tieBreakLess(aCovered int, a *testcase.Testcase, aID int, bCovered int, b *testcase.Testcase, bID int) bool {
	if aCovered != bCovered {
		return aCovered < bCovered
	}
	aLen, bLen := len(a.Input().Bytes()), len(b.Input().Bytes())
	if aLen != bLen {
		return aLen < bLen
	}
	if a.ExecTime() != b.ExecTime() {
		return a.ExecTime() < b.ExecTime()
	}
	return aID < bID
}
