// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"math/rand"
	"slices"
	"sort"
	"sync"

	"github.com/google/goafl/pkg/signal"
	"github.com/google/goafl/pkg/testcase"
)

// tcSelector chooses a signal cell uniformly at random, then a testcase
// among that cell's coverers weighted by the testcase's signal size,
// generalized from the
// teacher's progSelector (pkg/corpus/selection.go, *prog.Prog-specific).
type tcSelector struct {
	mu          sync.Mutex
	perSignal   map[uint32][]seedInfo
	knownSignal map[uint32]bool
	cellList    []uint32
	entries     []*testcase.Testcase
}

type seedInfo struct {
	weight int64
	tc     *testcase.Testcase
}

func newTCSelector() *tcSelector {
	return &tcSelector{
		perSignal:   map[uint32][]seedInfo{},
		knownSignal: map[uint32]bool{},
	}
}

func (ts *tcSelector) ChooseTestcase(r *rand.Rand) *testcase.Testcase {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if len(ts.entries) == 0 {
		return nil
	}

	cell := ts.cellList[r.Intn(len(ts.cellList))]
	list := ts.perSignal[cell]

	var total int64
	for _, info := range list {
		total += info.weight
	}

	randVal := r.Int63n(total)
	var running int64
	for _, info := range list {
		running += info.weight
		if running >= randVal {
			return info.tc
		}
	}
	panic("it should not happen")
}

func (ts *tcSelector) Testcases() []*testcase.Testcase {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return slices.Clone(ts.entries)
}

const maxPerCell = 10

func (ts *tcSelector) saveTestcase(tc *testcase.Testcase, sig signal.Signal) {
	cells := sig.ToRaw()
	weight := int64(len(sig))

	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.entries = append(ts.entries, tc)

	for _, cell := range cells {
		if !ts.knownSignal[cell] {
			ts.knownSignal[cell] = true
			ts.cellList = append(ts.cellList, cell)
		}

		prev := ts.perSignal[cell]
		prev = append(prev, seedInfo{weight: weight, tc: tc})
		if len(prev) > maxPerCell {
			sort.Slice(prev, func(i, j int) bool {
				return prev[i].weight > prev[j].weight
			})
			prev = prev[:maxPerCell]
		}
		ts.perSignal[cell] = prev
	}
}

func (ts *tcSelector) replace(other *tcSelector) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.perSignal = other.perSignal
	ts.knownSignal = other.knownSignal
	ts.cellList = other.cellList
	ts.entries = other.entries
}
