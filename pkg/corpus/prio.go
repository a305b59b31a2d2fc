// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"math/rand"
	"sync"

	"github.com/google/goafl/pkg/signal"
	"github.com/google/goafl/pkg/testcase"
)

// TestcaseList is a priority-weighted bag of testcases, generalized from the
// teacher's ProgramsList (which held *prog.Prog); weight is the size of the
// signal a testcase contributed, so bigger-coverage testcases are chosen
// more often.
type TestcaseList struct {
	mu       sync.RWMutex
	entries  []*testcase.Testcase
	sumPrios int64
	signals  [][]uint32
}

func (pl *TestcaseList) ChooseTestcase(r *rand.Rand) (*testcase.Testcase, []uint32) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	if len(pl.entries) == 0 {
		return nil, nil
	}
	randVal := r.Int63n(pl.sumPrios)
	for i, sig := range pl.signals {
		prio := int64(len(sig))
		if prio == 0 {
			prio = 1
		}
		if randVal < prio {
			return pl.entries[i], sig
		}
		randVal -= prio
	}
	last := len(pl.entries) - 1
	return pl.entries[last], pl.signals[last]
}

func (pl *TestcaseList) Testcases() []*testcase.Testcase {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return pl.entries
}

func (pl *TestcaseList) saveTestcase(tc *testcase.Testcase, sig signal.Signal) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	prio := int64(len(sig))
	if prio == 0 {
		prio = 1
	}
	pl.sumPrios += prio
	pl.entries = append(pl.entries, tc)
	pl.signals = append(pl.signals, sig.ToRaw())
}

func (pl *TestcaseList) replace(other *TestcaseList) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.sumPrios = other.sumPrios
	pl.signals = other.signals
	pl.entries = other.entries
}
