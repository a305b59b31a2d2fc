// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package feedback

import (
	"sync"

	"github.com/google/goafl/pkg/executor"
	"github.com/google/goafl/pkg/observer"
	"github.com/google/goafl/pkg/state"
	"github.com/google/goafl/pkg/testcase"
)

func init() {
	state.Register([]uint32(nil))
}

// MetadataKeyNovelIndices is the stable key MaxMapFeedback attaches novel
// edge-map indices under.
const MetadataKeyNovelIndices = "feedback.maxmap.novel_indices"

// MaxMapFeedback owns a per-cell maximum vector, the canonical FeedbackState:
// an execution is interesting iff any cell of the observed (bucketed) edge
// map exceeds the stored maximum, at which point the maxima are updated and
// the list of novel indices is recorded for AppendMetadata.
type MaxMapFeedback struct {
	name         string
	observerName string

	mu      sync.Mutex
	maxima  []uint8
	pending []uint32 // novel indices from the last IsInteresting call
}

// NewMaxMapFeedback creates a feedback tracking maxima over the given
// observer (typically a *observer.HitcountsMap registered under
// observerName in the ObserverSet the fuzzer drives).
func NewMaxMapFeedback(name, observerName string, mapSize int) *MaxMapFeedback {
	return &MaxMapFeedback{
		name:         name,
		observerName: observerName,
		maxima:       make([]uint8, mapSize),
	}
}

func (f *MaxMapFeedback) Name() string { return f.name }

func (f *MaxMapFeedback) IsInteresting(obs *observer.Set, exitKind executor.ExitKind) (bool, error) {
	o, ok := obs.Get(f.observerName)
	if !ok {
		return false, nil
	}
	hc, ok := o.(*observer.HitcountsMap)
	if !ok {
		return false, nil
	}
	buckets := hc.Buckets()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = f.pending[:0]
	interesting := false
	for i, v := range buckets {
		if i >= len(f.maxima) {
			break
		}
		if v > f.maxima[i] {
			f.maxima[i] = v
			f.pending = append(f.pending, uint32(i))
			interesting = true
		}
	}
	return interesting, nil
}

func (f *MaxMapFeedback) AppendMetadata(tc *testcase.Testcase) {
	f.mu.Lock()
	novel := append([]uint32{}, f.pending...)
	f.mu.Unlock()
	if len(novel) > 0 {
		tc.SetMetadata(MetadataKeyNovelIndices, novel)
	}
}

// Maxima returns a snapshot of the current per-cell maximum vector. Nothing
// in this module calls it: the vector is not saved into State, so a
// restarted worker starts with empty maxima.
func (f *MaxMapFeedback) Maxima() []uint8 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint8{}, f.maxima...)
}

// Restore reinstates a previously saved maxima vector. Nothing in this
// module calls it; pkg/supervisor restarts a crashed worker without it.
func (f *MaxMapFeedback) Restore(maxima []uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maxima = append([]uint8{}, maxima...)
}
