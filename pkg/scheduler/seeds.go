// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package scheduler

import "sync"

const maxSeedQueue = 2500

// seedDedup tracks, for a bounded trailing window of saved signals, how
// often each cell has already been seen, so a seed re-covering only
// well-trodden cells can be deprioritized. Ported from
// pkg/fuzzer/seeds.go's seedSelection, generalized from syscall PCs
// (uint64) to generic edge-map cells (uint32).
type seedDedup struct {
	mu       sync.Mutex
	counts   map[uint32]int
	queue    [][]uint32
	queuePos int
}

// Evaluate scores raw (the bigger the better): the count of cells in raw
// that have been seen fewer than the novelty threshold across the window.
func (s *seedDedup) Evaluate(raw []uint32) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	const noveltyThreshold = 25
	score := 0
	for _, cell := range raw {
		if s.counts[cell] < noveltyThreshold {
			score++
		}
	}
	return score
}

// Save records raw into the trailing window, evicting the oldest entry
// once the window is full.
func (s *seedDedup) Save(raw []uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts == nil {
		s.counts = make(map[uint32]int)
	}
	if len(s.queue) < maxSeedQueue {
		s.queue = append(s.queue, raw)
	} else {
		old := s.queue[s.queuePos]
		s.queue[s.queuePos] = raw
		s.queuePos = (s.queuePos + 1) % maxSeedQueue
		for _, cell := range old {
			s.counts[cell]--
		}
	}
	for _, cell := range raw {
		s.counts[cell]++
	}
}
