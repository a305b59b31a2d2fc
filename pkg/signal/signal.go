// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package signal implements the coverage-signal set algebra used by
// pkg/feedback and pkg/scheduler: a sparse map from edge-map cell id to the
// highest "priority" (bucket) seen for that cell, generalized from
// syzkaller's pkg/signal (edges keyed by PC) to generic edge-map indices.
package signal

import (
	"math/rand"
	"slices"
)

// Signal is a set of edge-map cell indices, each carrying the highest
// priority value observed for that cell across all executions that
// contributed to it.
type Signal map[uint32]uint8

// FromRaw builds a Signal from a raw edge-map snapshot (index i is "hit"
// when raw[i] != 0), all entries carrying the given priority.
func FromRaw(raw []uint8, prio uint8) Signal {
	s := make(Signal, 0)
	for i, v := range raw {
		if v != 0 {
			s[uint32(i)] = prio
		}
	}
	return s
}

// ToRaw returns the sorted list of cell indices in the set.
func (s Signal) ToRaw() []uint32 {
	raw := make([]uint32, 0, len(s))
	for pc := range s {
		raw = append(raw, pc)
	}
	slices.Sort(raw)
	return raw
}

func (s Signal) Empty() bool { return len(s) == 0 }

func (s Signal) Len() int { return len(s) }

// Diff returns the subset of s whose cells are either absent from other or
// carry a strictly higher priority than in other.
func (s Signal) Diff(other Signal) Signal {
	if s.Empty() {
		return nil
	}
	var diff Signal
	for pc, prio := range s {
		if old, ok := other[pc]; !ok || old < prio {
			if diff == nil {
				diff = make(Signal)
			}
			diff[pc] = prio
		}
	}
	return diff
}

// Intersection returns cells present, with the max priority, in both sets.
func (s Signal) Intersection(other Signal) Signal {
	small, big := s, other
	if len(big) < len(small) {
		small, big = big, small
	}
	var out Signal
	for pc, prio := range small {
		if otherPrio, ok := big[pc]; ok {
			if out == nil {
				out = make(Signal, len(small))
			}
			if otherPrio > prio {
				prio = otherPrio
			}
			out[pc] = prio
		}
	}
	return out
}

// Merge destructively folds other into s, keeping the max priority per cell.
func (s Signal) Merge(other Signal) {
	for pc, prio := range other {
		if old, ok := s[pc]; !ok || old < prio {
			s[pc] = prio
		}
	}
}

// RandomSubset picks n random cells out of the set (used to rotate the
// max-signal window so long-running campaigns don't pin stale maxima).
func (s Signal) RandomSubset(r *rand.Rand, n int) Signal {
	if n >= len(s) {
		return s
	}
	all := s.ToRaw()
	r.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	out := make(Signal, n)
	for _, pc := range all[:n] {
		out[pc] = s[pc]
	}
	return out
}

// Serialize returns the raw cell indices, suitable for an Event.NewTestcase
// wire payload.
func (s Signal) Serialize() []uint32 { return s.ToRaw() }
