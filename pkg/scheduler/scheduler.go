// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package scheduler implements the Corpus id-picking policies:
// next(state, corpus) -> id and on_add(state, corpus, id).
package scheduler

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/google/goafl/pkg/corpus"
)

// Scheduler decides which corpus entry the fuzzer drives next.
type Scheduler interface {
	Next(c corpus.Corpus, r *rand.Rand) (int, bool)
	OnAdd(c corpus.Corpus, id int)
}

// Queue is the simplest scheduler: round-robin over whatever ids are
// currently in the corpus, advancing by one call each Next.
type Queue struct {
	mu   sync.Mutex
	next int
}

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) Next(c corpus.Corpus, r *rand.Rand) (int, bool) {
	ids := c.Ids()
	if len(ids) == 0 {
		return 0, false
	}
	sort.Ints(ids)
	q.mu.Lock()
	defer q.mu.Unlock()
	idx := q.next % len(ids)
	q.next++
	return ids[idx], true
}

func (q *Queue) OnAdd(c corpus.Corpus, id int) {}
