// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package testcase wraps an Input with the bookkeeping the corpus and
// scheduler need, generalized from the per-*prog.Prog fields syzkaller's
// pkg/corpus and pkg/fuzzer track inline.
package testcase

import (
	"sync"
	"time"

	"github.com/google/goafl/pkg/input"
)

// Testcase wraps an Input with optional on-disk path, a user metadata map
// keyed by stable type identity, execution time, and scheduler bookkeeping.
type Testcase struct {
	mu sync.Mutex

	in   input.Input
	path string // on-disk location, empty for in-memory-only testcases

	metadata map[string]interface{}

	execTime time.Duration

	// Scheduler bookkeeping.
	timesChosen int
	discovered  time.Time
	parent      int // id of the testcase that spawned this one, -1 if a seed

	favored bool
}

// New wraps in as a freshly discovered testcase with no parent.
func New(in input.Input) *Testcase {
	return &Testcase{
		in:         in,
		metadata:   make(map[string]interface{}),
		discovered: time.Time{},
		parent:     -1,
	}
}

func (t *Testcase) Input() input.Input {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.in
}

func (t *Testcase) Path() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.path
}

func (t *Testcase) SetPath(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.path = path
}

// Metadata returns the value stored under key, and whether it was present.
// Callers key by a stable type identity (e.g. a package-qualified constant
// or reflect.TypeOf(zero).String()) so unrelated feedbacks don't collide.
func (t *Testcase) Metadata(key string) (interface{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.metadata[key]
	return v, ok
}

func (t *Testcase) SetMetadata(key string, v interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metadata[key] = v
}

func (t *Testcase) ExecTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.execTime
}

func (t *Testcase) SetExecTime(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.execTime = d
}

func (t *Testcase) TimesChosen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timesChosen
}

// MarkChosen increments the times-chosen counter, called once per scheduler
// Next() pick.
func (t *Testcase) MarkChosen() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timesChosen++
}

func (t *Testcase) DiscoveredAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.discovered
}

func (t *Testcase) SetDiscoveredAt(ts time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.discovered = ts
}

// Parent returns the id of the testcase this one was mutated from, or -1 for
// an original seed.
func (t *Testcase) Parent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.parent
}

func (t *Testcase) SetParent(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.parent = id
}

func (t *Testcase) Favored() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.favored
}

func (t *Testcase) SetFavored(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.favored = v
}
