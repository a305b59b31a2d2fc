// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package observer implements the ObserverSet: a fixed-shape heterogeneous
// tuple of passive per-execution recorders, generalized from the single
// hard-wired edge-map syzkaller's pkg/ipc records inline into a composable
// set any executor can drive.
package observer

import "time"

// Observer is a passive recorder attached to a single execution. PreExec
// resets per-run state; PostExec is called once the run ends, including
// after a crash or timeout in InProcessExecutor. PreExecChild/PostExecChild
// are optional; InProcessExecutor, which does not fork, calls them around
// the harness call on the goroutine that runs it.
type Observer interface {
	Name() string
	PreExec()
	PostExec()
}

// ChildObserver is implemented by observers that need hooks running right
// around the harness call itself, not just around the executor's view of it.
type ChildObserver interface {
	Observer
	PreExecChild()
	PostExecChild()
}

// Set is a fixed-shape ObserverSet: an ordered list of Observers driven
// together by an Executor, addressable by name for feedbacks that need a
// specific one (e.g. MaxMapFeedback wants the HitcountsMap by name).
type Set struct {
	observers []Observer
	byName    map[string]Observer
}

func NewSet(observers ...Observer) *Set {
	s := &Set{
		observers: observers,
		byName:    make(map[string]Observer, len(observers)),
	}
	for _, o := range observers {
		s.byName[o.Name()] = o
	}
	return s
}

func (s *Set) Get(name string) (Observer, bool) {
	o, ok := s.byName[name]
	return o, ok
}

func (s *Set) All() []Observer { return s.observers }

func (s *Set) PreExec() {
	for _, o := range s.observers {
		o.PreExec()
	}
}

func (s *Set) PostExec() {
	for _, o := range s.observers {
		o.PostExec()
	}
}

func (s *Set) PreExecChild() {
	for _, o := range s.observers {
		if c, ok := o.(ChildObserver); ok {
			c.PreExecChild()
		}
	}
}

func (s *Set) PostExecChild() {
	for _, o := range s.observers {
		if c, ok := o.(ChildObserver); ok {
			c.PostExecChild()
		}
	}
}

// TimeObserver records the wall-clock duration of the last execution.
type TimeObserver struct {
	start    time.Time
	lastTime time.Duration
}

func NewTimeObserver() *TimeObserver { return &TimeObserver{} }

func (t *TimeObserver) Name() string { return "time" }

func (t *TimeObserver) PreExec() { t.start = time.Now() }

func (t *TimeObserver) PostExec() { t.lastTime = time.Since(t.start) }

func (t *TimeObserver) LastTime() time.Duration { return t.lastTime }
