// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"container/heap"
	"sort"
	"sync"
	"time"

	"github.com/google/goafl/pkg/log"
	"github.com/google/goafl/pkg/stats"
	"github.com/google/goafl/pkg/testcase"
)

/*
   We calculate the probability, for every mutator class, that nothing bad
   happens within the timeframe of N subsequently executed testcases. A
   mutator class that crashes the target too often is temporarily avoided,
   generalizing a per-syscall crash estimator to the mutation-stacking
   world, where there is no syscall table to consult.
*/

// Retryer gives a second chance to testcases produced right before a worker
// crash: they are requeued instead of discarded, since the crash may belong
// to a different mutation than the one under test.
type Retryer struct {
	delayedFromCrash *priorityQueue[*testcase.Testcase]
	delayedRisky     *priorityQueue[*testcase.Testcase]

	statRiskyRetries   *stats.Val
	statRiskyDiscarded *stats.Val

	mu sync.Mutex

	// The current policy: mutator classes considered too likely to crash.
	dangerousClasses map[string]struct{}

	crashEstimator
}

func NewRetryer() *Retryer {
	ret := &Retryer{
		delayedFromCrash: makePriorityQueue[*testcase.Testcase](),
		delayedRisky:     makePriorityQueue[*testcase.Testcase](),

		statRiskyRetries: stats.Create("risky reruns", "Reexecuted risky testcases",
			stats.Rate{}, stats.StackedGraph("testcase reruns")),
		statRiskyDiscarded: stats.Create("risky testcases discarded", "Testcases deemed too risky for execution",
			stats.Rate{}, stats.StackedGraph("testcase reruns")),
	}
	stats.Create("risky queue", "Queued risky testcases",
		func() int { return ret.delayedRisky.Len() }, stats.StackedGraph("testcase reruns"))
	stats.Create("crashed queue", "Queued testcases from crashed workers",
		func() int { return ret.delayedFromCrash.Len() }, stats.StackedGraph("testcase reruns"))
	stats.Create("risky mutator classes", "Mutator classes currently avoided",
		func() int {
			ret.mu.Lock()
			defer ret.mu.Unlock()
			return len(ret.dangerousClasses)
		}, stats.StackedGraph("risky classes"))

	go ret.reviewLoop()
	return ret
}

func (retryer *Retryer) reviewLoop() {
	for range time.NewTicker(time.Minute / 2).C {
		disabled := retryer.getDangerousClasses(0.015, 50)
		retryer.printClassEstimates()

		retryer.mu.Lock()
		retryer.dangerousClasses = disabled
		retryer.mu.Unlock()
	}
}

// Banned returns the mutator classes currently avoided.
func (retryer *Retryer) Banned() []string {
	retryer.mu.Lock()
	defer retryer.mu.Unlock()
	var names []string
	for k := range retryer.dangerousClasses {
		names = append(names, k)
	}
	return names
}

func (retryer *Retryer) isDangerous(class string) bool {
	retryer.mu.Lock()
	defer retryer.mu.Unlock()
	_, ok := retryer.dangerousClasses[class]
	return ok
}

// No sense to let the queue grow infinitely: if it does, something is
// seriously wrong with the target.
const retryerQueueLimit = 50000

// OnCrash requeues tc for another try, unless the backlog is already full.
func (retryer *Retryer) OnCrash(tc *testcase.Testcase) {
	retryer.toBacklog(retryer.delayedFromCrash, tc)
}

// OnRisky requeues tc because its mutator class is currently avoided.
func (retryer *Retryer) OnRisky(tc *testcase.Testcase) {
	retryer.toBacklog(retryer.delayedRisky, tc)
}

func (retryer *Retryer) toBacklog(queue *priorityQueue[*testcase.Testcase], tc *testcase.Testcase) {
	if queue.Len() > retryerQueueLimit {
		retryer.statRiskyDiscarded.Add(1)
		return
	}
	queue.push(&priorityQueueItem[*testcase.Testcase]{value: tc, prio: zeroPrio})
}

// NextRetry returns a previously delayed testcase, if any is due, favoring
// crash-survivors over merely-risky ones roughly 1-in-20 of the time.
func (retryer *Retryer) NextRetry(mayRisk bool, nextRand func() float64) *testcase.Testcase {
	if !mayRisk {
		return nil
	}
	var item *priorityQueueItem[*testcase.Testcase]
	if nextRand() < 0.05 {
		item = retryer.delayedFromCrash.tryPop()
	}
	if item == nil {
		item = retryer.delayedRisky.tryPop()
	}
	if item == nil {
		return nil
	}
	retryer.statRiskyRetries.Add(1)
	return item.value
}

// tryPop pops whatever sits at the front of the queue, or nil if it's empty.
func (pq *priorityQueue[T]) tryPop() *priorityQueueItem[T] {
	pq.c.L.Lock()
	defer pq.c.L.Unlock()
	if len(pq.impl) == 0 {
		return nil
	}
	return heap.Pop(&pq.impl).(*priorityQueueItem[T])
}

type crashEstimator struct {
	mu          sync.RWMutex
	classProbs  map[string]*runningAverage
	crashCounts map[string]int
}

func (ce *crashEstimator) OK(classes []string) {
	// We are okay to miss some good executions.
	ce.save(classes, 0)
}

func (ce *crashEstimator) Avoid(classes []string) {
	// But all bad executions must be recorded.
	ce.save(classes, 1.0)
}

func (ce *crashEstimator) save(classes []string, prob float64) {
	ce.mu.Lock()
	defer ce.mu.Unlock()

	if ce.classProbs == nil {
		ce.classProbs = make(map[string]*runningAverage)
		ce.crashCounts = make(map[string]int)
	}
	for _, class := range classes {
		if prob > 0 {
			ce.crashCounts[class]++
		}
		estimate := ce.classProbs[class]
		if estimate == nil {
			estimate = &runningAverage{}
			ce.classProbs[class] = estimate
		}
		estimate.save(prob)
	}
}

func (ce *crashEstimator) getDangerousClasses(cutOff float64, max int) map[string]struct{} {
	ce.mu.RLock()
	defer ce.mu.RUnlock()

	items := ce.sortedProbabilities()
	if max > len(items)/4 {
		max = len(items) / 4
	}

	ret := make(map[string]struct{})
	for _, item := range items {
		if item.crashes < 5 {
			continue
		}
		if item.prob < cutOff || len(ret) == max {
			continue
		}
		ret[item.class] = struct{}{}
	}
	return ret
}

type classProb struct {
	class   string
	prob    float64
	total   int64
	crashes int
}

func (ce *crashEstimator) sortedProbabilities() []classProb {
	ce.mu.RLock()
	var items []classProb
	for key, v := range ce.classProbs {
		items = append(items, classProb{key, v.value(), v.count(), ce.crashCounts[key]})
	}
	ce.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool { return items[i].prob > items[j].prob })
	return items
}

func (ce *crashEstimator) printClassEstimates() {
	items := ce.sortedProbabilities()
	const limit = 50
	if len(items) > limit {
		items = items[:limit]
	}
	for _, info := range items {
		log.Logf(3, "mutator class %s: prob %.3f", info.class, info.prob)
	}
}

// runningAverage is a tiny incremental mean over every value ever added,
// unlike pkg/learning's fixed-window RunningAverage.
type runningAverage struct {
	mu  sync.Mutex
	sum float64
	n   int64
}

func (r *runningAverage) save(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sum += v
	r.n++
}

func (r *runningAverage) value() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.n == 0 {
		return 0
	}
	return r.sum / float64(r.n)
}

func (r *runningAverage) count() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}
