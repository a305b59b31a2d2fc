// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fuzzer ties the scheduler, stages, executor, and feedback
// pipeline together into the fuzz_one/fuzz_loop cycle: rewritten in place
// from a *prog.Prog-and-VM-pool-specific Fuzzer (fuzzer.go, job.go) to
// drive a generic in-process Input.
package fuzzer

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/goafl/pkg/corpus"
	"github.com/google/goafl/pkg/executor"
	"github.com/google/goafl/pkg/feedback"
	"github.com/google/goafl/pkg/input"
	"github.com/google/goafl/pkg/learning"
	"github.com/google/goafl/pkg/log"
	"github.com/google/goafl/pkg/observer"
	"github.com/google/goafl/pkg/scheduler"
	"github.com/google/goafl/pkg/stage"
	"github.com/google/goafl/pkg/stats"
	"github.com/google/goafl/pkg/testcase"
)

// EventSink receives the broadcasts evaluate_input emits: a new
// interesting testcase, or a new objective/solution. The concrete sink is
// pkg/event's worker-side Broker client; Fuzzer only depends on this
// narrow interface to avoid an import cycle.
type EventSink interface {
	NewTestcase(in input.Input, exitKind executor.ExitKind, corpusSize int)
	Objective(solutionsSize int)
}

// EventSource is the inbound half of the EventManager: it lets the Fuzzer
// pull in testcases other workers already found interesting, so every
// worker's corpus converges toward the others' instead of only ever
// growing from its own mutations. The concrete source is the same
// pkg/event worker-side Broker client that satisfies EventSink.
type EventSource interface {
	PollRemoteTestcases() ([][]byte, error)
}

// Fuzzer drives the scheduler → stages → evaluation → corpus insertion
// cycle.
type Fuzzer struct {
	ctx context.Context

	corp      corpus.Corpus
	solutions corpus.Corpus
	sched     scheduler.Scheduler
	stages    []stage.Stage
	exec      executor.Executor
	obs       *observer.Set
	feedback  feedback.Feedback
	objective feedback.Feedback
	sink      EventSink
	source    EventSource

	mu  sync.Mutex
	rnd *rand.Rand

	execCount      atomicCounter
	powerSchedule  *learning.RunningRatioAverage[float64]
	statExecutions *stats.Val
	statCorpus     *stats.Val
	statSolutions  *stats.Val
}

type atomicCounter struct {
	mu sync.Mutex
	n  uint64
}

func (c *atomicCounter) Add(d uint64) {
	c.mu.Lock()
	c.n += d
	c.mu.Unlock()
}

func (c *atomicCounter) Load() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Config bundles together everything a Fuzzer needs to run, assembled per
// worker process by cmd/goafl-fuzz.
type Config struct {
	Corpus    corpus.Corpus
	Solutions corpus.Corpus
	Scheduler scheduler.Scheduler
	Stages    []stage.Stage
	Executor  executor.Executor
	Observers *observer.Set
	Feedback  feedback.Feedback
	Objective feedback.Feedback
	Sink      EventSink
	Source    EventSource
	Seed      int64
}

func New(ctx context.Context, cfg Config) *Fuzzer {
	return &Fuzzer{
		ctx:           ctx,
		corp:          cfg.Corpus,
		solutions:     cfg.Solutions,
		sched:         cfg.Scheduler,
		stages:        cfg.Stages,
		exec:          cfg.Executor,
		obs:           cfg.Observers,
		feedback:      cfg.Feedback,
		objective:     cfg.Objective,
		sink:          cfg.Sink,
		source:        cfg.Source,
		rnd:           rand.New(rand.NewSource(cfg.Seed)),
		powerSchedule: learning.NewRunningRatioAverage[float64](256),
		statExecutions: stats.Create("executions", "Total number of harness executions",
			stats.Rate{}, stats.StackedGraph("executions")),
		statCorpus: stats.Create("corpus size", "Number of testcases in the corpus",
			func() int { return cfg.Corpus.Count() }),
		statSolutions: stats.Create("solutions", "Number of testcases in the solutions corpus",
			func() int { return cfg.Solutions.Count() }),
	}
}

// FuzzOne implements fuzz_one: pick an id via the scheduler, drive every
// stage for it, return the id.
func (f *Fuzzer) FuzzOne() (int, error) {
	f.mu.Lock()
	r := rand.New(rand.NewSource(f.rnd.Int63()))
	f.mu.Unlock()

	id, ok := f.sched.Next(f.corp, r)
	if !ok {
		return 0, fmt.Errorf("fuzzer: corpus is empty")
	}
	tc, ok := f.corp.Get(id)
	if !ok {
		return 0, fmt.Errorf("fuzzer: corpus id %d vanished", id)
	}
	tc.MarkChosen()
	f.corp.SetCurrent(id)

	for _, st := range f.stages {
		start := time.Now()
		if err := st.Perform(r, f, tc); err != nil {
			log.Errorf("stage %s failed: %v", st.Name(), err)
		}
		f.powerSchedule.Save(float64(time.Since(start).Milliseconds()), 1)
	}
	return id, nil
}

// EvaluateInput implements stage.Evaluator: run the target, compute
// is_interesting and is_solution, insert/broadcast as needed.
func (f *Fuzzer) EvaluateInput(in input.Input) (bool, executor.ExitKind, error) {
	exitKind, err := f.exec.Run(in, f.obs)
	f.execCount.Add(1)
	f.statExecutions.Add(1)
	if err != nil && exitKind == executor.Ok {
		return false, exitKind, err
	}

	if f.objective != nil {
		isSolution, oerr := f.objective.IsInteresting(f.obs, exitKind)
		if oerr != nil {
			return false, exitKind, oerr
		}
		if isSolution {
			tc := testcase.New(in)
			in.OnAddToCorpus()
			f.objective.AppendMetadata(tc)
			f.solutions.Add(tc)
			if f.sink != nil {
				f.sink.Objective(f.solutions.Count())
			}
		}
	}

	interesting, ferr := f.feedback.IsInteresting(f.obs, exitKind)
	if ferr != nil {
		return false, exitKind, ferr
	}
	if !interesting {
		return false, exitKind, nil
	}

	tc := testcase.New(in)
	in.OnAddToCorpus()
	f.feedback.AppendMetadata(tc)
	id := f.corp.Add(tc)
	f.sched.OnAdd(f.corp, id)
	if f.sink != nil {
		f.sink.NewTestcase(in, exitKind, f.corp.Count())
	}
	return true, exitKind, nil
}

// FuzzLoop is the infinite outer loop: call FuzzOne and periodically
// report stats and pull in remote testcases, until ctx is cancelled
// ("ShuttingDown").
func (f *Fuzzer) FuzzLoop(statsEvery time.Duration) error {
	ticker := time.NewTicker(statsEvery)
	defer ticker.Stop()
	for {
		select {
		case <-f.ctx.Done():
			return f.ctx.Err()
		default:
		}
		if _, err := f.FuzzOne(); err != nil {
			log.Logf(1, "fuzz_one: %v", err)
			time.Sleep(10 * time.Millisecond)
		}
		select {
		case <-ticker.C:
			f.pollRemote()
			log.Logf(2, "executions=%d corpus=%d solutions=%d",
				f.execCount.Load(), f.corp.Count(), f.solutions.Count())
		default:
		}
	}
}

// pollRemote fetches testcases other workers reported since the last call
// and re-runs each through EvaluateInput, giving it a second, independent
// insert decision under this worker's own feedback state instead of
// trusting the remote worker's verdict blindly. Called at a FuzzOne stage
// boundary, in the same goroutine that drives the executor, so a remote
// testcase is never evaluated concurrently with a local one.
func (f *Fuzzer) pollRemote() {
	if f.source == nil {
		return
	}
	payloads, err := f.source.PollRemoteTestcases()
	if err != nil {
		log.Logf(1, "poll remote testcases: %v", err)
		return
	}
	for _, data := range payloads {
		if _, _, err := f.EvaluateInput(input.NewByteInput(data)); err != nil {
			log.Logf(2, "remote testcase rejected: %v", err)
		}
	}
}

// ExecCount returns the total number of harness invocations so far.
func (f *Fuzzer) ExecCount() uint64 { return f.execCount.Load() }
