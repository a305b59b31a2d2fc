// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"context"
	"testing"
	"time"

	"github.com/google/goafl/pkg/corpus"
	"github.com/google/goafl/pkg/executor"
	"github.com/google/goafl/pkg/feedback"
	"github.com/google/goafl/pkg/input"
	"github.com/google/goafl/pkg/mutator"
	"github.com/google/goafl/pkg/observer"
	"github.com/google/goafl/pkg/scheduler"
	"github.com/google/goafl/pkg/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	testcases int
	solutions int
}

func (s *recordingSink) NewTestcase(in input.Input, exitKind executor.ExitKind, corpusSize int) {
	s.testcases++
}

func (s *recordingSink) Objective(solutionsSize int) {
	s.solutions++
}

// fixedHarness treats any byte slice starting with "BAD" as a crash, giving
// the feedback pipeline something to discover.
func fixedHarness(in input.Input) error {
	b := in.Bytes()
	if len(b) >= 3 && string(b[:3]) == "BAD" {
		panic("synthetic crash")
	}
	return nil
}

func TestFuzzerEvaluateInputInsertsOnNewCoverage(t *testing.T) {
	edges := observer.NewEdgeMap("edges", make([]byte, 64))
	hc := observer.NewHitcountsMap("hitcounts", edges)
	obsSet := observer.NewSet(edges, hc)

	exec := executor.NewInProcessExecutor(func(in input.Input) error {
		buf := edges.Raw()
		b := in.Bytes()
		if len(b) > 0 {
			buf[int(b[0])%len(buf)]++
		}
		return fixedHarness(in)
	}, time.Second)

	corp := corpus.NewInMemoryCorpus()
	solutions := corpus.NewInMemoryCorpus()
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := New(ctx, Config{
		Corpus:    corp,
		Solutions: solutions,
		Scheduler: scheduler.NewQueue(),
		Stages:    []stage.Stage{stage.NewMutationalStage(mutator.NewChain([]mutator.Mutator{mutator.BitFlip{}}, 1))},
		Executor:  exec,
		Observers: obsSet,
		Feedback:  feedback.NewMaxMapFeedback("seed", "hitcounts", 64),
		Objective: feedback.CrashFeedback{},
		Sink:      sink,
		Seed:      1,
	})

	kept, exitKind, err := f.EvaluateInput(input.NewByteInput([]byte{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, executor.Ok, exitKind)
	assert.True(t, kept)
	assert.Equal(t, 1, corp.Count())
	assert.Equal(t, 1, sink.testcases)
}

func TestFuzzerEvaluateInputRecordsSolutionOnCrash(t *testing.T) {
	edges := observer.NewEdgeMap("edges", make([]byte, 64))
	hc := observer.NewHitcountsMap("hitcounts", edges)
	obsSet := observer.NewSet(edges, hc)

	exec := executor.NewInProcessExecutor(fixedHarness, time.Second)
	corp := corpus.NewInMemoryCorpus()
	solutions := corpus.NewInMemoryCorpus()
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := New(ctx, Config{
		Corpus:    corp,
		Solutions: solutions,
		Scheduler: scheduler.NewQueue(),
		Stages:    nil,
		Executor:  exec,
		Observers: obsSet,
		Feedback:  feedback.NewMaxMapFeedback("seed", "hitcounts", 64),
		Objective: feedback.CrashFeedback{},
		Sink:      sink,
		Seed:      1,
	})

	_, exitKind, err := f.EvaluateInput(input.NewByteInput([]byte("BAD!")))
	require.NoError(t, err)
	assert.Equal(t, executor.Crash, exitKind)
	assert.Equal(t, 1, solutions.Count())
	assert.Equal(t, 1, sink.solutions)
}

type fakeSource struct {
	payloads [][]byte
}

func (s *fakeSource) PollRemoteTestcases() ([][]byte, error) {
	out := s.payloads
	s.payloads = nil
	return out, nil
}

func TestFuzzerPollRemoteIngestsNewCoverage(t *testing.T) {
	edges := observer.NewEdgeMap("edges", make([]byte, 64))
	hc := observer.NewHitcountsMap("hitcounts", edges)
	obsSet := observer.NewSet(edges, hc)

	exec := executor.NewInProcessExecutor(func(in input.Input) error {
		buf := edges.Raw()
		b := in.Bytes()
		if len(b) > 0 {
			buf[int(b[0])%len(buf)]++
		}
		return nil
	}, time.Second)

	corp := corpus.NewInMemoryCorpus()
	solutions := corpus.NewInMemoryCorpus()
	source := &fakeSource{payloads: [][]byte{{42}}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := New(ctx, Config{
		Corpus:    corp,
		Solutions: solutions,
		Scheduler: scheduler.NewQueue(),
		Executor:  exec,
		Observers: obsSet,
		Feedback:  feedback.NewMaxMapFeedback("seed", "hitcounts", 64),
		Objective: feedback.CrashFeedback{},
		Source:    source,
		Seed:      1,
	})

	f.pollRemote()
	assert.Equal(t, 1, corp.Count())
	assert.Empty(t, source.payloads, "pollRemote should drain the source")
}

func TestFuzzerFuzzOneReportsEmptyCorpus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := New(ctx, Config{
		Corpus:    corpus.NewInMemoryCorpus(),
		Solutions: corpus.NewInMemoryCorpus(),
		Scheduler: scheduler.NewQueue(),
		Executor:  executor.NewInProcessExecutor(fixedHarness, time.Second),
		Observers: observer.NewSet(),
		Feedback:  feedback.CrashFeedback{},
		Seed:      1,
	})
	_, err := f.FuzzOne()
	assert.Error(t, err)
}
