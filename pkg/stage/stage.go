// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package stage implements the Stage abstraction: a Stage drives the
// executor some number of times for a given corpus id and may add new
// entries.
package stage

import (
	"math/rand"

	"github.com/google/goafl/pkg/executor"
	"github.com/google/goafl/pkg/input"
	"github.com/google/goafl/pkg/testcase"
)

// Evaluator runs a candidate input through the full evaluate_input
// pipeline (execute, feedback, corpus/solutions insertion, event
// broadcast) and reports whether it was kept. Stages never touch the
// corpus or feedbacks directly; they only propose candidates.
type Evaluator interface {
	EvaluateInput(in input.Input) (kept bool, exitKind executor.ExitKind, err error)
}

// Stage drives zero or more executions for one corpus entry and may add new
// corpus entries via the Evaluator it's given.
type Stage interface {
	Name() string
	Perform(r *rand.Rand, eval Evaluator, tc *testcase.Testcase) error
}
