// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package executor implements the in-process, crash-surviving harness
// call: run_target(&input) -> ExitKind, where the executor must call
// pre_exec, invoke the harness, call post_exec, and return an ExitKind
// even when the harness raised a fatal signal.
package executor

import (
	"errors"

	"github.com/google/goafl/pkg/input"
	"github.com/google/goafl/pkg/observer"
)

// ErrCrash is the sentinel a Harness returns to report a crash it detected
// itself without raising a fatal signal — e.g. a libfuzzer-ABI harness
// returning non-zero. Run maps it to ExitKind Crash instead of treating it
// as an ordinary execution error. Wrap it with fmt.Errorf("%w", ...) to
// attach detail; errors.Is still matches through the wrapping.
var ErrCrash = errors.New("executor: harness reported a crash")

// ExitKind classifies how a single harness invocation ended.
type ExitKind int

const (
	Ok ExitKind = iota
	Crash
	Timeout
	Oom
	Diff
)

func (e ExitKind) String() string {
	switch e {
	case Ok:
		return "ok"
	case Crash:
		return "crash"
	case Timeout:
		return "timeout"
	case Oom:
		return "oom"
	case Diff:
		return "diff"
	default:
		return "unknown"
	}
}

// Harness is the wrapped call into target code. It must not assume it will
// return normally: the executor may terminate it via signal/timeout.
type Harness func(in input.Input) error

// Executor drives the harness once and reports how the run ended. The
// contract requires PreExec/PostExec on every observer in obs to run
// exactly once per call, and an ExitKind to come back even when the
// harness faulted.
type Executor interface {
	Run(in input.Input, obs *observer.Set) (ExitKind, error)
}
