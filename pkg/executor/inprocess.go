// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package executor

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/goafl/pkg/input"
	"github.com/google/goafl/pkg/log"
	"github.com/google/goafl/pkg/observer"
)

// InProcessExecutor runs the harness in the same process, the way LibAFL's
// InMemoryExecutor does, trading a real fork per run for speed. Go has no
// setjmp/longjmp and cannot truly preempt a running goroutine, so crash
// survival and timeouts are approximated:
//
//   - memory-fault survival: debug.SetPanicOnFault(true) turns a SIGSEGV
//     hit by the goroutine into a recoverable panic instead of killing the
//     process, and Run wraps the harness call in a deferred recover().
//     This only catches faults the Go runtime itself converts to panics
//     (nil/invalid pointer dereference); other fatal signals (SIGABRT from
//     a C harness, a real SIGBUS) still end the process, same as a crash
//     observed by any restarting supervisor design.
//   - timeouts: Run races the harness goroutine against a time.After
//     timer. Because Go cannot forcibly preempt the harness
//     goroutine, a timeout here stops waiting on it and reports Timeout,
//     but the leaked goroutine itself is left to the process-level
//     restarting supervisor (pkg/supervisor) to clean up by restarting the
//     whole worker. This is a deliberate, documented tradeoff: a
//     native-thread-based watchdog can truly interrupt; ours cannot, so
//     correctness depends on the supervisor layer.
// CrashRecorder receives the bytes of the input about to be executed, so a
// process-level crash recover() cannot catch (SIGABRT from a C harness, a
// real SIGBUS) still leaves a trail a restarting supervisor can read back
// out of shared memory. Satisfied by *pkg/supervisor.InputSlot.
type CrashRecorder interface {
	Write(data []byte)
}

type InProcessExecutor struct {
	harness Harness
	timeout time.Duration

	lastInput []byte // last-input snapshot for crash diagnostics
	recorder  CrashRecorder
}

func NewInProcessExecutor(harness Harness, timeout time.Duration) *InProcessExecutor {
	debug.SetPanicOnFault(true)
	return &InProcessExecutor{harness: harness, timeout: timeout}
}

// SetCrashRecorder attaches a shared-memory slot the executor writes each
// input's bytes into just before invoking the harness, so a crash the
// worker process itself doesn't survive can still be recovered by the
// supervisor that forked it.
func (e *InProcessExecutor) SetCrashRecorder(r CrashRecorder) {
	e.recorder = r
}

func (e *InProcessExecutor) Run(in input.Input, obs *observer.Set) (kind ExitKind, err error) {
	e.lastInput = in.Bytes()
	if e.recorder != nil {
		e.recorder.Write(e.lastInput)
	}
	obs.PreExec()
	defer obs.PostExec()

	type result struct {
		kind ExitKind
		err  error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("harness panicked, treating as crash: %v", r)
				done <- result{kind: Crash, err: fmt.Errorf("harness panic: %v", r)}
			}
		}()
		obs.PreExecChild()
		runErr := e.harness(in)
		obs.PostExecChild()
		if errors.Is(runErr, ErrCrash) {
			done <- result{kind: Crash, err: runErr}
			return
		}
		done <- result{kind: Ok, err: runErr}
	}()

	select {
	case r := <-done:
		return r.kind, r.err
	case <-time.After(e.timeout):
		log.Logf(1, "harness exceeded %v, reporting timeout", e.timeout)
		return Timeout, nil
	}
}

// LastInput returns the bytes of the most recently executed input, the
// in-process analogue of the shared-memory last-input slot a forking
// supervisor would snapshot on a real crash signal.
func (e *InProcessExecutor) LastInput() []byte { return e.lastInput }
