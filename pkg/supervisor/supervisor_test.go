// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package supervisor

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"
)

type recordingCrashHandler struct {
	crashes [][]byte
}

func (r *recordingCrashHandler) OnCrash(lastInput []byte) {
	cp := make([]byte, len(lastInput))
	copy(cp, lastInput)
	r.crashes = append(r.crashes, cp)
}

func TestSupervisorRunCleanExitReturnsNil(t *testing.T) {
	trueBin, err := exec.LookPath("true")
	if err != nil {
		t.Skipf("no 'true' binary available: %v", err)
	}
	s := New(Config{
		Binary:      trueBin,
		MaxRestarts: 1,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run() = %v, want nil for a clean exit", err)
	}
}

func TestSupervisorRunGivesUpAfterMaxRestarts(t *testing.T) {
	falseBin, err := exec.LookPath("false")
	if err != nil {
		t.Skipf("no 'false' binary available: %v", err)
	}
	s := New(Config{
		Binary:         falseBin,
		MaxRestarts:    3,
		RestartBackoff: time.Millisecond,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Run(ctx); err == nil {
		t.Fatal("Run() = nil, want an error after exhausting MaxRestarts")
	}
}

func TestSupervisorRunRespectsContextCancellation(t *testing.T) {
	sleepBin, err := exec.LookPath("sleep")
	if err != nil {
		t.Skipf("no 'sleep' binary available: %v", err)
	}
	s := New(Config{
		Binary: sleepBin,
		Args:   []string{"30"},
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Run() = nil, want context.DeadlineExceeded")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}
