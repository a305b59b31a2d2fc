// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/google/goafl/pkg/log"
)

// maxSlotLen bounds the recoverable-input slot; inputs larger than this are
// still executed, just truncated in crash forensics.
const maxSlotLen = 1 << 20

// CrashHandler is notified whenever the child exits abnormally, with
// whatever input bytes were captured in the shared slot at the time.
// Nothing in this module implements it: pkg/fuzzer.Retryer's OnCrash takes
// a *testcase.Testcase, and pkg/launcher leaves Config.OnCrash nil, so the
// recovered input is not stored anywhere.
type CrashHandler interface {
	OnCrash(lastInput []byte)
}

// Config describes the child worker process to supervise.
type Config struct {
	Binary string
	Args   []string
	Dir    string
	Env    []string
	Stdout *os.File
	Stderr *os.File

	// MaxRestarts bounds consecutive restarts; 0 means unlimited.
	MaxRestarts int
	// RestartBackoff is waited between a crash and the next spawn.
	RestartBackoff time.Duration

	OnCrash CrashHandler
}

// Supervisor owns the restart loop: spawn, wait, on abnormal exit recover
// the last input from the shared slot and respawn, grounded on
// pkg/rpcserver/local.go's RunLocal exec.Command lifecycle (there driving
// a single long-lived syz-executor instance rather than restarting it).
type Supervisor struct {
	cfg Config
}

func New(cfg Config) *Supervisor {
	if cfg.RestartBackoff == 0 {
		cfg.RestartBackoff = 100 * time.Millisecond
	}
	return &Supervisor{cfg: cfg}
}

// Run spawns and re-spawns the child until ctx is cancelled or MaxRestarts
// is exceeded, returning ctx.Err() after cancellation and the last spawn
// error once the restart budget is used up.
func (s *Supervisor) Run(ctx context.Context) error {
	restarts := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		slot, err := NewInputSlot(maxSlotLen)
		if err != nil {
			return fmt.Errorf("supervisor: %w", err)
		}
		exitErr := s.runOnce(ctx, slot)
		lastInput := slot.Read()
		slot.Close()

		if err := ctx.Err(); err != nil {
			return err
		}
		if exitErr == nil {
			return nil // clean shutdown: child exited 0
		}
		log.Logf(0, "worker exited abnormally: %v", exitErr)
		if s.cfg.OnCrash != nil && len(lastInput) > 0 {
			s.cfg.OnCrash.OnCrash(lastInput)
		}
		restarts++
		if s.cfg.MaxRestarts > 0 && restarts > s.cfg.MaxRestarts {
			return fmt.Errorf("supervisor: worker crashed %d times, giving up: %w", restarts, exitErr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.RestartBackoff):
		}
	}
}

// runOnce spawns a single child and waits for it, returning nil for a
// clean (status 0) exit or a context cancellation, and a non-nil error for
// anything a restart should follow.
func (s *Supervisor) runOnce(ctx context.Context, slot *InputSlot) error {
	cmd := exec.CommandContext(ctx, s.cfg.Binary, s.cfg.Args...)
	cmd.Dir = s.cfg.Dir
	cmd.Stdout = s.cfg.Stdout
	cmd.Stderr = s.cfg.Stderr
	cmd.ExtraFiles = []*os.File{slot.file}
	// The inherited fd lands at 3 (stdin/stdout/stderr occupy 0-2) as the
	// first and only entry of ExtraFiles.
	cmd.Env = append(append([]string{}, s.cfg.Env...), fmt.Sprintf("%s=3", lastInputEnv))

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	err := cmd.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
