// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package launcher implements the Launcher: it forks/binds one worker per
// requested CPU core and connects each to the shared broker.
package launcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/google/goafl/pkg/log"
	"github.com/google/goafl/pkg/supervisor"
)

// Config describes how the launcher forks one worker per core.
type Config struct {
	// Cores is the comma/range CPU-core spec (--cores), e.g. "0-3,6".
	Cores string
	// WorkerBinary is the path to the worker-embedding binary (cmd/goafl-fuzz)
	// re-exec'd once per core.
	WorkerBinary string
	// WorkerArgs are passed to each worker verbatim, ahead of the per-worker
	// --core flag this package appends.
	WorkerArgs []string
	// BrokerAddr is the "host:port" every worker dials.
	BrokerAddr string
	// StdoutDir, if set, redirects each worker's stdout/stderr to
	// <dir>/worker-<core>.log (--stdout); empty discards it.
	StdoutDir string
	// MaxRestarts bounds a single worker's consecutive crash-restarts
	// before the launcher gives up on that core.
	MaxRestarts int
}

// Failure reports one worker giving up after exhausting its restart budget.
type Failure struct {
	Core int
	Err  error
}

// Launcher forks one supervised worker process per requested core,
// grounded on pkg/rpcserver/pool/pool.go's ExecutorPool (there one
// goroutine per VM booted from a shared vm.Pool; here one goroutine per
// CPU core, since this module's non-goal is cross-machine distribution
// beyond a single broker link, so there is no VM layer to pool — a core
// number stands in for pool.go's VM index).
type Launcher struct {
	cfg      Config
	Failures chan Failure
}

func New(cfg Config) *Launcher {
	return &Launcher{cfg: cfg, Failures: make(chan Failure, 16)}
}

// ParseCores parses a comma/range CPU-core spec such as "0-3,6" into the
// sorted, deduplicated list of core ids it names.
func ParseCores(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("launcher: empty --cores spec")
	}
	seen := map[int]bool{}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if dash := strings.IndexByte(part, '-'); dash > 0 {
			lo, err := strconv.Atoi(strings.TrimSpace(part[:dash]))
			if err != nil {
				return nil, fmt.Errorf("launcher: malformed core range %q: %w", part, err)
			}
			hi, err := strconv.Atoi(strings.TrimSpace(part[dash+1:]))
			if err != nil {
				return nil, fmt.Errorf("launcher: malformed core range %q: %w", part, err)
			}
			if hi < lo {
				return nil, fmt.Errorf("launcher: malformed core range %q: end before start", part)
			}
			for c := lo; c <= hi; c++ {
				seen[c] = true
			}
			continue
		}
		c, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("launcher: malformed core id %q: %w", part, err)
		}
		seen[c] = true
	}
	cores := make([]int, 0, len(seen))
	for c := range seen {
		cores = append(cores, c)
	}
	sort.Ints(cores)
	return cores, nil
}

// Run starts one supervised worker per core and blocks until ctx is
// cancelled or every worker has exhausted its restart budget.
func (l *Launcher) Run(ctx context.Context) error {
	cores, err := ParseCores(l.cfg.Cores)
	if err != nil {
		return err
	}
	if len(cores) == 0 {
		return fmt.Errorf("launcher: --cores named no cores")
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, core := range cores {
		core := core
		g.Go(func() error {
			return l.workerLoop(gctx, core)
		})
	}
	return g.Wait()
}

func (l *Launcher) workerLoop(ctx context.Context, core int) error {
	stdout, err := l.openWorkerOutput(core)
	if err != nil {
		return err
	}
	if stdout != nil {
		defer stdout.Close()
	}
	args := append(append([]string{}, l.cfg.WorkerArgs...),
		"--core", strconv.Itoa(core),
		"--broker-addr", l.cfg.BrokerAddr)
	sup := supervisor.New(supervisor.Config{
		Binary:      l.cfg.WorkerBinary,
		Args:        args,
		Stdout:      stdout,
		Stderr:      stdout,
		MaxRestarts: l.cfg.MaxRestarts,
	})
	runErr := sup.Run(ctx)
	if ctx.Err() != nil {
		return nil
	}
	if runErr != nil {
		log.Logf(0, "core %d: worker gave up: %v", core, runErr)
		select {
		case l.Failures <- Failure{Core: core, Err: runErr}:
		default:
		}
	}
	return runErr
}

func (l *Launcher) openWorkerOutput(core int) (*os.File, error) {
	if l.cfg.StdoutDir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(l.cfg.StdoutDir, 0755); err != nil {
		return nil, fmt.Errorf("launcher: failed to create stdout dir: %w", err)
	}
	path := filepath.Join(l.cfg.StdoutDir, fmt.Sprintf("worker-%d.log", core))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("launcher: failed to create %q: %w", path, err)
	}
	return f, nil
}
