// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Command goafl-fuzz is the worker-embedding binary: launched bare, it
// parses --cores and becomes the parent that forks one supervised worker
// per core; re-exec'd by pkg/launcher with --core=N, it becomes the worker
// itself, driving the fuzz loop against the configured harness.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"plugin"
	"strings"
	"time"

	"github.com/google/goafl/pkg/config"
	"github.com/google/goafl/pkg/corpus"
	"github.com/google/goafl/pkg/event"
	"github.com/google/goafl/pkg/executor"
	"github.com/google/goafl/pkg/feedback"
	"github.com/google/goafl/pkg/fuzzer"
	"github.com/google/goafl/pkg/input"
	"github.com/google/goafl/pkg/launcher"
	"github.com/google/goafl/pkg/log"
	"github.com/google/goafl/pkg/mutator"
	"github.com/google/goafl/pkg/observer"
	"github.com/google/goafl/pkg/osutil"
	"github.com/google/goafl/pkg/scheduler"
	"github.com/google/goafl/pkg/stage"
	"github.com/google/goafl/pkg/state"
	"github.com/google/goafl/pkg/supervisor"
)

// stringList collects repeated occurrences of a flag, e.g. multiple
// "--input <dir>" directories.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

var (
	flagCores         = flag.String("cores", "0", "comma/range list of CPU cores, one worker each")
	flagBrokerPort    = flag.Int("broker-port", 0, "TCP port the broker listens on (0 picks an ephemeral port)")
	flagBrokerAddr    = flag.String("broker-addr", "", "internal: broker address a re-exec'd worker dials")
	flagB2BAddr       = flag.String("b2baddr", "", "optional peer broker for broker-to-broker meshing")
	flagInput         stringList
	flagOutput        = flag.String("output", "./solutions", "solutions directory")
	flagCorpusDir     = flag.String("corpus", "./corpus", "persisted corpus directory")
	flagStdout        = flag.String("stdout", "", "directory for per-worker stdout/stderr logs (default: discard)")
	flagCore          = flag.Int("core", -1, "internal: this process is a re-exec'd worker pinned to this core")
	flagHarnessLib    = flag.String("harness-lib", "", "path to a plugin exposing the harness symbol (libfuzzer-compatible (data, size) -> int)")
	flagHarnessSymbol = flag.String("harness-symbol", "LLVMFuzzerTestOneInput", "exported symbol name inside --harness-lib")
	flagExecTimeoutMS = flag.Int("exec-timeout-ms", 1000, "per-execution timeout in milliseconds")
	flagEdgeMapSize   = flag.Int("edge-map-size", 65536, "instrumented edge map size in bytes")
	flagMaxRestarts   = flag.Int("max-restarts", 0, "bound on consecutive worker crash-restarts per core (0 = unlimited)")
	flagDebug         = flag.Bool("debug", false, "enable verbose logging")
	flagConfig        = flag.String("config", "", "optional YAML config file (pkg/config); explicit flags override its values")
)

// resolveConfig merges an optional --config YAML file with whatever flags
// were explicitly set on the command line, the way mgrconfig.Config layers
// file-based defaults under flag overrides: a flag the user actually typed
// always wins over the file.
func resolveConfig() (*config.Config, error) {
	cfg := config.Default()
	cfg.Cores = *flagCores
	cfg.Output = *flagOutput
	cfg.Input = flagInput
	cfg.ExecTimeoutMS = *flagExecTimeoutMS
	cfg.EdgeMapSize = *flagEdgeMapSize
	cfg.Debug = *flagDebug

	if *flagConfig == "" {
		return cfg, nil
	}
	fromFile, err := config.Load(*flagConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load --config %q: %w", *flagConfig, err)
	}

	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if !explicit["cores"] && fromFile.Cores != "" {
		cfg.Cores = fromFile.Cores
	}
	if !explicit["output"] && fromFile.Output != "" {
		cfg.Output = fromFile.Output
	}
	if !explicit["input"] && len(fromFile.Input) > 0 {
		cfg.Input = fromFile.Input
	}
	if !explicit["exec-timeout-ms"] && fromFile.ExecTimeoutMS != 0 {
		cfg.ExecTimeoutMS = fromFile.ExecTimeoutMS
	}
	if !explicit["edge-map-size"] && fromFile.EdgeMapSize != 0 {
		cfg.EdgeMapSize = fromFile.EdgeMapSize
	}
	if !explicit["debug"] && fromFile.Debug {
		cfg.Debug = true
	}
	if !explicit["broker-port"] && fromFile.BrokerPort != 0 {
		*flagBrokerPort = fromFile.BrokerPort
	}
	if !explicit["b2baddr"] && fromFile.PeerBroker != "" {
		*flagB2BAddr = fromFile.PeerBroker
	}
	if !explicit["stdout"] && fromFile.Stdout != "" {
		*flagStdout = fromFile.Stdout
	}
	return cfg, nil
}

func main() {
	flag.Var(&flagInput, "input", "initial corpus directory (repeatable)")
	flag.Parse()

	if *flagDebug {
		log.SetVerbosity(2)
	}

	if *flagCore < 0 {
		if err := runParent(); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}
	if err := runWorker(); err != nil {
		log.Fatalf("%v", err)
	}
}

// runParent starts the broker and launches one supervised worker per
// requested core, re-exec'ing this same binary with --core=N.
func runParent() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve own executable path: %w", err)
	}

	eff, err := resolveConfig()
	if err != nil {
		return err
	}

	broker := event.NewBroker(*flagB2BAddr)
	addr, err := broker.ListenAndServe(fmt.Sprintf(":%d", *flagBrokerPort))
	if err != nil {
		return fmt.Errorf("failed to start broker: %w", err)
	}
	defer broker.Close()
	log.Logf(0, "broker listening on %s", addr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shutdown := make(chan struct{})
	osutil.HandleInterrupts(shutdown)
	go func() {
		<-shutdown
		cancel()
	}()

	workerArgs := []string{
		"--output", eff.Output,
		"--corpus", *flagCorpusDir,
		"--harness-lib", *flagHarnessLib,
		"--harness-symbol", *flagHarnessSymbol,
		"--exec-timeout-ms", fmt.Sprint(eff.ExecTimeoutMS),
		"--edge-map-size", fmt.Sprint(eff.EdgeMapSize),
	}
	for _, dir := range eff.Input {
		workerArgs = append(workerArgs, "--input", dir)
	}
	if eff.Debug {
		workerArgs = append(workerArgs, "--debug")
	}

	l := launcher.New(launcher.Config{
		Cores:        eff.Cores,
		WorkerBinary: exe,
		WorkerArgs:   workerArgs,
		BrokerAddr:   addr,
		StdoutDir:    *flagStdout,
		MaxRestarts:  *flagMaxRestarts,
	})
	go func() {
		for f := range l.Failures {
			log.Errorf("core %d gave up: %v", f.Core, f.Err)
		}
	}()

	if err := l.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("launcher: %w", err)
	}
	return nil
}

// runWorker drives the fuzz loop for a single core, re-exec'd by the
// launcher with --core=N and --broker-addr set.
func runWorker() error {
	state.RegisterTypes()

	harness, err := loadHarness(*flagHarnessLib, *flagHarnessSymbol)
	if err != nil {
		return fmt.Errorf("failed to load harness: %w", err)
	}

	edges := observer.NewEdgeMap("edges", make([]byte, *flagEdgeMapSize))
	hitcounts := observer.NewHitcountsMap("hitcounts", edges)
	obsSet := observer.NewSet(edges, hitcounts)

	exec := executor.NewInProcessExecutor(harness, time.Duration(*flagExecTimeoutMS)*time.Millisecond)
	slot, err := supervisor.AttachInheritedSlot(1 << 20)
	if err != nil {
		return fmt.Errorf("failed to attach inherited crash-recovery slot: %w", err)
	}
	if slot != nil {
		exec.SetCrashRecorder(slot)
		defer slot.Close()
	}

	corp, err := corpus.NewOnDiskCorpus(*flagCorpusDir)
	if err != nil {
		return fmt.Errorf("failed to open corpus dir: %w", err)
	}
	solutions, err := corpus.NewOnDiskCorpus(*flagOutput)
	if err != nil {
		return fmt.Errorf("failed to open solutions dir: %w", err)
	}
	for _, dir := range flagInput {
		if err := corpus.LoadSeeds(corp, dir); err != nil {
			log.Errorf("failed to load seeds from %q: %v", dir, err)
		}
	}
	if corp.Count() == 0 {
		corpus.LoadBytes(corp, []byte{0})
	}

	chain := mutator.NewChain([]mutator.Mutator{
		mutator.BitFlip{},
		mutator.ByteFlip{},
		mutator.Arithmetic{},
		mutator.Havoc{Stacked: []mutator.Mutator{mutator.BitFlip{}, mutator.ByteFlip{}, mutator.Arithmetic{}}},
	}, 2)

	var sink fuzzer.EventSink
	var source fuzzer.EventSource
	var worker *event.WorkerClient
	if *flagBrokerAddr != "" {
		worker, err = event.Dial(*flagBrokerAddr)
		if err != nil {
			return fmt.Errorf("failed to dial broker at %q: %w", *flagBrokerAddr, err)
		}
		defer worker.Close()
		sink = worker
		source = worker
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	shutdown := make(chan struct{})
	osutil.HandleInterrupts(shutdown)
	go func() {
		<-shutdown
		cancel()
	}()

	fz := fuzzer.New(ctx, fuzzer.Config{
		Corpus:    corp,
		Solutions: solutions,
		Scheduler: scheduler.NewQueue(),
		Stages:    []stage.Stage{stage.NewMutationalStage(chain)},
		Executor:  exec,
		Observers: obsSet,
		Feedback:  feedback.NewMaxMapFeedback("seed", "hitcounts", *flagEdgeMapSize),
		Objective: &feedback.Or{A: feedback.CrashFeedback{}, B: feedback.TimeoutFeedback{}},
		Sink:      sink,
		Source:    source,
		Seed:      time.Now().UnixNano() ^ int64(*flagCore)<<32,
	})

	if worker != nil {
		go reportStatsLoop(ctx, fz, worker)
	}

	err = fz.FuzzLoop(5 * time.Second)
	if err == context.Canceled {
		return nil
	}
	return err
}

func reportStatsLoop(ctx context.Context, fz *fuzzer.Fuzzer, worker *event.WorkerClient) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			worker.UpdateStats(fz.ExecCount())
		}
	}
}


// loadHarness resolves the target ABI: a named symbol in a dynamically
// loaded library, libfuzzer-compatible `(data, size) -> int` (return value
// ignored except 0 vs non-0, which maps to Ok vs Crash). With no
// --harness-lib, a small built-in demo harness exercises the pipeline end
// to end without any external target.
func loadHarness(libPath, symbol string) (executor.Harness, error) {
	if libPath == "" {
		return demoHarness, nil
	}
	p, err := plugin.Open(libPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open harness plugin %q: %w", libPath, err)
	}
	sym, err := p.Lookup(symbol)
	if err != nil {
		return nil, fmt.Errorf("harness plugin %q has no symbol %q: %w", libPath, symbol, err)
	}
	fn, ok := sym.(func([]byte) int)
	if !ok {
		return nil, fmt.Errorf("harness plugin %q symbol %q has the wrong signature, want func([]byte) int", libPath, symbol)
	}
	return func(in input.Input) error {
		if rc := fn(in.Bytes()); rc != 0 {
			return fmt.Errorf("harness returned %d: %w", rc, executor.ErrCrash)
		}
		return nil
	}, nil
}

// demoHarness panics on a couple of fixed trigger inputs so the binary
// demonstrates the whole pipeline (discovery, crash capture, restart)
// without any external target.
func demoHarness(in input.Input) error {
	switch string(in.Bytes()) {
	case "CRASH", "BOOM":
		panic("demo harness: simulated fatal bug")
	}
	return nil
}
