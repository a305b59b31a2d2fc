// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package event

import (
	"fmt"
	"net/rpc"
	"sync"

	"github.com/google/goafl/pkg/executor"
	"github.com/google/goafl/pkg/input"
	"github.com/google/uuid"
)

// WorkerClient is the worker-side half of the broker link: it implements
// pkg/fuzzer.EventSink, turning Fuzzer callbacks into Report RPCs.
type WorkerClient struct {
	id     string
	client *rpc.Client

	mu       sync.Mutex
	sinceSeq uint64
}

// Dial connects to a broker at addr and performs the Connect handshake.
// The worker's id is a fresh UUID, used for worker identity on the wire.
func Dial(addr string) (*WorkerClient, error) {
	client, err := rpc.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("event: failed to dial broker %q: %w", addr, err)
	}
	w := &WorkerClient{id: uuid.NewString(), client: client}
	var resp ConnectResponse
	if err := client.Call("Broker.Connect", &ConnectRequest{Worker: w.id}, &resp); err != nil {
		client.Close()
		return nil, fmt.Errorf("event: connect handshake failed: %w", err)
	}
	w.mu.Lock()
	w.sinceSeq = resp.SinceSeq
	w.mu.Unlock()
	return w, nil
}

func (w *WorkerClient) ID() string { return w.id }

func (w *WorkerClient) Close() error { return w.client.Close() }

func (w *WorkerClient) report(e Event) {
	e.Worker = w.id
	var ignored NoReply
	_ = w.client.Call("Broker.Report", &e, &ignored)
}

// NewTestcase implements pkg/fuzzer.EventSink.
func (w *WorkerClient) NewTestcase(in input.Input, exitKind executor.ExitKind, corpusSize int) {
	w.report(NewTestcaseEvent(w.id, in.Bytes(), exitKind.String(), corpusSize))
}

// Objective implements pkg/fuzzer.EventSink.
func (w *WorkerClient) Objective(solutionsSize int) {
	w.report(ObjectiveEvent(w.id, solutionsSize))
}

// UpdateStats reports an executions-so-far counter.
func (w *WorkerClient) UpdateStats(executions uint64) {
	w.report(UpdateStatsEvent(w.id, executions))
}

// Log forwards a leveled log line to the broker, so a multi-worker run's
// logs can be aggregated in one place.
func (w *WorkerClient) Log(level int, msg string) {
	w.report(LogEvent(w.id, level, msg))
}

// CustomBuf reports an opaque named buffer (e.g. a coverage bitmap
// snapshot), matching LibAFL's CustomBuf event variant.
func (w *WorkerClient) CustomBuf(name string, buf []byte) {
	w.report(CustomBufEvent(w.id, name, buf))
}

// PollRemoteTestcases implements pkg/fuzzer.EventSource: it returns the raw
// input bytes of every NewTestcase event reported by another worker since
// the last poll, filtering out this worker's own events (it already has
// them) and anything that isn't a NewTestcase (KindObjective carries no
// input bytes to re-materialize).
func (w *WorkerClient) PollRemoteTestcases() ([][]byte, error) {
	events, err := w.PollSince()
	if err != nil {
		return nil, err
	}
	var out [][]byte
	for _, e := range events {
		if e.Kind != KindNewTestcase || e.Worker == w.id {
			continue
		}
		out = append(out, e.InputBytes)
	}
	return out, nil
}

// PollSince fetches every event with Seq >= the worker's last-seen mark and
// advances that mark, for resuming after a crash-restart.
func (w *WorkerClient) PollSince() ([]Event, error) {
	w.mu.Lock()
	since := w.sinceSeq
	w.mu.Unlock()

	var resp SinceResponse
	if err := w.client.Call("Broker.Since", &SinceRequest{Seq: since}, &resp); err != nil {
		return nil, fmt.Errorf("event: poll failed: %w", err)
	}
	if len(resp.Events) > 0 {
		w.mu.Lock()
		if last := resp.Events[len(resp.Events)-1].Seq + 1; last > w.sinceSeq {
			w.sinceSeq = last
		}
		w.mu.Unlock()
	}
	return resp.Events, nil
}
