// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package event

import (
	"testing"
	"time"

	"github.com/google/goafl/pkg/executor"
	"github.com/google/goafl/pkg/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestBroker(t *testing.T) (*Broker, string) {
	t.Helper()
	b := NewBroker("")
	addr, err := b.ListenAndServe("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b, addr
}

func TestWorkerDialAndReport(t *testing.T) {
	_, addr := startTestBroker(t)

	w, err := Dial(addr)
	require.NoError(t, err)
	defer w.Close()
	assert.NotEmpty(t, w.ID())

	w.NewTestcase(input.NewByteInput([]byte("abc")), executor.Ok, 1)
	w.Objective(2)

	// Poll until both events are visible, bounded by a deadline.
	deadline := time.Now().Add(2 * time.Second)
	var events []Event
	for time.Now().Before(deadline) {
		events, err = w.PollSince()
		require.NoError(t, err)
		if len(events) >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Len(t, events, 2)
	assert.Equal(t, KindNewTestcase, events[0].Kind)
	assert.Equal(t, KindObjective, events[1].Kind)
	assert.Equal(t, w.ID(), events[0].Worker)
}

func TestSecondWorkerCatchesUpFromConnectSeq(t *testing.T) {
	_, addr := startTestBroker(t)

	first, err := Dial(addr)
	require.NoError(t, err)
	defer first.Close()
	first.UpdateStats(100)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events, perr := first.PollSince()
		require.NoError(t, perr)
		if len(events) >= 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A worker connecting after the first event should only see events from
	// then on once it polls from its own SinceSeq, not from the beginning.
	second, err := Dial(addr)
	require.NoError(t, err)
	defer second.Close()
	second.Log(1, "hello")

	deadline = time.Now().Add(2 * time.Second)
	var events []Event
	for time.Now().Before(deadline) {
		events, err = second.PollSince()
		require.NoError(t, err)
		if len(events) >= 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Len(t, events, 1)
	assert.Equal(t, KindLog, events[0].Kind)
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "new_testcase", KindNewTestcase.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
