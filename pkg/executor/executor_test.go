// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package executor

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/goafl/pkg/input"
	"github.com/google/goafl/pkg/observer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcessExecutorOk(t *testing.T) {
	ex := NewInProcessExecutor(func(in input.Input) error { return nil }, time.Second)
	set := observer.NewSet(observer.NewTimeObserver())
	kind, err := ex.Run(input.NewByteInput([]byte("x")), set)
	require.NoError(t, err)
	assert.Equal(t, Ok, kind)
}

func TestInProcessExecutorPropagatesHarnessError(t *testing.T) {
	want := errors.New("boom")
	ex := NewInProcessExecutor(func(in input.Input) error { return want }, time.Second)
	set := observer.NewSet()
	_, err := ex.Run(input.NewByteInput([]byte("x")), set)
	assert.Equal(t, want, err)
}

func TestInProcessExecutorMapsErrCrashToCrashKind(t *testing.T) {
	ex := NewInProcessExecutor(func(in input.Input) error {
		return fmt.Errorf("harness returned 1: %w", ErrCrash)
	}, time.Second)
	set := observer.NewSet()
	kind, err := ex.Run(input.NewByteInput([]byte("x")), set)
	assert.Equal(t, Crash, kind)
	assert.ErrorIs(t, err, ErrCrash)
}

func TestInProcessExecutorRecoversPanic(t *testing.T) {
	ex := NewInProcessExecutor(func(in input.Input) error {
		panic("nil deref")
	}, time.Second)
	set := observer.NewSet()
	kind, err := ex.Run(input.NewByteInput([]byte("x")), set)
	assert.Equal(t, Crash, kind)
	assert.Error(t, err)
}

func TestInProcessExecutorTimeout(t *testing.T) {
	ex := NewInProcessExecutor(func(in input.Input) error {
		time.Sleep(50 * time.Millisecond)
		return nil
	}, time.Millisecond)
	set := observer.NewSet()
	kind, err := ex.Run(input.NewByteInput([]byte("x")), set)
	require.NoError(t, err)
	assert.Equal(t, Timeout, kind)
}

func TestShadowExecutorPopulatesCmpLog(t *testing.T) {
	primary := NewInProcessExecutor(func(in input.Input) error { return nil }, time.Second)
	cl := observer.NewCmpLog("cmplog", 4)
	shadow := NewShadowExecutor(primary, func(in input.Input) error {
		cl.Record([]byte{1}, []byte{2}, 1)
		return nil
	}, cl)
	set := observer.NewSet()
	kind, err := shadow.Run(input.NewByteInput([]byte("x")), set)
	require.NoError(t, err)
	assert.Equal(t, Ok, kind)
	assert.Len(t, shadow.CmpLog().Comparisons(), 1)
}
