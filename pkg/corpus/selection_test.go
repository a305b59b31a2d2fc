// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"math/rand"
	"testing"

	"github.com/google/goafl/pkg/input"
	"github.com/google/goafl/pkg/signal"
	"github.com/google/goafl/pkg/testcase"
	"github.com/google/goafl/pkg/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTCSelectorChoosesAmongCoverers(t *testing.T) {
	s := newTCSelector()
	r := rand.New(testutil.RandSource(t))
	tcA := testcase.New(input.NewByteInput([]byte("a")))
	tcB := testcase.New(input.NewByteInput([]byte("b")))
	s.saveTestcase(tcA, signal.FromRaw([]uint8{1}, 1))
	s.saveTestcase(tcB, signal.FromRaw([]uint8{1}, 1))

	got := s.ChooseTestcase(r)
	assert.True(t, got == tcA || got == tcB)
	assert.Len(t, s.Testcases(), 2)
}

func TestTCSelectorEmpty(t *testing.T) {
	s := newTCSelector()
	r := rand.New(testutil.RandSource(t))
	assert.Nil(t, s.ChooseTestcase(r))
}

func TestTestcaseListPriorityWeighting(t *testing.T) {
	pl := &TestcaseList{}
	r := rand.New(testutil.RandSource(t))
	tc := testcase.New(input.NewByteInput([]byte("a")))
	pl.saveTestcase(tc, signal.FromRaw([]uint8{1, 1}, 1))
	got, sig := pl.ChooseTestcase(r)
	assert.Equal(t, tc, got)
	assert.Equal(t, []uint32{0, 1}, sig)
}
