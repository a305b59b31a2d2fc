// Copyright 2025 syzkaller project authors. All rights reserved.
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

func TestWeightedPCSelection(t *testing.T) {
	// tcA covers cell 100. tcB covers 100, 200. tcC covers 200.
	// Expected long-run pick ratio: A 25%, B 50%, C 25%.
	selection := NewWeightedPCSelection()
	r := rand.New(testutil.RandSource(t))

	tcA := testcase.New(input.NewByteInput([]byte("a")))
	tcB := testcase.New(input.NewByteInput([]byte("b")))
	tcC := testcase.New(input.NewByteInput([]byte("c")))

	const sigLen = 1
	selection.SaveTestcase(tcA, signal.FromRaw([]uint8{1}, sigLen), []uint32{100})
	selection.SaveTestcase(tcB, signal.FromRaw([]uint8{1}, sigLen), []uint32{100, 200})
	selection.SaveTestcase(tcC, signal.FromRaw([]uint8{1}, sigLen), []uint32{200})

	counts := make(map[*testcase.Testcase]int)
	const total = 100000
	for i := 0; i < total; i++ {
		counts[selection.ChooseTestcase(r)]++
	}

	assert.InDelta(t, 25000, counts[tcA], 1500)
	assert.InDelta(t, 50000, counts[tcB], 1500)
	assert.InDelta(t, 25000, counts[tcC], 1500)
}

func TestWeightedPCSelectionMany(t *testing.T) {
	selection := NewWeightedPCSelection().(*WeightedPCSelection)
	r := rand.New(testutil.RandSource(t))

	tc := testcase.New(input.NewByteInput([]byte("x")))
	sig := signal.FromRaw([]uint8{1}, 1)

	for i := 0; i < 200; i++ {
		selection.SaveTestcase(tc, sig, []uint32{uint32(i)})
	}

	assert.Equal(t, 200, len(selection.tree))
	assert.Equal(t, 200, len(selection.cellMap))
	assert.InDelta(t, 200.0, selection.tree[0].sum, 0.001)

	for i := 0; i < 2000; i++ {
		assert.Equal(t, tc, selection.ChooseTestcase(r))
	}
}

func TestWeightedPCSelectionEmpty(t *testing.T) {
	selection := NewWeightedPCSelection()
	r := rand.New(testutil.RandSource(t))
	assert.Nil(t, selection.ChooseTestcase(r))
}
