// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package testcase

import (
	"testing"
	"time"

	"github.com/google/goafl/pkg/input"
	"github.com/stretchr/testify/assert"
)

func TestNewDefaults(t *testing.T) {
	tc := New(input.NewByteInput([]byte("abc")))
	assert.Equal(t, -1, tc.Parent())
	assert.Equal(t, 0, tc.TimesChosen())
	assert.False(t, tc.Favored())
	assert.Equal(t, "", tc.Path())
}

func TestMarkChosenIncrements(t *testing.T) {
	tc := New(input.NewByteInput([]byte("abc")))
	tc.MarkChosen()
	tc.MarkChosen()
	assert.Equal(t, 2, tc.TimesChosen())
}

func TestMetadataRoundtrip(t *testing.T) {
	tc := New(input.NewByteInput([]byte("abc")))
	_, ok := tc.Metadata("novel_indices")
	assert.False(t, ok)

	tc.SetMetadata("novel_indices", []uint32{1, 2, 3})
	v, ok := tc.Metadata("novel_indices")
	assert.True(t, ok)
	assert.Equal(t, []uint32{1, 2, 3}, v)
}

func TestExecTimeAndDiscovery(t *testing.T) {
	tc := New(input.NewByteInput([]byte("abc")))
	tc.SetExecTime(5 * time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, tc.ExecTime())

	now := time.Unix(1700000000, 0)
	tc.SetDiscoveredAt(now)
	assert.True(t, tc.DiscoveredAt().Equal(now))
}
