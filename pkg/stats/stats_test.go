// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterAdd(t *testing.T) {
	v := Create("test counter add", "a plain counter", nil)
	v.Add(3)
	v.Add(2)
	assert.EqualValues(t, 5, v.Value())
}

func TestLiveGauge(t *testing.T) {
	depth := 0
	v := Create("test live gauge", "a sampled gauge", func() int { return depth })
	depth = 7
	assert.EqualValues(t, 7, v.Value())
}

func TestAverageValue(t *testing.T) {
	var avg AverageValue[float64]
	avg.Save(1.0)
	avg.Save(3.0)
	assert.Equal(t, 2.0, avg.Value())
	assert.EqualValues(t, 2, avg.Count())
}
