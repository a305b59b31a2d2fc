// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package observer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetGetByName(t *testing.T) {
	tm := NewTimeObserver()
	set := NewSet(tm)
	got, ok := set.Get("time")
	assert.True(t, ok)
	assert.Same(t, tm, got)

	_, ok = set.Get("missing")
	assert.False(t, ok)
}

func TestSetPreExecPostExecDriveAll(t *testing.T) {
	buf := make([]byte, 4)
	buf[0] = 5
	em := NewEdgeMap("edges", buf)
	set := NewSet(em)
	set.PreExec()
	assert.Equal(t, []byte{0, 0, 0, 0}, em.Raw())
}

func TestTimeObserverMeasures(t *testing.T) {
	tm := NewTimeObserver()
	tm.PreExec()
	time.Sleep(time.Millisecond)
	tm.PostExec()
	assert.Greater(t, tm.LastTime(), time.Duration(0))
}

func TestEdgeMapResetsOnPreExec(t *testing.T) {
	buf := []byte{1, 2, 3}
	em := NewEdgeMap("edges", buf)
	em.PreExec()
	assert.Equal(t, []byte{0, 0, 0}, buf)
}

func TestHitcountsMapBuckets(t *testing.T) {
	buf := []byte{0, 1, 2, 3, 5, 10, 20, 100, 200}
	em := NewEdgeMap("edges", buf)
	hc := NewHitcountsMap("hitcounts", em)
	hc.PostExec()
	assert.Equal(t, []uint8{0, 1, 2, 3, 4, 5, 6, 7, 8}, hc.Buckets())
}

func TestCmpLogCapacity(t *testing.T) {
	cl := NewCmpLog("cmplog", 2)
	cl.PreExec()
	cl.Record([]byte{1}, []byte{2}, 1)
	cl.Record([]byte{3}, []byte{4}, 1)
	cl.Record([]byte{5}, []byte{6}, 1)
	assert.Len(t, cl.Comparisons(), 2)
}

func TestAsanErrorsRoundtrip(t *testing.T) {
	a := NewAsanErrors("asan")
	assert.False(t, a.HasError())
	a.SetReport("heap-buffer-overflow")
	assert.True(t, a.HasError())
	a.PreExec()
	assert.False(t, a.HasError())
}
