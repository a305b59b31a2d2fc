// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package stats implements the counters referenced by pkg/fuzzer (e.g.
// "risky reruns", "corpus size").
// Unlike a bespoke in-house stats package, every Val here is also
// registered with a prometheus.Registry, so a caller can expose /metrics
// without the core needing to know about HTTP at all.
package stats

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the process-wide collector all Vals register into.
var Registry = prometheus.NewRegistry()

// Val is a named, monotonically-adjustable counter or live gauge.
type Val struct {
	Name string
	desc string

	counter prometheus.Counter
	gauge   prometheus.Gauge
	live    func() int
}

var (
	mu   sync.Mutex
	vals = map[string]*Val{}
)

// Create registers a new stat. source may be:
//   - nil: a plain accumulating counter, adjusted via Add.
//   - func() int: a live gauge sampled on read (e.g. queue depth).
//
// Extra arguments describe rendering hints elsewhere in the ecosystem and
// are accepted here for call-site compatibility but otherwise ignored:
// statistics rendering is explicitly out of scope for the core.
func Create(name, desc string, source interface{}, _ ...interface{}) *Val {
	mu.Lock()
	defer mu.Unlock()
	if v, ok := vals[name]; ok {
		return v
	}
	v := &Val{Name: name, desc: desc}
	switch s := source.(type) {
	case func() int:
		v.live = s
		v.gauge = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: sanitize(name),
			Help: desc,
		}, func() float64 { return float64(s()) })
		Registry.MustRegister(v.gauge.(prometheus.GaugeFunc))
	default:
		v.counter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: sanitize(name),
			Help: desc,
		})
		Registry.MustRegister(v.counter)
	}
	vals[name] = v
	return v
}

// Add adjusts a counter-backed Val. Negative deltas are allowed for queue
// depth style counters implemented without a live source function.
func (v *Val) Add(delta int) {
	if v.counter == nil {
		return
	}
	if delta < 0 {
		// Counters cannot decrease; approximate queue-depth semantics with
		// an internal signed accumulator exposed through Value() instead.
		v.signedAdd(delta)
		return
	}
	v.counter.Add(float64(delta))
	v.signedAdd(delta)
}

var signed sync.Map // name -> *int64

func (v *Val) signedAdd(delta int) {
	actual, _ := signed.LoadOrStore(v.Name, new(int64))
	atomic.AddInt64(actual.(*int64), int64(delta))
}

// Value returns the current signed value of the counter.
func (v *Val) Value() int64 {
	if v.live != nil {
		return int64(v.live())
	}
	actual, ok := signed.Load(v.Name)
	if !ok {
		return 0
	}
	return atomic.LoadInt64(actual.(*int64))
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return "goafl_" + string(out)
}

// Rate and StackedGraph are rendering hints accepted by Create for
// call-site compatibility with a wider stats API; the core does not
// interpret them (see package doc).
type Rate struct{}

func StackedGraph(_ string) interface{} { return nil }

// AverageValue tracks a running mean over every saved value.
type AverageValue[T float64 | int64] struct {
	mu    sync.Mutex
	sum   float64
	count int64
}

func (a *AverageValue[T]) Save(v T) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sum += float64(v)
	a.count++
}

func (a *AverageValue[T]) Value() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

func (a *AverageValue[T]) Count() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}
