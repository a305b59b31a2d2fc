// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package observer

// Comparison is one recorded operand pair from an instrumented comparison
// site, consulted by the I2S stage.
type Comparison struct {
	V0, V1 []byte
	Width  int
}

// CmpLog records comparison operand history from an instrumented harness
// (pkg/executor's ShadowExecutor runs its in-process shadow harness, which
// appends to this log).
type CmpLog struct {
	name string
	log  []Comparison
	cap  int
}

func NewCmpLog(name string, capacity int) *CmpLog {
	return &CmpLog{name: name, cap: capacity}
}

func (c *CmpLog) Name() string { return c.name }

func (c *CmpLog) PreExec() { c.log = c.log[:0] }

func (c *CmpLog) PostExec() {}

// Record appends one observed comparison, dropping it once the observer's
// capacity is reached (I2S only needs a bounded sample per run).
func (c *CmpLog) Record(v0, v1 []byte, width int) {
	if len(c.log) >= c.cap {
		return
	}
	c.log = append(c.log, Comparison{V0: append([]byte{}, v0...), V1: append([]byte{}, v1...), Width: width})
}

func (c *CmpLog) Comparisons() []Comparison { return c.log }
