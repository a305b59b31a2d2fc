// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package observer

// EdgeMap is a byte array recording basic-block edge transitions, backed by
// whatever buffer the caller supplies: a shared-memory mapping
// (pkg/osutil.CreateMemMappedFile) or a plain slice, which is what
// cmd/goafl-fuzz passes. The instrumentation increments a cell
// per edge; PreExec zeroes the map so each run starts from a clean slate.
type EdgeMap struct {
	name string
	buf  []byte // shared-memory backed, or a plain slice for in-process harnesses
}

// NewEdgeMap wraps an existing buffer (e.g. a shared-memory mapping) as an
// EdgeMap observer. The buffer's length is the map's fixed size for the
// lifetime of the worker.
func NewEdgeMap(name string, buf []byte) *EdgeMap {
	return &EdgeMap{name: name, buf: buf}
}

func (e *EdgeMap) Name() string { return e.name }

// PreExec zeroes the map; the instrumented harness increments cells as it
// runs, so a stale nonzero cell from a prior execution would otherwise be
// mistaken for this run's coverage.
func (e *EdgeMap) PreExec() {
	for i := range e.buf {
		e.buf[i] = 0
	}
}

func (e *EdgeMap) PostExec() {}

// Raw returns the live backing buffer; callers must not retain it past the
// next PreExec.
func (e *EdgeMap) Raw() []byte { return e.buf }

// Size returns the map's fixed cell count.
func (e *EdgeMap) Size() int { return len(e.buf) }
