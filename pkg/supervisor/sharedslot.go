// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package supervisor implements a crash-restart discipline: a parent
// process that forks a worker child, recovers the input that was running
// when the child died unrecoverably (a signal Go's panic/recover can't
// catch, e.g. SIGSEGV delivered to the runtime itself, or an OOM kill),
// and restarts the child, preserving the corpus and solutions directories
// across restarts.
package supervisor

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/google/goafl/pkg/osutil"
)

// lastInputEnv names the environment variable the parent uses to tell a
// freshly exec'd child which inherited fd the shared slot lives on.
const lastInputEnv = "GOAFL_LAST_INPUT_FD"

// InputSlot is a small shared-memory region the worker writes the bytes of
// whatever input it is about to execute into, just before calling the
// harness. If the process dies in a way recover() cannot observe, the
// supervisor reads this slot from the surviving mapping to recover the
// crashing input, the same role syzkaller's executor.cc "last executed
// program" shared page plays, generalized from *prog.Prog serialization
// to a flat length-prefixed byte buffer (ported to Go via
// pkg/osutil/sharedmem_memfd.go's memfd_create-based mapping rather than
// syzkaller's C shared page).
type InputSlot struct {
	file *os.File
	mem  []byte
}

// NewInputSlot creates a fresh memfd-backed slot sized to hold up to
// maxLen bytes of input plus a 4-byte length prefix.
func NewInputSlot(maxLen int) (*InputSlot, error) {
	f, mem, err := osutil.CreateMemMappedFile(maxLen + 4)
	if err != nil {
		return nil, fmt.Errorf("supervisor: failed to create input slot: %w", err)
	}
	return &InputSlot{file: f, mem: mem}, nil
}

// Fd returns the underlying file descriptor, to be passed to a child via
// exec.Cmd.ExtraFiles.
func (s *InputSlot) Fd() uintptr { return s.file.Fd() }

// Write records data as the input currently being executed. Truncated
// silently if it doesn't fit the slot — the slot exists for crash
// forensics, not correctness, so a truncated recovery is still useful.
func (s *InputSlot) Write(data []byte) {
	capacity := len(s.mem) - 4
	if len(data) > capacity {
		data = data[:capacity]
	}
	binary.LittleEndian.PutUint32(s.mem[:4], uint32(len(data)))
	copy(s.mem[4:], data)
}

// Read returns the last input recorded via Write.
func (s *InputSlot) Read() []byte {
	n := binary.LittleEndian.Uint32(s.mem[:4])
	capacity := uint32(len(s.mem) - 4)
	if n > capacity {
		n = capacity
	}
	out := make([]byte, n)
	copy(out, s.mem[4:4+n])
	return out
}

// Close unmaps the slot and closes its backing file.
func (s *InputSlot) Close() error {
	return osutil.CloseMemMappedFile(s.file, s.mem)
}

// AttachInheritedSlot maps the fd inherited from the parent (named by
// lastInputEnv) for a child to write into. It returns (nil, nil) when the
// environment variable isn't set, so a binary can run standalone (no
// supervisor) without error.
func AttachInheritedSlot(maxLen int) (*InputSlot, error) {
	fdStr := os.Getenv(lastInputEnv)
	if fdStr == "" {
		return nil, nil
	}
	var fd int
	if _, err := fmt.Sscanf(fdStr, "%d", &fd); err != nil {
		return nil, fmt.Errorf("supervisor: malformed %s=%q: %w", lastInputEnv, fdStr, err)
	}
	f := os.NewFile(uintptr(fd), "goafl-last-input")
	mem, err := mmapFile(f, maxLen+4)
	if err != nil {
		return nil, fmt.Errorf("supervisor: failed to map inherited slot: %w", err)
	}
	return &InputSlot{file: f, mem: mem}, nil
}
