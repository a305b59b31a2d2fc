// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log provides the leveled logging primitives used across the
// fuzzing core: a global verbosity knob plus Logf/Fatalf helpers that every
// other package calls into, the same way syzkaller's pkg/log does.
package log

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
)

var (
	mu        sync.Mutex
	verbosity atomic.Int32
)

// SetVerbosity sets the global verbosity level. Higher values print more.
func SetVerbosity(v int) {
	verbosity.Store(int32(v))
}

// V reports whether the given verbosity level is currently enabled.
func V(level int) bool {
	return int32(level) <= verbosity.Load()
}

// Logf prints a leveled message to stderr if the level is enabled.
func Logf(level int, msg string, args ...interface{}) {
	if !V(level) {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	log.Output(2, fmt.Sprintf(msg, args...)) //nolint:errcheck
}

// Errorf always prints, regardless of verbosity. It does not abort.
func Errorf(msg string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	log.Output(2, "ERROR: "+fmt.Sprintf(msg, args...)) //nolint:errcheck
}

// Fatalf prints the message and terminates the process. Used for
// programmer errors (illegal argument/illegal state) that the core has no
// way to recover from.
func Fatalf(msg string, args ...interface{}) {
	mu.Lock()
	log.Output(2, "FATAL: "+fmt.Sprintf(msg, args...)) //nolint:errcheck
	mu.Unlock()
	os.Exit(1)
}

// Truncate leaves up to `begin` bytes at the beginning of log and up to
// `end` bytes at the end of the log. Used to bound crash-report output
// before it is attached to an Event.Log or a solutions sidecar.
func Truncate(data []byte, begin, end int) []byte {
	if begin+end >= len(data) {
		return data
	}
	var out []byte
	out = append(out, data[:begin]...)
	if begin > 0 {
		out = append(out, '\n', '\n')
	}
	out = append(out, []byte(fmt.Sprintf("<<cut %d bytes out>>", len(data)-begin-end))...)
	if end > 0 {
		out = append(out, '\n', '\n')
	}
	out = append(out, data[len(data)-end:]...)
	return out
}
