// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package osutil collects small OS-level helpers the module needs beyond
// what the standard library conveniently exposes: shared-memory mapping
// (sharedmem_memfd.go) and the directory/file helpers pkg/corpus's
// on-disk variants and pkg/testutil's fixtures use.
package osutil

import (
	"os"
	"os/signal"
	"syscall"
)

// MkdirAll creates dir and any missing parents, treating an already-existing
// directory as success.
func MkdirAll(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// WriteFile writes data to name, creating or truncating it.
func WriteFile(name string, data []byte) error {
	return os.WriteFile(name, data, 0644)
}

// IsExist reports whether path exists.
func IsExist(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// HandleInterrupts closes shutdown (exactly once) when the process receives
// SIGINT or SIGTERM, letting callers select on it alongside other shutdown
// triggers rather than calling os.Exit directly from a signal handler.
func HandleInterrupts(shutdown chan struct{}) {
	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigC
		close(shutdown)
	}()
}
