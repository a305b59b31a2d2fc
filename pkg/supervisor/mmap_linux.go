// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

//go:build linux
// +build linux

package supervisor

import (
	"os"
	"syscall"
)

// mmapFile maps an inherited fd read-write, mirroring what
// pkg/osutil.CreateMemMappedFile does for a freshly created memfd.
func mmapFile(f *os.File, size int) ([]byte, error) {
	return syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
}
