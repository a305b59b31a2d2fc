// Copyright 2022 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package testutil collects small helpers shared by the module's _test.go
// files: deterministic-but-overridable RNG seeding, random byte-blob
// generation for fuzzer-internal tests (not target inputs), and on-disk
// fixture layout.
package testutil

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/google/goafl/pkg/osutil"
)

func IterCount() int {
	iters := 1000
	if testing.Short() {
		iters /= 10
	}
	if RaceEnabled {
		iters /= 10
	}
	return iters
}

// RandSource returns a rand.Source seeded from $SYZ_SEED if set, 0 under CI
// (for reproducible runs), or the wall clock otherwise. The chosen seed is
// logged so a flaky failure can be reproduced.
func RandSource(t *testing.T) rand.Source {
	seed := time.Now().UnixNano()
	if fixed := os.Getenv("SYZ_SEED"); fixed != "" {
		seed, _ = strconv.ParseInt(fixed, 0, 64)
	}
	if os.Getenv("CI") != "" {
		seed = 0
	}
	t.Logf("seed=%v", seed)
	return rand.NewSource(seed)
}

// RandBytes returns a random byte blob up to maxLen bytes, used to stand in
// for a target Input in tests that don't care about its structure.
func RandBytes(r *rand.Rand, maxLen int) []byte {
	n := r.Intn(maxLen)
	buf := make([]byte, n)
	r.Read(buf)
	return buf
}

// DirectoryLayout creates a layout specified by the paths slice.
// If a path ends with a filepath.Separator, then a directory is created.
// Otherwise, DirectoryLayout creates an empty file.
func DirectoryLayout(t *testing.T, base string, paths []string) {
	for _, path := range paths {
		path = filepath.Join(base, filepath.FromSlash(path))
		dir := filepath.Dir(path)
		if err := osutil.MkdirAll(dir); err != nil {
			t.Fatal(err)
		}
		if path != "" && path[len(path)-1] != filepath.Separator {
			if err := osutil.WriteFile(path, nil); err != nil {
				t.Fatal(err)
			}
		}
	}
}
