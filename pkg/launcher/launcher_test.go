// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package launcher

import (
	"context"
	"os/exec"
	"testing"
	"time"
)

func TestParseCoresCommaAndRange(t *testing.T) {
	cores, err := ParseCores("0-3,6")
	if err != nil {
		t.Fatalf("ParseCores: %v", err)
	}
	want := []int{0, 1, 2, 3, 6}
	if len(cores) != len(want) {
		t.Fatalf("ParseCores(%q) = %v, want %v", "0-3,6", cores, want)
	}
	for i, c := range want {
		if cores[i] != c {
			t.Fatalf("ParseCores(%q) = %v, want %v", "0-3,6", cores, want)
		}
	}
}

func TestParseCoresDedupsOverlappingRanges(t *testing.T) {
	cores, err := ParseCores("0-2,1-3")
	if err != nil {
		t.Fatalf("ParseCores: %v", err)
	}
	want := []int{0, 1, 2, 3}
	if len(cores) != len(want) {
		t.Fatalf("ParseCores dedup = %v, want %v", cores, want)
	}
}

func TestParseCoresRejectsEmptySpec(t *testing.T) {
	if _, err := ParseCores("   "); err == nil {
		t.Fatal("ParseCores(empty) = nil error, want error")
	}
}

func TestParseCoresRejectsMalformedRange(t *testing.T) {
	if _, err := ParseCores("3-"); err == nil {
		t.Fatal("ParseCores(\"3-\") = nil error, want error")
	}
	if _, err := ParseCores("5-2"); err == nil {
		t.Fatal("ParseCores(\"5-2\") = nil error, want error")
	}
}

func TestLauncherRunOneWorkerPerCoreExitsCleanly(t *testing.T) {
	trueBin, err := exec.LookPath("true")
	if err != nil {
		t.Skipf("no 'true' binary available: %v", err)
	}
	l := New(Config{
		Cores:        "0-1",
		WorkerBinary: trueBin,
		MaxRestarts:  1,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run() = %v, want nil when every worker exits cleanly", err)
	}
}

func TestLauncherRunReportsFailures(t *testing.T) {
	falseBin, err := exec.LookPath("false")
	if err != nil {
		t.Skipf("no 'false' binary available: %v", err)
	}
	l := New(Config{
		Cores:        "0",
		WorkerBinary: falseBin,
		MaxRestarts:  1,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.Run(ctx); err == nil {
		t.Fatal("Run() = nil, want error when a worker exhausts its restart budget")
	}
	select {
	case f := <-l.Failures:
		if f.Core != 0 {
			t.Fatalf("Failure.Core = %d, want 0", f.Core)
		}
	default:
		t.Fatal("expected a Failure to be reported on l.Failures")
	}
}
