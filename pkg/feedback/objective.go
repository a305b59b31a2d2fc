// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package feedback

import (
	"github.com/google/goafl/pkg/executor"
	"github.com/google/goafl/pkg/observer"
	"github.com/google/goafl/pkg/testcase"
)

// MetadataKeyObjectiveKind records which objective fired, for triage.
const MetadataKeyObjectiveKind = "feedback.objective.kind"

// TimeoutFeedback is an objective: interesting iff the execution hit the
// executor's timeout.
type TimeoutFeedback struct{}

func (TimeoutFeedback) Name() string { return "timeout" }

func (TimeoutFeedback) IsInteresting(obs *observer.Set, exitKind executor.ExitKind) (bool, error) {
	return exitKind == executor.Timeout, nil
}

func (TimeoutFeedback) AppendMetadata(tc *testcase.Testcase) {
	tc.SetMetadata(MetadataKeyObjectiveKind, "timeout")
}

// CrashFeedback is an objective: interesting iff the execution crashed, ran
// out of memory, or a sanitizer observer reported a pending error.
type CrashFeedback struct {
	AsanObserverName string // optional; empty disables the sanitizer check
}

func (CrashFeedback) Name() string { return "crash" }

func (f CrashFeedback) IsInteresting(obs *observer.Set, exitKind executor.ExitKind) (bool, error) {
	if exitKind == executor.Crash || exitKind == executor.Oom {
		return true, nil
	}
	if f.AsanObserverName == "" {
		return false, nil
	}
	o, ok := obs.Get(f.AsanObserverName)
	if !ok {
		return false, nil
	}
	asan, ok := o.(*observer.AsanErrors)
	return ok && asan.HasError(), nil
}

func (CrashFeedback) AppendMetadata(tc *testcase.Testcase) {
	tc.SetMetadata(MetadataKeyObjectiveKind, "crash")
}
