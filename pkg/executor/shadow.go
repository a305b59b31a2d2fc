// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package executor

import (
	"github.com/google/goafl/pkg/input"
	"github.com/google/goafl/pkg/observer"
)

// ShadowExecutor wraps a secondary, cmplog-instrumented harness run whose
// sole purpose is to populate a CmpLog observer for the TracingShadow
// stage: run the shadow executor exactly once to populate cmplog
// observers, without evaluating feedbacks. It never contributes to corpus
// feedback itself.
type ShadowExecutor struct {
	primary Executor
	shadow  Harness
	cmplog  *observer.CmpLog
}

func NewShadowExecutor(primary Executor, shadow Harness, cmplog *observer.CmpLog) *ShadowExecutor {
	return &ShadowExecutor{primary: primary, shadow: shadow, cmplog: cmplog}
}

// Run delegates to the primary executor for the ExitKind/observer contract,
// then separately drives the shadow harness to populate cmplog. The shadow
// run's own exit status never overrides the primary's.
func (s *ShadowExecutor) Run(in input.Input, obs *observer.Set) (ExitKind, error) {
	kind, err := s.primary.Run(in, obs)
	if kind != Ok {
		return kind, err
	}
	s.cmplog.PreExec()
	_ = s.shadow(in)
	s.cmplog.PostExec()
	return kind, err
}

// CmpLog returns the observer populated by the last shadow run.
func (s *ShadowExecutor) CmpLog() *observer.CmpLog { return s.cmplog }
