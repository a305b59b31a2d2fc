// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stage

import (
	"math/rand"

	"github.com/google/goafl/pkg/executor"
	"github.com/google/goafl/pkg/observer"
	"github.com/google/goafl/pkg/testcase"
)

// TracingShadowStage runs the shadow executor exactly once to populate
// cmplog observers, without evaluating feedbacks. It talks to the
// executor directly rather than through Evaluator, since this run must
// never contribute to corpus feedback.
type TracingShadowStage struct {
	shadow *executor.ShadowExecutor
	obs    *observer.Set
}

func NewTracingShadowStage(shadow *executor.ShadowExecutor, obs *observer.Set) *TracingShadowStage {
	return &TracingShadowStage{shadow: shadow, obs: obs}
}

func (s *TracingShadowStage) Name() string { return "tracing_shadow" }

func (s *TracingShadowStage) Perform(r *rand.Rand, eval Evaluator, tc *testcase.Testcase) error {
	_, err := s.shadow.Run(tc.Input(), s.obs)
	return err
}
