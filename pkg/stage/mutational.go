// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stage

import (
	"math/rand"

	"github.com/google/goafl/pkg/input"
	"github.com/google/goafl/pkg/mutator"
	"github.com/google/goafl/pkg/testcase"
)

// MutationalStage picks an iteration count from a bounded distribution
// (1 << rand(1..8)), clones the current input, applies a mutator chain,
// and evaluates each mutated clone. A chain iteration that only produced
// Skipped mutators leaves the corpus untouched ("restore on reject" —
// since mutation operates on a clone, there's nothing to actually
// restore).
type MutationalStage struct {
	chain *mutator.Chain
}

func NewMutationalStage(chain *mutator.Chain) *MutationalStage {
	return &MutationalStage{chain: chain}
}

func (s *MutationalStage) Name() string { return "mutational" }

func (s *MutationalStage) Perform(r *rand.Rand, eval Evaluator, tc *testcase.Testcase) error {
	iterations := 1 << (1 + r.Intn(8))
	base := tc.Input()
	for i := 0; i < iterations; i++ {
		clone := base.Clone()
		bytes := clone.Bytes()
		mutated, res := s.chain.Apply(r, append([]byte{}, bytes...))
		if res == mutator.Skipped {
			continue
		}
		setBytes(clone, mutated)
		clone.OnAddToCorpus()
		if _, _, err := eval.EvaluateInput(clone); err != nil {
			return err
		}
	}
	return nil
}

// setBytes updates an Input's byte view in place when it exposes a
// SetBytes method (ByteInput and GeneralizedInput both do); inputs that
// don't support in-place mutation are left untouched by the mutator chain.
func setBytes(in input.Input, data []byte) {
	if setter, ok := in.(interface{ SetBytes([]byte) }); ok {
		setter.SetBytes(data)
	}
}
