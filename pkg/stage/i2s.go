// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stage

import (
	"bytes"
	"math/rand"

	"github.com/google/goafl/pkg/observer"
	"github.com/google/goafl/pkg/testcase"
)

// I2SStage implements input-to-state replacement: consult cmplog
// metadata; for each recorded comparison (v0, v1, width) replace
// byte-slices of the current input matching v0 with v1 (and vice versa),
// evaluating each candidate.
type I2SStage struct {
	cmplog *observer.CmpLog
}

func NewI2SStage(cmplog *observer.CmpLog) *I2SStage {
	return &I2SStage{cmplog: cmplog}
}

func (s *I2SStage) Name() string { return "i2s" }

func (s *I2SStage) Perform(r *rand.Rand, eval Evaluator, tc *testcase.Testcase) error {
	base := tc.Input().Bytes()
	for _, cmp := range s.cmplog.Comparisons() {
		for _, candidate := range replaceBothWays(base, cmp.V0, cmp.V1) {
			clone := tc.Input().Clone()
			setBytes(clone, candidate)
			clone.OnAddToCorpus()
			if _, _, err := eval.EvaluateInput(clone); err != nil {
				return err
			}
		}
	}
	return nil
}

// replaceBothWays returns, for each occurrence of from in base, a candidate
// with that occurrence replaced by to, and symmetrically for to replaced by
// from — mirroring "v0 with v1 (and vice versa)".
func replaceBothWays(base, from, to []byte) [][]byte {
	var out [][]byte
	if len(from) > 0 && len(from) == len(to) {
		out = append(out, replaceAllOccurrences(base, from, to)...)
	}
	if len(to) > 0 && len(to) == len(from) {
		out = append(out, replaceAllOccurrences(base, to, from)...)
	}
	return out
}

func replaceAllOccurrences(base, from, to []byte) [][]byte {
	var out [][]byte
	start := 0
	for {
		idx := bytes.Index(base[start:], from)
		if idx < 0 {
			break
		}
		pos := start + idx
		candidate := append([]byte{}, base...)
		copy(candidate[pos:pos+len(to)], to)
		out = append(out, candidate)
		start = pos + len(from)
	}
	return out
}
