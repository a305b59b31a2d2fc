// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"math/rand"

	"github.com/google/goafl/pkg/input"
)

// GapFill operates on a GeneralizedInput's template: it picks a Gap item and
// fills it with bytes drawn from a token pool, leaving Bytes items alone.
// Mutating at the template level sets the input's dirty flag so Bytes()
// materializes the filled template, which is what distinguishes this from
// the byte-level mutators in primitives.go.
type GapFill struct {
	Tokens [][]byte
}

func (GapFill) Name() string { return "grimoire_gap_fill" }

// MutateGeneralized fills one randomly chosen gap in g's template with a
// random token, returning Mutated if a gap was found and filled.
func (gf GapFill) MutateGeneralized(r *rand.Rand, g *input.GeneralizedInput) Result {
	template := g.Template()
	if len(template) == 0 || len(gf.Tokens) == 0 {
		return Skipped
	}
	var gaps []int
	for i, item := range template {
		if item.Kind == input.ItemGap {
			gaps = append(gaps, i)
		}
	}
	if len(gaps) == 0 {
		return Skipped
	}
	idx := gaps[r.Intn(len(gaps))]
	token := gf.Tokens[r.Intn(len(gf.Tokens))]

	out := make([]input.Item, 0, len(template)+1)
	out = append(out, template[:idx]...)
	out = append(out, input.Item{Kind: input.ItemBytes, Bytes: append([]byte{}, token...)})
	out = append(out, template[idx+1:]...)

	g.SetTemplate(out)
	return Mutated
}
