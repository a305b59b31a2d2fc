// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package mutator

import (
	"math/rand"
	"testing"

	"github.com/google/goafl/pkg/input"
	"github.com/stretchr/testify/assert"
)

func TestBitFlipSkipsEmpty(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	_, res := BitFlip{}.Mutate(r, nil)
	assert.Equal(t, Skipped, res)
}

func TestBitFlipMutates(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	buf := []byte{0x00}
	out, res := BitFlip{}.Mutate(r, buf)
	assert.Equal(t, Mutated, res)
	assert.NotEqual(t, byte(0x00), out[0])
}

func TestSpliceCombinesDonor(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	buf := []byte("AAAA")
	s := Splice{Donor: []byte("BBBB")}
	out, res := s.Mutate(r, buf)
	assert.Equal(t, Mutated, res)
	assert.NotEmpty(t, out)
}

func TestTokenInsertSkipsWithoutTokens(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	_, res := TokenInsert{}.Mutate(r, []byte("abc"))
	assert.Equal(t, Skipped, res)
}

func TestTokenInsertInsertsToken(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	ti := TokenInsert{Tokens: [][]byte{[]byte("TOK")}}
	out, res := ti.Mutate(r, []byte("abc"))
	assert.Equal(t, Mutated, res)
	assert.Contains(t, string(out), "TOK")
}

func TestChainDiscardsWhenAllSkip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	c := NewChain([]Mutator{TokenInsert{}}, 3)
	_, res := c.Apply(r, []byte("abc"))
	assert.Equal(t, Skipped, res)
}

func TestChainMutatesWhenAnyMutator(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	c := NewChain([]Mutator{BitFlip{}}, 3)
	_, res := c.Apply(r, []byte("abc"))
	assert.Equal(t, Mutated, res)
}

func TestGapFillFillsGap(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	g := input.NewGeneralizedInput([]byte("abc"))
	g.SetTemplate([]input.Item{
		{Kind: input.ItemBytes, Bytes: []byte("pre")},
		{Kind: input.ItemGap},
	})
	gf := GapFill{Tokens: [][]byte{[]byte("FILL")}}
	res := gf.MutateGeneralized(r, g)
	assert.Equal(t, Mutated, res)
	assert.Equal(t, []byte("preFILL"), g.Bytes())
}

func TestGapFillSkipsWithoutGap(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	g := input.NewGeneralizedInput([]byte("abc"))
	g.SetTemplate([]input.Item{{Kind: input.ItemBytes, Bytes: []byte("abc")}})
	gf := GapFill{Tokens: [][]byte{[]byte("FILL")}}
	res := gf.MutateGeneralized(r, g)
	assert.Equal(t, Skipped, res)
}
