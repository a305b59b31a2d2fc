// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneralizedInputBytesFollowsDirty(t *testing.T) {
	g := NewGeneralizedInput([]byte("rawbytes"))
	assert.Equal(t, []byte("rawbytes"), g.Bytes())

	g.SetTemplate([]Item{
		{Kind: ItemBytes, Bytes: []byte("AA")},
		{Kind: ItemGap},
		{Kind: ItemBytes, Bytes: []byte("BB")},
	})
	assert.True(t, g.Dirty())
	assert.Equal(t, []byte("AABB"), g.Bytes())
	assert.Equal(t, []byte("rawbytes"), g.RawBytes())
}

func TestGeneralizedInputOnAddToCorpusClearsWhenClean(t *testing.T) {
	g := NewGeneralizedInput([]byte("abc"))
	g.SetTemplate([]Item{{Kind: ItemBytes, Bytes: []byte("abc")}})
	g.SetDirty(false)
	g.OnAddToCorpus()
	assert.Nil(t, g.Template())
	assert.False(t, g.Dirty())
}

func TestGeneralizedInputOnAddToCorpusKeepsWhenDirty(t *testing.T) {
	g := NewGeneralizedInput([]byte("abc"))
	template := []Item{{Kind: ItemBytes, Bytes: []byte("abc")}}
	g.SetTemplate(template)
	g.OnAddToCorpus()
	assert.NotNil(t, g.Template())
	assert.False(t, g.Dirty())
}

func TestGeneralizedInputCloneDeep(t *testing.T) {
	g := NewGeneralizedInput([]byte("abc"))
	g.SetTemplate([]Item{{Kind: ItemBytes, Bytes: []byte("abc")}})
	clone := g.Clone().(*GeneralizedInput)
	clone.Template()[0].Bytes[0] = 'z'
	assert.Equal(t, byte('a'), g.Template()[0].Bytes[0])
}

func TestTemplateFromGapsCoalesces(t *testing.T) {
	a, b := byte('a'), byte('b')
	v := []*byte{&a, &b, nil, nil}
	items := TemplateFromGaps(v)
	assert.Equal(t, []Item{
		{Kind: ItemGap},
		{Kind: ItemBytes, Bytes: []byte("ab")},
		{Kind: ItemGap},
		{Kind: ItemGap},
	}, items)
}

func TestTemplateLen(t *testing.T) {
	items := []Item{
		{Kind: ItemBytes, Bytes: []byte("abc")},
		{Kind: ItemGap},
	}
	assert.Equal(t, 4, TemplateLen(items))
}
