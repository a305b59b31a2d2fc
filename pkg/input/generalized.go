// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package input

// ItemKind distinguishes a literal run of bytes from a grammar-level
// insertion point in a GeneralizedInput's template.
type ItemKind int

const (
	ItemBytes ItemKind = iota
	ItemGap
)

// Item is one element of a GeneralizedInput's template, ported from
// original_source/libafl/src/inputs/generalized.rs's GeneralizedItem.
type Item struct {
	Kind  ItemKind
	Bytes []byte // only meaningful when Kind == ItemBytes
}

// GeneralizedInput adds an optional template of {Bytes|Gap} items to a
// flat byte input. While Dirty is true, Bytes() materializes the
// template; otherwise it returns the raw bytes untouched, so byte-level
// mutators keep working on inputs that also carry a template.
type GeneralizedInput struct {
	raw         []byte
	generalized []Item
	dirty       bool
}

func NewGeneralizedInput(raw []byte) *GeneralizedInput {
	return &GeneralizedInput{raw: append([]byte{}, raw...)}
}

func (g *GeneralizedInput) Name() string {
	return HashName(g.raw)
}

func (g *GeneralizedInput) Bytes() []byte {
	if g.dirty {
		return g.templateToBytes()
	}
	return g.raw
}

// RawBytes always returns the flat byte view, regardless of Dirty.
func (g *GeneralizedInput) RawBytes() []byte { return g.raw }

func (g *GeneralizedInput) SetBytes(raw []byte) { g.raw = raw }

// Dirty reports whether the last mutation was template-level (Grimoire
// style) rather than a plain byte-level edit.
func (g *GeneralizedInput) Dirty() bool { return g.dirty }

func (g *GeneralizedInput) SetDirty(v bool) { g.dirty = v }

func (g *GeneralizedInput) Clone() Input {
	clone := &GeneralizedInput{
		raw:   append([]byte{}, g.raw...),
		dirty: g.dirty,
	}
	if g.generalized != nil {
		clone.generalized = make([]Item, len(g.generalized))
		for i, it := range g.generalized {
			clone.generalized[i] = Item{Kind: it.Kind, Bytes: append([]byte{}, it.Bytes...)}
		}
	}
	return clone
}

// OnAddToCorpus drops the template for inputs that were not mutated at the
// template level, mirroring wrapped_as_testcase's "remove generalized for
// inputs generated with bit-level mutations".
func (g *GeneralizedInput) OnAddToCorpus() {
	if !g.dirty {
		g.generalized = nil
	}
	g.dirty = false
}

// Template returns the current {Bytes|Gap} sequence, or nil if none was set.
func (g *GeneralizedInput) Template() []Item { return g.generalized }

// SetTemplate installs a new template and marks the input dirty.
func (g *GeneralizedInput) SetTemplate(items []Item) {
	g.generalized = items
	g.dirty = true
}

// TemplateFromGaps builds a template from a slice the same length as raw,
// where a nil entry marks a gap and non-nil entries are literal bytes; runs
// of contiguous literal entries are coalesced into one Bytes item. A leading
// Gap is added unless v starts with a nil entry, each nil entry yields its
// own Gap (consecutive gaps are not merged), and the result always ends in
// a Gap.
func TemplateFromGaps(v []*byte) []Item {
	var items []Item
	var bytes []byte
	flush := func() {
		if len(bytes) > 0 {
			items = append(items, Item{Kind: ItemBytes, Bytes: append([]byte{}, bytes...)})
			bytes = bytes[:0]
		}
	}
	if len(v) == 0 || v[0] != nil {
		items = append(items, Item{Kind: ItemGap})
	}
	for _, e := range v {
		if e == nil {
			flush()
			items = append(items, Item{Kind: ItemGap})
		} else {
			bytes = append(bytes, *e)
		}
	}
	flush()
	if len(items) == 0 || items[len(items)-1].Kind != ItemGap {
		items = append(items, Item{Kind: ItemGap})
	}
	return items
}

// TemplateLen returns the template length counting each Gap as one unit
// (matching generalized_len). This is the materialized length from Bytes()
// plus the number of Gaps, since materialization drops gaps.
func TemplateLen(items []Item) int {
	n := 0
	for _, it := range items {
		if it.Kind == ItemBytes {
			n += len(it.Bytes)
		} else {
			n++
		}
	}
	return n
}

func (g *GeneralizedInput) templateToBytes() []byte {
	var out []byte
	for _, it := range g.generalized {
		if it.Kind == ItemBytes {
			out = append(out, it.Bytes...)
		}
	}
	return out
}
