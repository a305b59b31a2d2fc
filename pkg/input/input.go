// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package input defines the opaque, serializable unit the harness
// consumes, generalized from syzkaller's *prog.Prog to byte streams so
// that the core does not depend on any particular target grammar.
package input

import (
	"crypto/sha256"
	"encoding/hex"
)

// Input is consumed by the harness. A name is derived from content so that
// two byte-identical inputs always hash to the same corpus file name.
type Input interface {
	// Name returns a stable, content-derived identifier.
	Name() string
	// Bytes returns the byte view the harness is invoked with.
	Bytes() []byte
	// Clone returns a deep, independently mutable copy.
	Clone() Input
	// OnAddToCorpus is called exactly once, just before the input becomes a
	// corpus entry; implementations use it to freeze derived state (e.g.
	// a GeneralizedInput drops its template unless it was set since the
	// last call, then clears its dirty flag).
	OnAddToCorpus()
}

// ByteInput is the simplest Input: a flat byte slice.
type ByteInput struct {
	data []byte
}

func NewByteInput(data []byte) *ByteInput {
	return &ByteInput{data: append([]byte{}, data...)}
}

func (b *ByteInput) Name() string      { return HashName(b.data) }
func (b *ByteInput) Bytes() []byte     { return b.data }
func (b *ByteInput) OnAddToCorpus()    {}
func (b *ByteInput) Clone() Input {
	return &ByteInput{data: append([]byte{}, b.data...)}
}

// SetBytes replaces the input's contents in place (used by mutators).
func (b *ByteInput) SetBytes(data []byte) { b.data = data }

// HashName derives the stable name LibAFL-style inputs use on disk:
// <sha256-hex>.
func HashName(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
