// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package state implements the per-worker snapshot: enough to resume a
// worker after a crash-triggered restart without losing the
// corpus/solutions durability guarantee, without replaying the whole
// campaign from scratch.
package state

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"
	"time"
)

// Snapshot is everything a restarted worker needs to pick up where the
// crashed one left off. Corpus/Solutions are addressed by directory path
// rather than serialized in place — both corpus kinds are already
// disk-backed (pkg/corpus), so the snapshot only has to remember where.
type Snapshot struct {
	Seed          int64
	CorpusDir     string
	SolutionsDir  string
	FeedbackState map[string][]byte // feedback name -> opaque gob-encoded state
	Metadata      map[string]interface{}
	ExecCount     uint64
	StartedAt     time.Time
}

// Encode serializes a Snapshot with gob. Every concrete type reachable
// through Metadata's interface{} values must have been registered via
// RegisterTypes (or gob.Register directly) before this is called, the same
// requirement gob itself imposes on any interface-valued field.
func Encode(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, fmt.Errorf("state: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return nil, fmt.Errorf("state: decode: %w", err)
	}
	return &s, nil
}

var (
	registerOnce sync.Once
	registered   []interface{}
	registerMu   sync.Mutex
)

// Register adds a concrete type to the set gob.Register is called for by
// RegisterTypes. Packages with a metadata value type (e.g.
// pkg/feedback.MaxMapFeedback's novel-index slice) call this from an init()
// so that RegisterTypes, called once at program entry, covers every type
// that can end up in Snapshot.Metadata or a testcase's metadata map.
func Register(value interface{}) {
	registerMu.Lock()
	defer registerMu.Unlock()
	registered = append(registered, value)
}

// RegisterTypes must be called exactly once, early in main(), before any
// Snapshot or testcase metadata map is encoded or decoded. It is not safe
// to call concurrently with Encode/Decode.
func RegisterTypes() {
	registerOnce.Do(func() {
		registerMu.Lock()
		defer registerMu.Unlock()
		for _, v := range registered {
			gob.Register(v)
		}
	})
}
