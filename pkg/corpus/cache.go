// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"container/list"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/goafl/pkg/input"
	"github.com/google/goafl/pkg/osutil"
	"github.com/google/goafl/pkg/testcase"
)

// record is what CacheOnDiskCorpus keeps resident always; the Testcase's
// Input itself may be evicted and reloaded from path on demand.
type record struct {
	path     string
	metadata *testcase.Testcase // resident only while cached; nil bytes once evicted
	elem     *list.Element
}

// CacheOnDiskCorpus mirrors every testcase to disk (like OnDiskCorpus) but
// only keeps a bounded number of Input byte buffers resident at once,
// evicting the least-recently-used entry once the cache exceeds maxCache
// ("cache-on-disk (bounded LRU)").
type CacheOnDiskCorpus struct {
	mu       sync.Mutex
	dir      string
	maxCache int

	entries map[int]*record
	nextID  int
	current int

	lru *list.List // front = most recently used id
}

func NewCacheOnDiskCorpus(dir string, maxCache int) (*CacheOnDiskCorpus, error) {
	if err := osutil.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("corpus: failed to create %q: %w", dir, err)
	}
	return &CacheOnDiskCorpus{
		dir:      dir,
		maxCache: maxCache,
		entries:  make(map[int]*record),
		current:  -1,
		lru:      list.New(),
	}, nil
}

func (c *CacheOnDiskCorpus) Add(tc *testcase.Testcase) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++

	path := ""
	if dir := c.dir; dir != "" {
		p := filepath.Join(dir, tc.Input().Name())
		if err := osutil.WriteFile(p, tc.Input().Bytes()); err == nil {
			path = p
			tc.SetPath(p)
		}
	}
	rec := &record{path: path, metadata: tc}
	c.entries[id] = rec
	c.touch(id, rec)
	c.evictIfNeeded()
	return id
}

// Get loads id's Testcase, reloading its Input bytes from disk if it had
// been evicted.
func (c *CacheOnDiskCorpus) Get(id int) (*testcase.Testcase, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	if rec.metadata == nil {
		tc, err := loadTestcase(rec.path)
		if err != nil {
			return nil, false
		}
		rec.metadata = tc
	}
	c.touch(id, rec)
	c.evictIfNeeded()
	return rec.metadata, true
}

func (c *CacheOnDiskCorpus) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *CacheOnDiskCorpus) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *CacheOnDiskCorpus) SetCurrent(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = id
}

func (c *CacheOnDiskCorpus) Remove(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.entries[id]
	if !ok {
		return fmt.Errorf("corpus: no such id %d", id)
	}
	if rec.elem != nil {
		c.lru.Remove(rec.elem)
	}
	delete(c.entries, id)
	if c.current == id {
		c.current = -1
	}
	return nil
}

func (c *CacheOnDiskCorpus) All() []*testcase.Testcase {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*testcase.Testcase, 0, len(c.entries))
	for id, rec := range c.entries {
		if rec.metadata == nil {
			if tc, err := loadTestcase(rec.path); err == nil {
				rec.metadata = tc
			} else {
				continue
			}
		}
		_ = id
		out = append(out, rec.metadata)
	}
	return out
}

func (c *CacheOnDiskCorpus) Ids() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	return ids
}

// touch moves id to the front of the LRU list (most recently used).
func (c *CacheOnDiskCorpus) touch(id int, rec *record) {
	if rec.elem != nil {
		c.lru.Remove(rec.elem)
	}
	rec.elem = c.lru.PushFront(id)
}

// evictIfNeeded drops the in-memory Input of the least-recently-used
// entries until the resident set is back within maxCache, writing back
// nothing extra since Add already persisted the bytes on insertion
// (dirty — eviction is a pure memory-reclaim step here).
func (c *CacheOnDiskCorpus) evictIfNeeded() {
	if c.maxCache <= 0 {
		return
	}
	resident := 0
	for _, rec := range c.entries {
		if rec.metadata != nil {
			resident++
		}
	}
	for resident > c.maxCache {
		back := c.lru.Back()
		if back == nil {
			return
		}
		id := back.Value.(int)
		rec := c.entries[id]
		c.lru.Remove(back)
		rec.elem = nil
		if rec.path == "" {
			continue // nowhere to reload from; keep it resident
		}
		rec.metadata = nil
		resident--
	}
}

func loadTestcase(path string) (*testcase.Testcase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tc := testcase.New(input.NewByteInput(data))
	tc.SetPath(path)
	return tc, nil
}
