// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/goafl/pkg/input"
	"github.com/google/goafl/pkg/osutil"
	"github.com/google/goafl/pkg/testcase"
)

// OnDiskCorpus keeps every testcase's bytes mirrored to a file under dir,
// named after the Input's content hash, while still holding the Testcase
// struct (and its Input) resident in memory.
type OnDiskCorpus struct {
	mu      sync.RWMutex
	dir     string
	entries map[int]*testcase.Testcase
	nextID  int
	current int
}

func NewOnDiskCorpus(dir string) (*OnDiskCorpus, error) {
	if err := osutil.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("corpus: failed to create %q: %w", dir, err)
	}
	return &OnDiskCorpus{dir: dir, entries: make(map[int]*testcase.Testcase), current: -1}, nil
}

func (c *OnDiskCorpus) Add(tc *testcase.Testcase) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.persist(tc)
	c.entries[id] = tc
	return id
}

func (c *OnDiskCorpus) persist(tc *testcase.Testcase) {
	path := filepath.Join(c.dir, tc.Input().Name())
	if err := osutil.WriteFile(path, tc.Input().Bytes()); err == nil {
		tc.SetPath(path)
	}
}

func (c *OnDiskCorpus) Get(id int) (*testcase.Testcase, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tc, ok := c.entries[id]
	return tc, ok
}

func (c *OnDiskCorpus) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *OnDiskCorpus) Current() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *OnDiskCorpus) SetCurrent(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = id
}

func (c *OnDiskCorpus) Remove(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok {
		return fmt.Errorf("corpus: no such id %d", id)
	}
	delete(c.entries, id)
	if c.current == id {
		c.current = -1
	}
	return nil
}

func (c *OnDiskCorpus) All() []*testcase.Testcase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*testcase.Testcase, 0, len(c.entries))
	for _, tc := range c.entries {
		out = append(out, tc)
	}
	return out
}

func (c *OnDiskCorpus) Ids() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]int, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	return ids
}

// LoadSeeds populates the corpus from every regular file under dir,
// wrapping each file's bytes as a ByteInput seed testcase.
func LoadSeeds(c Corpus, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("corpus: failed to read seed %q: %w", path, err)
		}
		LoadBytes(c, data)
		return nil
	})
}

// LoadBytes wraps raw bytes as a seed Testcase and adds it to c.
func LoadBytes(c Corpus, data []byte) int {
	tc := testcase.New(input.NewByteInput(data))
	tc.Input().OnAddToCorpus()
	return c.Add(tc)
}
