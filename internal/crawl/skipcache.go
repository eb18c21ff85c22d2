package crawl

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// SkipCache remembers the content hashes of files a previous run already
// compressed to their floor, so re-running over the same tree does not
// redo hours of squeeze work for zero savings. The backing file is one
// 16-digit hex hash per line; an unreadable or missing file simply
// starts the cache empty.
type SkipCache struct {
	mu   sync.Mutex
	path string
	seen map[uint64]bool
}

// LoadSkipCache reads the cache at path, or returns an empty cache when
// the file does not exist yet.
func LoadSkipCache(path string) *SkipCache {
	c := &SkipCache{path: path, seen: make(map[uint64]bool)}
	f, err := os.Open(path)
	if err != nil {
		return c
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		h, err := strconv.ParseUint(sc.Text(), 16, 64)
		if err != nil {
			continue
		}
		c.seen[h] = true
	}
	return c
}

// Contains reports whether data's hash was recorded by a prior run.
func (c *SkipCache) Contains(data []byte) bool {
	h := xxhash.Sum64(data)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[h]
}

// Add records data's hash. Safe to call from multiple workers.
func (c *SkipCache) Add(data []byte) {
	h := xxhash.Sum64(data)
	c.mu.Lock()
	c.seen[h] = true
	c.mu.Unlock()
}

// Save writes the cache back to its file, sorted so diffs stay stable.
func (c *SkipCache) Save() error {
	c.mu.Lock()
	hashes := make([]uint64, 0, len(c.seen))
	for h := range c.seen {
		hashes = append(hashes, h)
	}
	c.mu.Unlock()
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, h := range hashes {
		fmt.Fprintf(w, "%016x\n", h)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
