// Package crawl discovers the image files a run will operate on. Roots
// are walked recursively; list files contribute explicit paths or
// ** glob patterns, one per line. The result is a sorted, de-duplicated
// set of paths whose extensions look like supported images — the actual
// type of each file is verified later from its header bytes.
package crawl

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoImages is returned when crawling finds nothing to do.
var ErrNoImages = errors.New("crawl: no image files found")

// ErrListFile is returned when a list file cannot be read.
var ErrListFile = errors.New("crawl: unreadable list file")

// supported extensions, lower-cased.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// Crawler accumulates roots and list files until Crawl is called, so
// CLI argument ordering never matters. Symlinked files are followed by
// default.
type Crawler struct {
	symlinks bool
	paths    []string
	lists    []string
}

// New returns an empty Crawler that follows symlinks.
func New() *Crawler {
	return &Crawler{symlinks: true}
}

// NoSymlinks makes the crawl skip symlinked files and directories.
func (c *Crawler) NoSymlinks() { c.symlinks = false }

// PushPath queues a root path (file or directory) for crawling.
func (c *Crawler) PushPath(path string) { c.paths = append(c.paths, path) }

// PushList queues a list file whose lines are paths or glob patterns.
func (c *Crawler) PushList(path string) { c.lists = append(c.lists, path) }

// Crawl resolves everything queued so far into a sorted, de-duplicated
// path list, or ErrNoImages if the search comes up empty.
func (c *Crawler) Crawl() ([]string, error) {
	seen := make(map[string]bool)

	for _, list := range c.lists {
		if err := c.crawlList(list, seen); err != nil {
			return nil, err
		}
	}
	for _, root := range c.paths {
		if err := c.crawlRoot(root, seen); err != nil {
			return nil, err
		}
	}

	if len(seen) == 0 {
		return nil, ErrNoImages
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// crawlList reads one path or glob pattern per line, expanding globs
// with doublestar so `assets/**/*.png` style entries work.
func (c *Crawler) crawlList(list string, seen map[string]bool) error {
	f, err := os.Open(list)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrListFile, list)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.ContainsAny(line, "*?[") {
			matches, err := doublestar.FilepathGlob(line)
			if err != nil {
				return fmt.Errorf("%w: bad pattern %q in %s", ErrListFile, line, list)
			}
			for _, m := range matches {
				c.consider(m, seen)
			}
			continue
		}
		c.consider(line, seen)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: %s", ErrListFile, list)
	}
	return nil
}

func (c *Crawler) crawlRoot(root string, seen map[string]bool) error {
	info, err := os.Lstat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		c.consider(root, seen)
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		c.consider(path, seen)
		return nil
	})
}

// consider records path if its extension matches a supported image type
// and, when symlink following is off, it is a regular file all the way
// down.
func (c *Crawler) consider(path string, seen map[string]bool) {
	if !imageExts[strings.ToLower(filepath.Ext(path))] {
		return
	}
	info, err := os.Lstat(path)
	if err != nil {
		return
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		if !c.symlinks {
			return
		}
		resolved, err := os.Stat(path)
		if err != nil || !resolved.Mode().IsRegular() {
			return
		}
	} else if !info.Mode().IsRegular() {
		return
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	seen[path] = true
}
