package content

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"portfolio-views/middlewares"

	"github.com/fsnotify/fsnotify"
)

// Index is the set of published posts under a directory.
type Index struct {
	dir string

	mu     sync.RWMutex
	posts  []Post
	bySlug map[string]Post
}

// Load indexes dir. A missing directory gives an empty index.
func Load(dir string) (*Index, error) {
	ix := &Index{dir: dir}
	if err := ix.Reload(); err != nil {
		return nil, err
	}
	return ix, nil
}

func isPostFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".mdx":
		return true
	}
	return false
}

// Reload re-reads every post. Files that fail to parse are logged and
// skipped; drafts are left out.
func (ix *Index) Reload() error {
	var posts []Post
	err := filepath.WalkDir(ix.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isPostFile(path) {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		post, err := ParsePost(path, src)
		if err != nil {
			middlewares.ErrorLogger.Printf("skipping post: %v", err)
			return nil
		}
		if !post.Draft {
			posts = append(posts, post)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].Date.Equal(posts[j].Date) {
			return posts[i].Date.After(posts[j].Date)
		}
		return posts[i].Slug < posts[j].Slug
	})
	bySlug := make(map[string]Post, len(posts))
	for _, p := range posts {
		bySlug[p.Slug] = p
	}

	ix.mu.Lock()
	ix.posts = posts
	ix.bySlug = bySlug
	ix.mu.Unlock()
	return nil
}

// Posts returns published posts, newest first.
func (ix *Index) Posts() []Post {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]Post(nil), ix.posts...)
}

func (ix *Index) Lookup(slug string) (Post, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	p, ok := ix.bySlug[slug]
	return p, ok
}

// reloadDelay coalesces the burst of events an editor save produces.
const reloadDelay = 200 * time.Millisecond

// Watch reloads the index whenever a file under the directory changes. It
// blocks until ctx is done.
func (ix *Index) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	err = filepath.WalkDir(ix.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					watcher.Add(ev.Name)
				}
			}
			timer.Reset(reloadDelay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			middlewares.ErrorLogger.Printf("content watcher: %v", err)
		case <-timer.C:
			if err := ix.Reload(); err != nil {
				middlewares.ErrorLogger.Printf("content reload: %v", err)
				continue
			}
			middlewares.AuditLogger.Printf("content reloaded: %d posts", len(ix.Posts()))
		}
	}
}
