package content

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const hooksPost = `---
title: Building a fetch hook
date: 2023-04-02
summary: Loading, error and cancellation in forty lines.
tags: [react, hooks]
---

import Callout from '../components/Callout'

Fetching data in an effect looks simple until the inputs change.

<Callout>Remember to abort.</Callout>

` + "```js\nconst controller = new AbortController()\n```\n"

func writePost(t *testing.T, dir, name, src string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParsePost(t *testing.T) {
	post, err := ParsePost("content/fetch-hook.mdx", []byte(hooksPost))
	if err != nil {
		t.Fatal(err)
	}
	if post.Slug != "fetch-hook" {
		t.Errorf("Slug = %q, want fetch-hook", post.Slug)
	}
	if post.Title != "Building a fetch hook" {
		t.Errorf("Title = %q", post.Title)
	}
	if want := time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC); !post.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", post.Date, want)
	}
	if len(post.Tags) != 2 || post.Tags[0] != "react" {
		t.Errorf("Tags = %v", post.Tags)
	}
	if post.ReadingMinutes != 1 {
		t.Errorf("ReadingMinutes = %d, want 1", post.ReadingMinutes)
	}
}

func TestParsePostSlugOverrideAndIndexFiles(t *testing.T) {
	src := "---\ntitle: Hello\nslug: hello-world\n---\nHi.\n"
	post, err := ParsePost("content/whatever.md", []byte(src))
	if err != nil {
		t.Fatal(err)
	}
	if post.Slug != "hello-world" {
		t.Errorf("Slug = %q, want hello-world", post.Slug)
	}

	post, err = ParsePost(filepath.Join("content", "css-variables", "index.mdx"), []byte("---\ntitle: Vars\n---\n"))
	if err != nil {
		t.Fatal(err)
	}
	if post.Slug != "css-variables" {
		t.Errorf("Slug = %q, want css-variables", post.Slug)
	}
}

func TestParsePostErrors(t *testing.T) {
	tests := map[string]string{
		"no front matter": "# Just a heading\n",
		"unterminated":    "---\ntitle: x\n",
		"no title":        "---\ndate: 2023-01-01\n---\nbody\n",
		"bad yaml":        "---\ntitle: [unclosed\n---\n",
	}
	for name, src := range tests {
		if _, err := ParsePost("post.md", []byte(src)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestReadingMinutesSkipsCode(t *testing.T) {
	prose := strings.Repeat("word ", 450)
	code := "```\n" + strings.Repeat("token ", 2000) + "\n```\n"
	if got := readingMinutes([]byte(prose + "\n\n" + code)); got != 3 {
		t.Errorf("readingMinutes = %d, want 3", got)
	}
}

func TestLoadSortsAndSkipsDrafts(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "old.md", "---\ntitle: Old\ndate: 2021-01-01\n---\nold\n")
	writePost(t, dir, "new.mdx", "---\ntitle: New\ndate: 2024-06-01\n---\nnew\n")
	writePost(t, dir, "wip.md", "---\ntitle: WIP\ndate: 2025-01-01\ndraft: true\n---\nwip\n")
	writePost(t, dir, "broken.md", "no front matter")
	writePost(t, dir, "notes.txt", "ignored")
	writePost(t, dir, "nested/index.md", "---\ntitle: Nested\ndate: 2022-01-01\n---\n")

	ix, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	var slugs []string
	for _, p := range ix.Posts() {
		slugs = append(slugs, p.Slug)
	}
	if got, want := strings.Join(slugs, ","), "new,nested,old"; got != want {
		t.Errorf("posts = %s, want %s", got, want)
	}
	if _, ok := ix.Lookup("wip"); ok {
		t.Error("draft should not be indexed")
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	ix, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatal(err)
	}
	if len(ix.Posts()) != 0 {
		t.Error("expected empty index")
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	ix, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ix.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	writePost(t, dir, "fresh.md", "---\ntitle: Fresh\n---\nnew post\n")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := ix.Lookup("fresh"); ok {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("index was not reloaded after a new post appeared")
}
