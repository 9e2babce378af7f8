// Package content indexes the site's markdown and MDX posts so counts can be
// listed next to them. It reads front matter and word counts only; rendering
// is left to the site.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// WordsPerMinute is the reading speed used for ReadingMinutes.
const WordsPerMinute = 200

var errNoFrontMatter = errors.New("missing front matter")

// Post is one entry of the index.
type Post struct {
	Slug           string    `json:"slug"`
	Title          string    `json:"title"`
	Date           time.Time `json:"date"`
	Summary        string    `json:"summary,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	Draft          bool      `json:"-"`
	ReadingMinutes int       `json:"reading_minutes"`
}

type frontMatter struct {
	Slug    string    `yaml:"slug"`
	Title   string    `yaml:"title"`
	Date    time.Time `yaml:"date"`
	Summary string    `yaml:"summary"`
	Tags    []string  `yaml:"tags"`
	Draft   bool      `yaml:"draft"`
}

var markdown = goldmark.New()

// ParsePost reads a post file. The slug defaults to the file name, or to the
// directory name for index files.
func ParsePost(path string, src []byte) (Post, error) {
	meta, body, err := splitFrontMatter(src)
	if err != nil {
		return Post{}, fmt.Errorf("%s: %w", path, err)
	}
	var fm frontMatter
	if err := yaml.Unmarshal(meta, &fm); err != nil {
		return Post{}, fmt.Errorf("%s: front matter: %w", path, err)
	}
	if fm.Title == "" {
		return Post{}, fmt.Errorf("%s: front matter has no title", path)
	}

	slug := fm.Slug
	if slug == "" {
		slug = slugFromPath(path)
	}
	return Post{
		Slug:           slug,
		Title:          fm.Title,
		Date:           fm.Date,
		Summary:        fm.Summary,
		Tags:           fm.Tags,
		Draft:          fm.Draft,
		ReadingMinutes: readingMinutes(body),
	}, nil
}

func slugFromPath(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "index" {
		return filepath.Base(filepath.Dir(path))
	}
	return name
}

func splitFrontMatter(src []byte) (meta, body []byte, err error) {
	src = bytes.TrimPrefix(src, []byte("\xef\xbb\xbf"))
	src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(src, []byte("---\n")) {
		return nil, nil, errNoFrontMatter
	}
	rest := src[len("---\n"):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, nil, errNoFrontMatter
	}
	meta = rest[:end]
	body = rest[end+len("\n---"):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return meta, body, nil
}

// readingMinutes counts the words of prose text nodes. Code blocks and raw
// HTML/JSX are not counted.
func readingMinutes(body []byte) int {
	doc := markdown.Parser().Parse(text.NewReader(body))

	words := 0
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*ast.Text); ok {
			words += len(strings.Fields(string(t.Segment.Value(body))))
		}
		return ast.WalkContinue, nil
	})

	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
