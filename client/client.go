// Package client talks to the views API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"portfolio-views/content"
	"portfolio-views/models"

	"github.com/gregjones/httpcache"
)

const userAgent = "portfolio-views-client/1.0"

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("views api: %d %s", e.Status, e.Message)
}

// PostViews is a post together with its view count.
type PostViews struct {
	content.Post
	Views uint `json:"views"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which times out after 10s.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithResponseCache keeps responses in memory and revalidates them according
// to their Cache-Control headers.
func WithResponseCache() Option {
	return func(c *Client) {
		t := httpcache.NewMemoryCacheTransport()
		if c.http.Transport != nil {
			t.Transport = c.http.Transport
		}
		hc := *c.http
		hc.Transport = t
		c.http = &hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListViews(ctx context.Context) ([]models.ViewRecord, error) {
	var views []models.ViewRecord
	err := c.do(ctx, http.MethodGet, "/views", &views)
	return views, err
}

// GetViews returns the count for slug. With track set the server records a
// view as well.
func (c *Client) GetViews(ctx context.Context, slug string, track bool) (uint, error) {
	path := "/views/" + url.PathEscape(slug)
	if track {
		path += "?track=true"
	}
	var record models.ViewRecord
	if err := c.do(ctx, http.MethodGet, path, &record); err != nil {
		return 0, err
	}
	return record.Count, nil
}

// Increment asks the server to record one view of slug. The server accepts
// it before it is stored.
func (c *Client) Increment(ctx context.Context, slug string) error {
	return c.do(ctx, http.MethodPost, "/views/"+url.PathEscape(slug), nil)
}

func (c *Client) ListPosts(ctx context.Context) ([]PostViews, error) {
	var posts []PostViews
	err := c.do(ctx, http.MethodGet, "/posts", &posts)
	return posts, err
}

func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	// httpcache stores a response once its body is read to EOF.
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &body) != nil || body.Error == "" {
			body.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: body.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
