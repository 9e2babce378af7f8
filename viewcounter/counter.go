// Package viewcounter displays page view counts and records new views.
package viewcounter

import (
	"sync"

	"portfolio-views/models"
)

// CountFor returns the count stored for slug in views, or 0 when slug has
// no record.
func CountFor(views []models.ViewRecord, slug string) uint {
	for _, v := range views {
		if v.Slug == slug {
			return v.Count
		}
	}
	return 0
}

// Props are the inputs of one render.
type Props struct {
	Slug  string
	Views []models.ViewRecord
	Track bool
}

type trackKey struct {
	slug  string
	track bool
}

// Counter is one mounted view counter. The first render, and every render
// whose slug or tracking flag differs from the previous one, counts as a
// change; a change with Track set sends exactly one increment.
type Counter struct {
	tracker *Tracker

	mu        sync.Mutex
	rendered  bool
	unmounted bool
	last      trackKey
}

// New mounts a Counter. tracker may be nil for a display-only counter.
func New(tracker *Tracker) *Counter {
	return &Counter{tracker: tracker}
}

// Render returns the count to display for p.Slug and records a view when
// the tracking inputs changed.
func (c *Counter) Render(p Props) uint {
	if c.changed(trackKey{slug: p.Slug, track: p.Track}) && p.Track && c.tracker != nil {
		c.tracker.Track(p.Slug)
	}
	return CountFor(p.Views, p.Slug)
}

func (c *Counter) changed(key trackKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted {
		return false
	}
	changed := !c.rendered || key != c.last
	c.rendered = true
	c.last = key
	return changed
}

// Unmount ends the mount. Later renders only display.
func (c *Counter) Unmount() {
	c.mu.Lock()
	c.unmounted = true
	c.mu.Unlock()
}
