package pubsub

import (
	"context"
	"fmt"
)

// PublishFlushed announces that slugs were written to the store.
func (ps *PubSub) PublishFlushed(ctx context.Context, slugs []string) error {
	return ps.Publish(ctx, EventViewsFlushed, map[string]interface{}{"slugs": slugs})
}

// FlushedSlugs reads the slugs out of a views_flushed event.
func FlushedSlugs(data map[string]interface{}) ([]string, error) {
	raw, ok := data["slugs"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("views_flushed event without slugs")
	}
	slugs := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("views_flushed slug %v is not a string", v)
		}
		slugs = append(slugs, s)
	}
	return slugs, nil
}
