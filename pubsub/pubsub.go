package pubsub

import (
	"context"
	"encoding/json"

	"portfolio-views/middlewares"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis channel every event travels on.
const Channel = "events"

// EventViewsFlushed is published after a batch of views reached the store.
// Its data carries the flushed slugs under "slugs".
const EventViewsFlushed = "views_flushed"

type HandlerFunc func(data map[string]interface{})

type PubSub struct {
	client *redis.Client
}

func NewPubSub(client *redis.Client) *PubSub {
	return &PubSub{client: client}
}

type message struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

// Publish an event
func (ps *PubSub) Publish(ctx context.Context, event string, data map[string]interface{}) error {
	bytes, err := json.Marshal(message{Event: event, Data: data})
	if err != nil {
		return err
	}
	return ps.client.Publish(ctx, Channel, bytes).Err()
}

// Subscribe calls handler for every event named event until ctx is done.
// It returns once the subscription is established.
func (ps *PubSub) Subscribe(ctx context.Context, event string, handler HandlerFunc) error {
	sub := ps.client.Subscribe(ctx, Channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var payload message
				if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
					middlewares.ErrorLogger.Printf("pubsub decode: %v", err)
					continue
				}
				if payload.Event == event {
					handler(payload.Data)
				}
			}
		}
	}()
	return nil
}
