// Package mq relays change events between server instances over Redis pub/sub.
package mq

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"lifeassistant/models"
	"lifeassistant/store"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "changes:"

// Channel names the pub/sub channel of one user's changes.
func Channel(userID string) string { return channelPrefix + userID }

// Emitter publishes every change event to Redis.
type Emitter struct {
	Conn *redis.Client
}

func (e *Emitter) Publish(ctx context.Context, ev models.ChangeEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Emit] Failed to marshal %s/%s: %v", ev.Entity, ev.ID, err)
		return
	}
	if err := e.Conn.Publish(ctx, Channel(ev.UserID), data).Err(); err != nil {
		log.Printf("[Emit] Failed to publish %s/%s to Redis: %v", ev.Entity, ev.ID, err)
	}
}

// Decode parses one relayed message; the channel name wins over the payload's user.
func Decode(channel, payload string) (models.ChangeEvent, error) {
	var ev models.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return ev, err
	}
	if uid := strings.TrimPrefix(channel, channelPrefix); uid != channel && uid != "" {
		ev.UserID = uid
	}
	return ev, nil
}

// StartChangeRelay feeds every change published by any instance into sink until
// ctx is done.
func StartChangeRelay(ctx context.Context, conn *redis.Client, sink store.Publisher) {
	sub := conn.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()
	ch := sub.Channel()

	log.Println("[ChangeRelay] Listening for change events...")

	for {
		select {
		case <-ctx.Done():
			log.Println("[ChangeRelay] Stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			ev, err := Decode(msg.Channel, msg.Payload)
			if err != nil {
				log.Printf("[ChangeRelay] Failed to parse event: %v", err)
				continue
			}
			sink.Publish(ctx, ev)
		}
	}
}
