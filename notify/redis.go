package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"modlog-bot/model"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is used when no channel name is configured.
const DefaultChannel = "moderation:cases"

// Payload is the JSON message published for every case event.
type Payload struct {
	Kind    model.EventKind `json:"kind"`
	GuildID string          `json:"guild_id"`
	CaseID  int             `json:"case_id"`
	Case    model.Case      `json:"case"`
}

// Redis publishes case events on a pub/sub channel for other services.
type Redis struct {
	rdb     *redis.Client
	channel string
}

func NewRedis(rdb *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{rdb: rdb, channel: channel}
}

// DialRedis connects to url and checks the server answers.
func DialRedis(ctx context.Context, url, channel string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return NewRedis(rdb, channel), nil
}

func (r *Redis) Channel() string { return r.channel }

func (r *Redis) Notify(ctx context.Context, event model.CaseEvent) error {
	if r.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(Payload{
		Kind:    event.Kind,
		GuildID: event.Case.GuildID,
		CaseID:  event.Case.CaseID,
		Case:    event.Case,
	})
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, payload).Err()
}

func (r *Redis) Close() error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}
