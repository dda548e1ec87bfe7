package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// stateTTL bounds how long an abandoned session's pursuit survives.
const stateTTL = 6 * time.Hour

// Key patterns for Redis bot state.
func stateKey(room string, uid uint32) string {
	return "bot:" + room + ":" + strconv.FormatUint(uint64(uid), 10) + ":state"
}
func readyKey(room string) string { return "bot:" + room + ":ready" }

func member(uid uint32) string { return strconv.FormatUint(uint64(uid), 10) }

// SaveState stores a bot's engine state JSON.
func (c *Client) SaveState(ctx context.Context, room string, uid uint32, state json.RawMessage) error {
	return c.rdb.Set(ctx, stateKey(room, uid), []byte(state), stateTTL).Err()
}

// LoadState retrieves a bot's engine state JSON, or nil if none is stored.
func (c *Client) LoadState(ctx context.Context, room string, uid uint32) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, stateKey(room, uid)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bot state: %w", err)
	}
	return json.RawMessage(data), nil
}

// ClearState removes a bot's engine state.
func (c *Client) ClearState(ctx context.Context, room string, uid uint32) error {
	return c.rdb.Del(ctx, stateKey(room, uid)).Err()
}

// SetReady adds or removes a bot from the room's ready set.
func (c *Client) SetReady(ctx context.Context, room string, uid uint32, ready bool) error {
	if ready {
		return c.rdb.SAdd(ctx, readyKey(room), member(uid)).Err()
	}
	return c.rdb.SRem(ctx, readyKey(room), member(uid)).Err()
}

// IsReady reports whether the bot has voted to start in the room.
func (c *Client) IsReady(ctx context.Context, room string, uid uint32) (bool, error) {
	ok, err := c.rdb.SIsMember(ctx, readyKey(room), member(uid)).Result()
	if err != nil {
		return false, fmt.Errorf("is ready: %w", err)
	}
	return ok, nil
}

// ReadyCount returns how many bots have voted to start in the room.
func (c *Client) ReadyCount(ctx context.Context, room string) (int64, error) {
	return c.rdb.SCard(ctx, readyKey(room)).Result()
}
