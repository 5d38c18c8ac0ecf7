package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flicky/moodshop-api/internal/checkout"
)

type FlowStore interface {
	// Get returns the session's checkout flow, a fresh idle one when none exists.
	Get(ctx context.Context, sessionID string) (*checkout.Flow, error)
	Save(ctx context.Context, sessionID string, flow *checkout.Flow) error
}

type redisFlowStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFlowStore(client *redis.Client, ttl time.Duration) FlowStore {
	return &redisFlowStore{client: client, ttl: ttl}
}

func flowKey(sessionID string) string { return "checkout:" + sessionID }

func (s *redisFlowStore) Get(ctx context.Context, sessionID string) (*checkout.Flow, error) {
	data, err := s.client.Get(ctx, flowKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return checkout.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkout flow: %w", err)
	}

	flow := &checkout.Flow{}
	if err := json.Unmarshal(data, flow); err != nil {
		return nil, fmt.Errorf("decode checkout flow: %w", err)
	}
	return flow, nil
}

func (s *redisFlowStore) Save(ctx context.Context, sessionID string, flow *checkout.Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("marshal checkout flow: %w", err)
	}
	if err := s.client.Set(ctx, flowKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save checkout flow: %w", err)
	}
	return nil
}
