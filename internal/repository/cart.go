package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flicky/moodshop-api/internal/model"
)

// CartStore keeps one cart per session.
type CartStore interface {
	// Get returns the session's cart, empty when none was stored.
	Get(ctx context.Context, sessionID string) (*model.Cart, error)
	// Update applies fn to the stored cart and saves the result. Concurrent
	// updates to the same session are retried rather than lost.
	Update(ctx context.Context, sessionID string, fn func(cart *model.Cart) error) (*model.Cart, error)
	Delete(ctx context.Context, sessionID string) error
}

const cartUpdateRetries = 5

type redisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCartStore(client *redis.Client, ttl time.Duration) CartStore {
	return &redisCartStore{client: client, ttl: ttl}
}

func cartKey(sessionID string) string { return "cart:" + sessionID }

func (s *redisCartStore) Get(ctx context.Context, sessionID string) (*model.Cart, error) {
	cart, err := readCart(ctx, s.client, cartKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (s *redisCartStore) Update(ctx context.Context, sessionID string, fn func(cart *model.Cart) error) (*model.Cart, error) {
	key := cartKey(sessionID)
	var result *model.Cart

	txf := func(tx *redis.Tx) error {
		cart, err := readCart(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(cart); err != nil {
			return err
		}

		var data []byte
		if !cart.IsEmpty() {
			if data, err = json.Marshal(cart); err != nil {
				return fmt.Errorf("marshal cart: %w", err)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if data == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, data, s.ttl)
			}
			return nil
		})
		if err == nil {
			result = cart
		}
		return err
	}

	for i := 0; i < cartUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, fmt.Errorf("update cart: %w", err)
		}
	}
	return nil, fmt.Errorf("update cart: %w", redis.TxFailedErr)
}

func (s *redisCartStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

func readCart(ctx context.Context, c redis.Cmdable, key string) (*model.Cart, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return &model.Cart{}, nil
	}
	if err != nil {
		return nil, err
	}

	cart := &model.Cart{}
	if err := json.Unmarshal(data, cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}
