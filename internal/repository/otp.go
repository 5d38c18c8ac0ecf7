package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPRecord is a pending one-time passcode. Only the bcrypt hash of the code
// is stored.
type OTPRecord struct {
	Hash     string
	Attempts int
}

// OTPStore holds at most one pending code per email. Expired codes vanish.
type OTPStore interface {
	Save(ctx context.Context, email, hash string, ttl time.Duration) error
	Get(ctx context.Context, email string) (*OTPRecord, error)
	// IncrementAttempts bumps the failed-attempt counter and returns the new
	// value, or 0 when the code no longer exists.
	IncrementAttempts(ctx context.Context, email string) (int, error)
	// Delete removes the code and reports whether this call removed it.
	Delete(ctx context.Context, email string) (bool, error)
}

type redisOTPStore struct {
	client *redis.Client
}

func NewOTPStore(client *redis.Client) OTPStore {
	return &redisOTPStore{client: client}
}

func otpKey(email string) string { return "otp:" + email }

func (s *redisOTPStore) Save(ctx context.Context, email, hash string, ttl time.Duration) error {
	key := otpKey(email)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "hash", hash, "attempts", 0)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

func (s *redisOTPStore) Get(ctx context.Context, email string) (*OTPRecord, error) {
	fields, err := s.client.HGetAll(ctx, otpKey(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("get otp: %w", err)
	}
	hash, ok := fields["hash"]
	if !ok {
		return nil, nil
	}

	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, fmt.Errorf("parse otp attempts: %w", err)
	}
	return &OTPRecord{Hash: hash, Attempts: attempts}, nil
}

// incrementIfExists keeps HINCRBY from resurrecting an expired code
// without a TTL.
var incrementIfExists = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

func (s *redisOTPStore) IncrementAttempts(ctx context.Context, email string) (int, error) {
	n, err := incrementIfExists.Run(ctx, s.client, []string{otpKey(email)}).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}
	return n, nil
}

func (s *redisOTPStore) Delete(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Del(ctx, otpKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("delete otp: %w", err)
	}
	return n == 1, nil
}
