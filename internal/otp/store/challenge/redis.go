package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sportsfest/internal/otp/models"
	"sportsfest/pkg/platform/sentinel"
)

// Redis key prefix for login challenges, one key per normalized address.
const challengeKeyPrefix = "otp:challenge:"

// Redis stores login challenges with a server-side TTL, so expired codes
// vanish without a sweeper. This is the production store: every API instance
// sees the same challenge and the same attempt counter.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client. The client lifecycle is managed by the
// caller.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Put stores a challenge, replacing any previous one for the same address.
// The key expires together with the challenge.
func (s *Redis) Put(ctx context.Context, ch *models.Challenge) error {
	ttl := time.Until(ch.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("challenge already expired: %w", sentinel.ErrExpired)
	}
	payload, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	if err := s.client.Set(ctx, challengeKey(ch.Email), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	return nil
}

// Find returns the live challenge for an address. Expired keys are gone from
// redis, so ErrNotFound covers both "never requested" and "expired".
func (s *Redis) Find(ctx context.Context, address string) (*models.Challenge, error) {
	payload, err := s.client.Get(ctx, challengeKey(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("challenge for %q: %w", address, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load challenge: %w", err)
	}
	var ch models.Challenge
	if err := json.Unmarshal(payload, &ch); err != nil {
		return nil, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return &ch, nil
}

// Update rewrites a challenge in place, keeping the original expiry. Used to
// persist the attempt counter between failed verifications.
func (s *Redis) Update(ctx context.Context, ch *models.Challenge) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	res := s.client.SetArgs(ctx, challengeKey(ch.Email), payload, redis.SetArgs{
		KeepTTL: true,
		Mode:    "XX",
	})
	if errors.Is(res.Err(), redis.Nil) {
		// Key expired between Find and Update; the code is gone either way.
		return fmt.Errorf("challenge for %q: %w", ch.Email, sentinel.ErrNotFound)
	}
	if err := res.Err(); err != nil {
		return fmt.Errorf("update challenge: %w", err)
	}
	return nil
}

// Delete removes the challenge for an address. Deleting an absent key is not
// an error.
func (s *Redis) Delete(ctx context.Context, address string) error {
	if err := s.client.Del(ctx, challengeKey(address)).Err(); err != nil {
		return fmt.Errorf("delete challenge: %w", err)
	}
	return nil
}

// Sweep is a no-op: redis expires challenge keys itself.
func (s *Redis) Sweep(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func challengeKey(address string) string {
	return challengeKeyPrefix + address
}
