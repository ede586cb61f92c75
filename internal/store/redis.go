package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/PratikDhanave/inquiry-notifier-service/internal/models"
)

const redisKeyPrefix = "submission:"

// RedisStore keeps submissions as JSON strings under "submission:<key>".
// Keys have no TTL.
type RedisStore struct {
	client redis.Cmdable
	closer func() error
	Now    func() time.Time
}

// NewRedisStore wraps an existing client. The caller owns the client lifecycle.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{
		client: client,
		closer: func() error { return nil },
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// NewRedisStoreFromURL dials redisURL (redis://...) and pings it.
func NewRedisStoreFromURL(ctx context.Context, redisURL string) (*RedisStore, error) {
	if redisURL == "" {
		return nil, errors.New("REDIS_URL required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	st := NewRedisStore(client)
	st.closer = client.Close
	return st, nil
}

// Create relies on SET NX: Redis executes it atomically, so one caller wins.
func (s *RedisStore) Create(ctx context.Context, rec models.SubmissionRecord) (Outcome, error) {
	rec.ReceivedAt = s.Now()
	b, err := json.Marshal(rec)
	if err != nil {
		return 0, storeError(err, "encode submission", rec.Key)
	}

	ok, err := s.client.SetNX(ctx, redisKeyPrefix+rec.Key, b, 0).Result()
	if err != nil {
		return 0, storeError(err, "setnx submission", rec.Key)
	}
	if !ok {
		return AlreadyExists, nil
	}
	return Created, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.closer()
}
