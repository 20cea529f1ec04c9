package store

import (
	"context"
	"time"

	"github.com/collaby/collaby-bot/internal/models"
	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"
)

// Redis stores the snapshot under a single string key.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, addr, username, password string, db int, key string) (*Redis, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	if key == "" {
		return nil, errors.New("redis backend requires a key")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connect to redis %s", addr)
	}
	return &Redis{client: client, key: key}, nil
}

func (r *Redis) Load(ctx context.Context) (*models.Snapshot, error) {
	body, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.NewSnapshot(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load snapshot")
	}
	return decode(body)
}

func (r *Redis) Save(ctx context.Context, snap *models.Snapshot) error {
	body, err := encode(snap)
	if err != nil {
		return err
	}
	return errors.Wrap(r.client.Set(ctx, r.key, body, 0).Err(), "failed to save snapshot")
}

func (r *Redis) Close() error {
	return r.client.Close()
}
