// Package store persists the bot state snapshot across restarts.
package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/collaby/collaby-bot/internal/models"
	"github.com/pkg/errors"
)

const (
	BackendMemory = "memory"
	BackendS3     = "s3"
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
)

var ErrUnsupportedBackend = errors.New("unsupported store backend")

// Store loads and saves whole snapshots. Load returns an empty snapshot when nothing was saved yet.
type Store interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snap *models.Snapshot) error
	Close() error
}

// ObjectStore is the subset of the AWS controller used by the S3 backend.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, body []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// Config selects and configures a backend.
type Config struct {
	Backend string

	Objects  ObjectStore
	Bucket   string
	S3Key    string
	NotFound error

	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	BoltPath string
}

// New opens the configured backend.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = helpers.NewNoopLogger()
	}
	logger = logger.With("component", "store", "backend", cfg.Backend)

	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case "", BackendMemory:
		s = NewMemory()
	case BackendS3:
		s, err = NewS3(cfg.Objects, cfg.Bucket, cfg.S3Key, cfg.NotFound)
	case BackendRedis:
		s, err = NewRedis(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKey)
	case BackendBolt:
		s, err = NewBolt(cfg.BoltPath)
	default:
		err = errors.Wrapf(ErrUnsupportedBackend, "%q", cfg.Backend)
	}
	if err != nil {
		logger.Error("failed to open store", slog.Any("error", err))
		return nil, err
	}
	logger.Debug("store opened")
	return s, nil
}

func encode(snap *models.Snapshot) ([]byte, error) {
	snap.Version = models.SnapshotVersion
	snap.SavedAt = time.Now().UTC()
	body, err := json.Marshal(snap)
	return body, errors.Wrap(err, "failed to encode snapshot")
}

func decode(body []byte) (*models.Snapshot, error) {
	if len(body) == 0 {
		return models.NewSnapshot(), nil
	}
	snap := &models.Snapshot{}
	if err := json.Unmarshal(body, snap); err != nil {
		return nil, errors.Wrap(err, "failed to decode snapshot")
	}
	if snap.Version > models.SnapshotVersion {
		return nil, errors.Errorf("snapshot version %d is newer than supported version %d", snap.Version, models.SnapshotVersion)
	}
	snap.Allocate()
	return snap, nil
}
