package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/collaby/collaby-bot/internal/models"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var (
	boltBucket = []byte("collaby")
	boltKey    = []byte("snapshot")
)

// Bolt stores the snapshot in a single-file BoltDB database.
type Bolt struct {
	db *bolt.DB
}

// NewBolt opens or creates the database at path.
func NewBolt(path string) (*Bolt, error) {
	if path == "" {
		return nil, errors.New("bolt backend requires a path")
	}
	cleaned := filepath.Clean(path)
	if dir := filepath.Dir(cleaned); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create %s", dir)
		}
	}

	db, err := bolt.Open(cleaned, 0o600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", cleaned)
	}
	if err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create bucket")
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Load(ctx context.Context) (*models.Snapshot, error) {
	var body []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if v := tx.Bucket(boltBucket).Get(boltKey); v != nil {
			body = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load snapshot")
	}
	return decode(body)
}

func (b *Bolt) Save(ctx context.Context, snap *models.Snapshot) error {
	body, err := encode(snap)
	if err != nil {
		return err
	}
	return errors.Wrap(b.db.Update(func(tx *bolt.Tx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return tx.Bucket(boltBucket).Put(boltKey, body)
	}), "failed to save snapshot")
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
