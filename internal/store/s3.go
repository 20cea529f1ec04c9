package store

import (
	"context"

	"github.com/collaby/collaby-bot/internal/models"
	"github.com/pkg/errors"
)

// S3 stores the snapshot as one JSON object.
type S3 struct {
	objects  ObjectStore
	bucket   string
	key      string
	notFound error
}

// NewS3 returns an S3 backend. notFound is the error objects returns for a missing key.
func NewS3(objects ObjectStore, bucket, key string, notFound error) (*S3, error) {
	if objects == nil {
		return nil, errors.New("s3 backend requires an object store")
	}
	if bucket == "" || key == "" {
		return nil, errors.New("s3 backend requires a bucket and a key")
	}
	return &S3{objects: objects, bucket: bucket, key: key, notFound: notFound}, nil
}

func (s *S3) Load(ctx context.Context) (*models.Snapshot, error) {
	body, err := s.objects.GetObject(ctx, s.bucket, s.key)
	if err != nil {
		if s.notFound != nil && errors.Is(err, s.notFound) {
			return models.NewSnapshot(), nil
		}
		return nil, errors.Wrap(err, "failed to load snapshot")
	}
	return decode(body)
}

func (s *S3) Save(ctx context.Context, snap *models.Snapshot) error {
	body, err := encode(snap)
	if err != nil {
		return err
	}
	return errors.Wrap(s.objects.PutObject(ctx, s.bucket, s.key, body), "failed to save snapshot")
}

func (s *S3) Close() error {
	return nil
}
