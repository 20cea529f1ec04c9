// Package aws wraps the S3 and SSM clients used for secrets, snapshots and the webhook archive.
package aws

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/smithy-go/logging"
	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/pkg/errors"
)

// ErrObjectNotFound is returned by GetObject when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Controller holds the AWS clients. Construct it with NewController.
type Controller struct {
	ctx    context.Context
	logger *slog.Logger

	config    *aws.Config
	s3Client  *s3.Client
	ssmClient *ssm.Client
}

// Option defines a function type used to configure an instance of the Controller struct.
type Option func(*Controller)

// NewController loads the default AWS configuration unless one was supplied through WithConfig.
func NewController(opts ...Option) (*Controller, error) {
	_inst := &Controller{}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("controller", "aws")
	if _inst.ctx == nil {
		_inst.ctx = context.Background()
	}
	if _inst.config == nil {
		_inst.logger.Debug("loading default AWS configuration...")
		cfg, err := config.LoadDefaultConfig(_inst.ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load AWS configuration")
		}
		_inst.config = &cfg
	}
	_inst.config.Logger = newAWSLogger(_inst.logger)

	_inst.s3Client = s3.NewFromConfig(*_inst.config, func(o *s3.Options) {
		o.UsePathStyle = _inst.config.BaseEndpoint != nil
	})
	_inst.ssmClient = ssm.NewFromConfig(*_inst.config)
	return _inst, nil
}

// GetSecret reads an SSM parameter, decrypting SecureString values when encrypted is true.
func (a *Controller) GetSecret(ctx context.Context, key string, encrypted bool) (string, error) {
	a.logger.With("key", key).Debug("fetching SSM secret...")
	out, err := a.ssmClient.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(key),
		WithDecryption: aws.Bool(encrypted),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to load SSM parameter %s", key)
	}
	if out.Parameter == nil {
		return "", errors.Errorf("SSM parameter %s has no value", key)
	}
	return aws.ToString(out.Parameter.Value), nil
}

// PutS3Object archives a webhook delivery under a key made of the current timestamp, the event type and the delivery id.
// An empty bucket is a no-op.
func (a *Controller) PutS3Object(ctx context.Context, eventType, deliveryID, bucket string, body []byte) error {
	if bucket == "" {
		return nil
	}
	key := fmt.Sprintf("%s/%s.%s.json", eventType, time.Now().UTC().Format(time.RFC3339Nano), deliveryID)
	return a.PutObject(ctx, bucket, key, body)
}

// PutObject stores a JSON document.
func (a *Controller) PutObject(ctx context.Context, bucket, key string, body []byte) error {
	_, err := a.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to put s3://%s/%s", bucket, key)
	}
	a.logger.Debug("object stored", slog.String("bucket", bucket), slog.String("key", key), slog.Int("size", len(body)))
	return nil
}

// GetObject reads a whole object. A missing key yields ErrObjectNotFound.
func (a *Controller) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := a.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrObjectNotFound
		}
		return nil, errors.Wrapf(err, "failed to get s3://%s/%s", bucket, key)
	}
	defer func() { _ = out.Body.Close() }()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read s3://%s/%s", bucket, key)
	}
	return body, nil
}

type awsLogger struct {
	logger *slog.Logger
}

func newAWSLogger(logger *slog.Logger) *awsLogger {
	return &awsLogger{logger}
}

func (a *awsLogger) Logf(classification logging.Classification, format string, args ...any) {
	level := slog.LevelDebug
	if classification == logging.Warn {
		level = slog.LevelWarn
	}
	a.logger.Log(context.Background(), level, fmt.Sprintf(format, args...), slog.String("classification", string(classification)))
}
