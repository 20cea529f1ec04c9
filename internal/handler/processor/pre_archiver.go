package processor

import (
	"context"
	"log/slog"

)

// Archiver stores raw deliveries.
type Archiver interface {
	PutS3Object(ctx context.Context, eventType, deliveryID, bucket string, body []byte) error
}

type archiverProcessor struct {
	ctx      context.Context
	archiver Archiver
	bucket   string
}

// NewArchiverProcessor uploads every delivery to bucket. A nil archiver or an empty bucket disables it.
func NewArchiverProcessor(ctx context.Context, archiver Archiver, bucket string, opts ...Option) Processor {
	_inst := &archiverProcessor{ctx: ctx, archiver: archiver, bucket: bucket}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *archiverProcessor) Process(logger *slog.Logger, req any) (*Bus, error) {
	logger = logger.WithGroup("pre-processor:archiver")
	bus, err := asBus(req)
	if err != nil {
		return nil, err
	}
	if p.archiver == nil || p.bucket == "" {
		logger.Debug("archive is disabled")
		return bus, nil
	}
	if err = p.archiver.PutS3Object(p.ctx, bus.EventType, bus.DeliveryID, p.bucket, bus.Body); err != nil {
		logger.Warn("failed to archive delivery", slog.Any("error", err))
	}
	return bus, nil
}
