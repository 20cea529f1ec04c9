package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/collaby/collaby-bot/internal/handler/processor"
	"github.com/collaby/collaby-bot/internal/validation"
)

// WithLogger sets the logger instance for the handler.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithContext sets the context for the handler.
func WithContext(ctx context.Context) Option {
	return func(h *Handler) {
		h.ctx = ctx
	}
}

// WithLambdaPayloadType sets the lambda payload type for a Handler instance.
func WithLambdaPayloadType(payloadType string) Option {
	return func(h *Handler) {
		h.lambdaPayloadType = payloadType
	}
}

// WithWebhookSecret configures the handler with a webhook secret for request validation.
func WithWebhookSecret(secret string) Option {
	return func(h *Handler) {
		h.webhookSecret = validation.NewWebhookSecret(secret)
	}
}

// WithRateLimit caps deliveries per source and minute.
func WithRateLimit(perMinute int) Option {
	return func(h *Handler) {
		h.rateLimit = perMinute
	}
}

// WithArchive uploads raw deliveries to bucket.
func WithArchive(archiver processor.Archiver, bucket string) Option {
	return func(h *Handler) {
		h.archiver = archiver
		h.archiveBucket = bucket
	}
}

// WithNotifyTimeout bounds the fan-out of one event.
func WithNotifyTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.notifyTimeout = d
	}
}
