// Package handler receives webhook deliveries and runs them through the processor chain.
package handler

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/collaby/collaby-bot/internal/handler/processor"
	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/collaby/collaby-bot/internal/validation"
	"github.com/pkg/errors"
)

// Option configures a Handler.
type Option func(*Handler)

// Handler owns the webhook pipeline.
type Handler struct {
	ctx               context.Context
	logger            *slog.Logger
	webhookSecret     *validation.WebhookSecret
	rateLimit         int
	archiver          processor.Archiver
	archiveBucket     string
	notifyTimeout     time.Duration
	lambdaPayloadType string

	branches   processor.BranchSyncer
	router     processor.Router
	processors []processor.Processor
}

// NewHandler builds the chain: validator, ping, archiver, branches, normalizer, dispatcher.
func NewHandler(branches processor.BranchSyncer, router processor.Router, options ...Option) (*Handler, error) {
	if branches == nil || router == nil {
		return nil, errors.New("handler requires a branch syncer and a router")
	}
	_inst := &Handler{branches: branches, router: router}
	for _, opt := range options {
		opt(_inst)
	}
	if _inst.ctx == nil {
		_inst.ctx = context.Background()
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("component", "handler")

	_inst.processors = []processor.Processor{
		processor.NewValidatorProcessor(_inst.webhookSecret, processor.NewRateLimiter(_inst.rateLimit)),
		processor.NewPingProcessor(),
		processor.NewArchiverProcessor(_inst.ctx, _inst.archiver, _inst.archiveBucket),
		processor.NewBranchesProcessor(_inst.branches),
		processor.NewNormalizerProcessor(),
		processor.NewDispatcherProcessor(_inst.ctx, _inst.router, _inst.notifyTimeout),
	}
	return _inst, nil
}

// Process runs one delivery. Headers must be lower-cased.
func (h *Handler) Process(body []byte, headers map[string]string) (*processor.Bus, error) {
	logger := h.logger.With(
		slog.String("event", headers["x-github-event"]),
		slog.String("deliveryID", headers["x-github-delivery"]))
	logger.Info("processing request...")

	bus, err := processor.Process(logger, &processor.Request{
		Body:    body,
		Headers: headers,
		Source:  Source(headers),
	}, h.processors...)
	if err != nil {
		logger.Warn("request rejected", slog.Any("error", err))
	}
	if bus == nil {
		bus = &processor.Bus{}
	}
	return bus, err
}

// GetLambdaPayloadType returns the payload type the lambda runtime answers with.
func (h *Handler) GetLambdaPayloadType() string {
	return h.lambdaPayloadType
}

// Source returns the client address of a delivery: the first X-Forwarded-For hop, else X-Real-Ip.
func Source(headers map[string]string) string {
	if fwd := headers["x-forwarded-for"]; fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := headers["x-real-ip"]; ip != "" {
		return ip
	}
	return "unknown"
}

// RemoteHost strips the port from a net/http remote address.
func RemoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
