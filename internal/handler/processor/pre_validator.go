package processor

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/collaby/collaby-bot/internal/models"
	"github.com/collaby/collaby-bot/internal/validation"
	"github.com/google/go-github/v84/github"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per delivery source. Idle sources are evicted.
type RateLimiter struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows perMinute deliveries per source. It returns nil when perMinute is not positive.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](1024, nil, 10*time.Minute),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
	}
}

// Allow consumes a token for source.
func (r *RateLimiter) Allow(source string) bool {
	if r == nil {
		return true
	}
	l, ok := r.limiters.Get(source)
	if !ok {
		l = rate.NewLimiter(r.limit, r.burst)
		r.limiters.Add(source, l)
	}
	return l.Allow()
}

type validatorProcessor struct {
	secret  *validation.WebhookSecret
	limiter *RateLimiter
}

// NewValidatorProcessor checks the delivery headers, the per-source rate and, when a secret is set, the signature.
func NewValidatorProcessor(secret *validation.WebhookSecret, limiter *RateLimiter, opts ...Option) Processor {
	_inst := &validatorProcessor{secret: secret, limiter: limiter}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *validatorProcessor) Process(logger *slog.Logger, req any) (*Bus, error) {
	logger = logger.WithGroup("pre-processor:validator")
	request, ok := req.(*Request)
	if !ok {
		return nil, NewInternalError("invalid request type. expected *processor.Request got %T", req)
	}
	headers := request.Headers
	bus := &Bus{
		Body:     request.Body,
		Headers:  headers,
		Response: models.Response{StatusCode: http.StatusAccepted},
	}

	eventType, found := headers[strings.ToLower(github.EventTypeHeader)]
	if !found || eventType == "" {
		logger.Warn("missing event type")
		bus.Response = models.Response{Body: "missing event type", StatusCode: http.StatusUnprocessableEntity}
		return bus, NewInternalError("missing event type")
	}
	bus.EventType = eventType

	deliveryID, found := headers[strings.ToLower(github.DeliveryIDHeader)]
	if !found || deliveryID == "" {
		logger.Warn("missing delivery ID")
		bus.Response = models.Response{Body: "missing delivery ID", StatusCode: http.StatusUnprocessableEntity}
		return bus, NewInternalError("missing delivery ID")
	}
	bus.DeliveryID = deliveryID

	if !p.limiter.Allow(request.Source) {
		logger.Warn("rate limit exceeded", slog.String("source", request.Source))
		bus.Response = models.Response{Body: "rate limit exceeded", StatusCode: http.StatusTooManyRequests}
		bus.Done = true
		return bus, nil
	}

	if p.secret != nil {
		if err := p.secret.ValidateSignature(request.Body, headers); err != nil {
			logger.Warn("validating signature", slog.Any("error", err))
			bus.Response = models.Response{Body: "invalid signature", StatusCode: http.StatusForbidden}
			return bus, err
		}
		logger.Debug("request signature is valid")
	}
	return bus, nil
}
