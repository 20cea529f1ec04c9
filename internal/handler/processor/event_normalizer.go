package processor

import (
	"log/slog"
	"net/http"

	"github.com/collaby/collaby-bot/internal/event"
	"github.com/collaby/collaby-bot/internal/models"
	"github.com/pkg/errors"
)

type normalizerProcessor struct{}

// NewNormalizerProcessor turns the delivery into an Event. Unhandled and malformed deliveries end the chain with 202.
func NewNormalizerProcessor(opts ...Option) Processor {
	_inst := &normalizerProcessor{}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *normalizerProcessor) Process(logger *slog.Logger, req any) (*Bus, error) {
	logger = logger.WithGroup("processor:normalizer")
	bus, err := asBus(req)
	if err != nil {
		return nil, err
	}
	e, err := event.Normalize(bus.EventType, bus.Body)
	if err != nil {
		bus.Done = true
		if errors.Is(err, event.ErrUnhandledEvent) {
			logger.Debug("ignoring unhandled event type", slog.String("eventType", bus.EventType))
			bus.Response = models.Response{Body: "ignored event type " + bus.EventType, StatusCode: http.StatusAccepted}
			return bus, nil
		}
		logger.Warn("dropping malformed delivery", slog.Any("error", err))
		bus.Response = models.Response{Body: err.Error(), StatusCode: http.StatusAccepted}
		return bus, nil
	}
	bus.Event = e
	return bus, nil
}
