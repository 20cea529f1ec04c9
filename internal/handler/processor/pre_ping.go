package processor

import (
	"log/slog"
	"net/http"

	"github.com/collaby/collaby-bot/internal/models"
	"github.com/google/go-github/v84/github"
)

type pingProcessor struct{}

// NewPingProcessor answers the hook ping GitHub sends when a webhook is created.
func NewPingProcessor(opts ...Option) Processor {
	_inst := &pingProcessor{}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *pingProcessor) Process(logger *slog.Logger, req any) (*Bus, error) {
	logger = logger.WithGroup("pre-processor:ping")
	bus, err := asBus(req)
	if err != nil {
		return nil, err
	}
	if bus.EventType != "ping" {
		return bus, nil
	}
	payload, err := github.ParseWebHook(bus.EventType, bus.Body)
	if err != nil {
		logger.Warn("parsing ping payload", slog.Any("error", err))
		bus.Response = models.Response{Body: "invalid ping payload", StatusCode: http.StatusBadRequest}
		bus.Done = true
		return bus, nil
	}
	ping, _ := payload.(*github.PingEvent)
	logger.Info("webhook ping received", slog.Int64("hookID", ping.GetHookID()), slog.String("zen", ping.GetZen()))
	bus.Response = models.Response{Body: "pong", StatusCode: http.StatusOK}
	bus.Done = true
	return bus, nil
}
