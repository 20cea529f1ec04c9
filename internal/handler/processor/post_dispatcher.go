package processor

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/collaby/collaby-bot/internal/event"
	"github.com/collaby/collaby-bot/internal/models"
	"github.com/collaby/collaby-bot/internal/router"
)

// Router fans an event out to its subscribers.
type Router interface {
	Route(ctx context.Context, e *event.Event) router.DispatchReport
}

type dispatcherProcessor struct {
	ctx     context.Context
	router  Router
	timeout time.Duration
}

// NewDispatcherProcessor routes the normalized event and reports the outcome in the response.
func NewDispatcherProcessor(ctx context.Context, r Router, timeout time.Duration, opts ...Option) Processor {
	_inst := &dispatcherProcessor{ctx: ctx, router: r, timeout: timeout}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *dispatcherProcessor) Process(logger *slog.Logger, req any) (*Bus, error) {
	logger = logger.WithGroup("post-processor:dispatcher")
	bus, err := asBus(req)
	if err != nil {
		return nil, err
	}
	if bus.Event == nil {
		return bus, NewInternalError("dispatcher reached without an event")
	}

	ctx := p.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	report := p.router.Route(ctx, bus.Event)
	bus.Report = &report
	bus.Done = true

	if report.Err != nil {
		logger.Error("dispatch failed", slog.Any("report", report), slog.Any("error", report.Err))
		bus.Response = models.Response{Body: "notification could not be rendered", StatusCode: http.StatusAccepted, Report: report}
		return bus, nil
	}
	logger.Info("dispatched", slog.Any("report", report))
	bus.Response = models.Response{Body: "dispatched", StatusCode: http.StatusAccepted, Report: report}
	return bus, nil
}
