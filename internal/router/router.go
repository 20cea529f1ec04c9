// Package router fans a normalized event out to the channels subscribed to it.
package router

import (
	"context"
	"log/slog"

	"github.com/collaby/collaby-bot/internal/event"
	"github.com/collaby/collaby-bot/internal/formatter"
	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/pkg/errors"
)

// Notification is a rendered event ready for delivery.
type Notification struct {
	Title string
	Body  string
	Color int
	URL   string
	Kind  event.Kind
}

// Notifier delivers a notification to one channel.
type Notifier interface {
	Notify(ctx context.Context, channelID string, n Notification) error
}

// Subscribers resolves the channels subscribed to an event.
type Subscribers interface {
	SubscribersFor(fullName string, kind event.Kind, branch string) []string
}

// DispatchReport summarizes one Route call.
type DispatchReport struct {
	Kind           event.Kind `json:"kind"`
	Repository     string     `json:"repository"`
	Branch         string     `json:"branch,omitempty"`
	Attempted      int        `json:"attempted"`
	Failed         int        `json:"failed"`
	FailedChannels []string   `json:"failed_channels,omitempty"`
	Err            error      `json:"-"`
}

// Delivered returns the number of successful deliveries.
func (r DispatchReport) Delivered() int {
	return r.Attempted - r.Failed
}

// LogValue implements slog.LogValuer.
func (r DispatchReport) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kind", string(r.Kind)),
		slog.String("repository", r.Repository),
		slog.String("branch", r.Branch),
		slog.Int("attempted", r.Attempted),
		slog.Int("failed", r.Failed),
	}
	if len(r.FailedChannels) > 0 {
		attrs = append(attrs, slog.Any("failed_channels", r.FailedChannels))
	}
	if r.Err != nil {
		attrs = append(attrs, slog.String("error", r.Err.Error()))
	}
	return slog.GroupValue(attrs...)
}

type Router struct {
	logger      *slog.Logger
	subscribers Subscribers
	notifier    Notifier
}

type Option func(*Router)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

func New(subscribers Subscribers, notifier Notifier, opts ...Option) *Router {
	_inst := &Router{subscribers: subscribers, notifier: notifier}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("component", "router")
	return _inst
}

// Route delivers e to every subscribed channel in order. A failed delivery is recorded and the next channel is tried.
func (r *Router) Route(ctx context.Context, e *event.Event) DispatchReport {
	report := DispatchReport{Kind: e.Kind, Repository: e.Repository, Branch: e.Branch}

	channels := r.subscribers.SubscribersFor(e.Repository, e.Kind, e.Branch)
	if len(channels) == 0 {
		r.logger.Debug("no subscribers", slog.Any("event", e))
		return report
	}

	body, err := formatter.Render(e)
	if err != nil {
		report.Err = errors.Wrap(err, "failed to render notification")
		r.logger.Error("render failed", slog.Any("event", e), slog.Any("error", err))
		return report
	}
	n := Notification{
		Title: formatter.Title(e),
		Body:  body,
		Color: formatter.Color(e.Kind),
		URL:   e.URL,
		Kind:  e.Kind,
	}

	for _, channel := range channels {
		report.Attempted++
		if err = r.notifier.Notify(ctx, channel, n); err != nil {
			report.Failed++
			report.FailedChannels = append(report.FailedChannels, channel)
			r.logger.Warn("delivery failed", slog.String("channel", channel), slog.Any("error", err))
		}
	}
	r.logger.Info("event dispatched", slog.Any("report", report))
	return report
}
