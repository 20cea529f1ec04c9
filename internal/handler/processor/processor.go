// Package processor provides the webhook pipeline stages and the chain that runs them over a shared Bus.
package processor

import (
	"fmt"
	"log/slog"

	"github.com/collaby/collaby-bot/internal/event"
	"github.com/collaby/collaby-bot/internal/models"
	"github.com/collaby/collaby-bot/internal/router"
	"github.com/pkg/errors"
)

// Option is a function that applies an option to a Processor.
type Option = func(Processor)

// Processor is an interface that defines a method to process a request.
// Processors are shared by concurrent deliveries, so per-delivery state travels in the Bus and the logger argument.
type Processor interface {
	Process(logger *slog.Logger, req any) (*Bus, error)
}

// Request is a raw webhook delivery entering the chain.
type Request struct {
	Body    []byte
	Headers map[string]string
	// Source identifies the sender for rate limiting, e.g. the remote address.
	Source string
}

// Bus carries one delivery through the chain. A processor sets Done to stop the chain with the current Response.
type Bus struct {
	Response models.Response

	EventType  string
	DeliveryID string
	Body       []byte
	Headers    map[string]string

	Event     *event.Event
	RefChange *event.RefChange
	Report    *router.DispatchReport

	Done bool
}

// LogValue exposes the delivery identifiers to structured logs.
func (b *Bus) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("eventType", b.EventType),
		slog.String("deliveryID", b.DeliveryID),
	}
	if b.Event != nil {
		attrs = append(attrs, slog.String("repository", b.Event.Repository))
	}
	return slog.GroupValue(attrs...)
}

// InternalError marks a failure of the chain itself rather than of the delivery.
type InternalError struct {
	Cause error
}

func (m *InternalError) Error() string {
	return fmt.Sprintf("pipeline error: %v", m.Cause)
}

func (m *InternalError) Unwrap() error {
	return m.Cause
}

// NewInternalError returns an InternalError with a formatted cause.
func NewInternalError(format string, args ...any) error {
	return &InternalError{Cause: errors.Errorf(format, args...)}
}

// Process runs the processors in order until one fails or marks the bus done.
func Process(logger *slog.Logger, req any, processors ...Processor) (*Bus, error) {
	var (
		bus *Bus
		err error
	)
	for _, p := range processors {
		bus, err = p.Process(logger, req)
		if err != nil || bus == nil || bus.Done {
			return bus, err
		}
		req = bus
	}
	if bus == nil {
		return nil, NewInternalError("no processor produced a bus")
	}
	return bus, nil
}

func applyOpts(m Processor, opts ...Option) {
	for _, opt := range opts {
		opt(m)
	}
}

func asBus(req any) (*Bus, error) {
	bus, ok := req.(*Bus)
	if !ok {
		return nil, NewInternalError("invalid request type. expected *processor.Bus got %T", req)
	}
	return bus, nil
}
