package github

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// WithLogger sets a custom logger for the Controller instance to use for logging operations.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Controller) {
		g.logger = logger
	}
}

// WithContext sets the base context of the Controller.
func WithContext(ctx context.Context) Option {
	return func(g *Controller) {
		g.ctx = ctx
	}
}

// WithClientTTL bounds how long a per-token client stays cached.
func WithClientTTL(ttl time.Duration) Option {
	return func(g *Controller) {
		if ttl > 0 {
			g.clientTTL = ttl
		}
	}
}

// WithEndpoints points the clients at a GitHub Enterprise or test server.
// rest must be the REST API root; graphQL the full GraphQL endpoint.
func WithEndpoints(rest, graphQL string) Option {
	return func(g *Controller) {
		if !strings.HasSuffix(rest, "/") {
			rest += "/"
		}
		if u, err := url.Parse(rest); err == nil {
			g.restURL = u
		}
		g.graphQL = graphQL
	}
}

// WithTransport replaces the innermost HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(g *Controller) {
		g.transport = rt
	}
}
