// Package github provides per-user GitHub API clients and the repository operations the bot performs with them.
package github

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	"github.com/google/go-github/v84/github"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	service = "github"

	defaultClientTTL  = 30 * time.Minute
	defaultCacheSize  = 256
	defaultGraphQLURL = "https://api.github.com/graphql"
)

// Client bundles the REST and GraphQL clients authenticated as one user.
type Client struct {
	V3 *github.Client
	V4 *githubv4.Client
}

// Controller creates and caches per-token clients.
type Controller struct {
	ctx       context.Context
	logger    *slog.Logger
	clientTTL time.Duration
	restURL   *url.URL
	graphQL   string
	transport http.RoundTripper

	cache    *expirable.LRU[string, *Client]
	limitLog *rate.Sometimes
}

// Option is a functional option used to configure a Controller.
type Option func(*Controller)

// NewController initializes a new Controller with the provided options, setting defaults where necessary.
func NewController(opts ...Option) (*Controller, error) {
	_inst := &Controller{clientTTL: defaultClientTTL, graphQL: defaultGraphQLURL}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.ctx == nil {
		_inst.ctx = context.Background()
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	if _inst.transport == nil {
		_inst.transport = http.DefaultTransport
	}
	_inst.logger = _inst.logger.With("controller", service)
	_inst.cache = expirable.NewLRU[string, *Client](defaultCacheSize, nil, _inst.clientTTL)
	_inst.limitLog = helpers.OnceAMinute()
	return _inst, nil
}

// Clients returns the cached clients for token, spawning them on a miss.
func (g *Controller) Clients(token string) (*Client, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	key := tokenKey(token)
	if client, ok := g.cache.Get(key); ok {
		g.logger.Debug("cache hit. using cached client...")
		return client, nil
	}

	g.logger.Debug("cache miss. spawning clients...")
	logging := &loggingRoundTripper{logger: g.logger, next: g.transport}
	limited := github_ratelimit.NewClient(logging)
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   limited.Transport,
		},
	}

	v3 := github.NewClient(httpClient)
	if g.restURL != nil {
		v3.BaseURL = g.restURL
	}
	client := &Client{
		V3: v3,
		V4: githubv4.NewEnterpriseClient(g.graphQL, httpClient),
	}
	g.cache.Add(key, client)
	return client, nil
}

// Forget drops the cached clients of token.
func (g *Controller) Forget(token string) {
	g.cache.Remove(tokenKey(token))
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
