// Package jira talks to Jira Cloud sites on behalf of users authorized through Atlassian OAuth.
package jira

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	jira "github.com/andygrunwald/go-jira"
	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/collaby/collaby-bot/internal/upstream"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	service = "jira"

	DefaultAPIURL           = "https://api.atlassian.com/ex/jira/"
	DefaultResourcesURL     = "https://api.atlassian.com/oauth/token/accessible-resources"
	DefaultStoryPointsField = "customfield_10026"
	DefaultSprintField      = "customfield_10020"
)

// Controller builds per-user go-jira clients against the Atlassian API gateway.
type Controller struct {
	logger           *slog.Logger
	apiURL           string
	resourcesURL     string
	storyPointsField string
	sprintField      string
	transport        http.RoundTripper
}

type Option func(*Controller)

func WithLogger(logger *slog.Logger) Option {
	return func(j *Controller) {
		j.logger = logger
	}
}

// WithEndpoints overrides the API gateway base and the accessible-resources endpoint.
func WithEndpoints(apiURL, resourcesURL string) Option {
	return func(j *Controller) {
		if apiURL != "" {
			j.apiURL = apiURL
		}
		if resourcesURL != "" {
			j.resourcesURL = resourcesURL
		}
	}
}

// WithFields sets the custom fields holding story points and sprints.
func WithFields(storyPoints, sprint string) Option {
	return func(j *Controller) {
		if storyPoints != "" {
			j.storyPointsField = storyPoints
		}
		if sprint != "" {
			j.sprintField = sprint
		}
	}
}

func WithTransport(rt http.RoundTripper) Option {
	return func(j *Controller) {
		j.transport = rt
	}
}

func NewController(opts ...Option) *Controller {
	_inst := &Controller{
		apiURL:           DefaultAPIURL,
		resourcesURL:     DefaultResourcesURL,
		storyPointsField: DefaultStoryPointsField,
		sprintField:      DefaultSprintField,
	}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	if _inst.transport == nil {
		_inst.transport = http.DefaultTransport
	}
	if !strings.HasSuffix(_inst.apiURL, "/") {
		_inst.apiURL += "/"
	}
	_inst.logger = _inst.logger.With("controller", service)
	return _inst
}

func (j *Controller) httpClient(token string) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   j.transport,
		},
	}
}

func (j *Controller) client(token, siteID string) (*jira.Client, error) {
	if siteID == "" {
		return nil, errors.New("empty site id")
	}
	c, err := jira.NewClient(j.httpClient(token), j.apiURL+siteID+"/")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create jira client")
	}
	return c, nil
}

// Site is a Jira Cloud site reachable with a token.
type Site struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Sites lists the sites the token has been granted.
func (j *Controller) Sites(ctx context.Context, token string) ([]Site, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.resourcesURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build resources request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := j.httpClient(token).Do(req)
	if err != nil {
		return nil, upstream.Classify(service, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, upstream.Classify(service, resp.StatusCode, errors.Errorf("accessible resources: %s", resp.Status))
	}

	var sites []Site
	if err = json.NewDecoder(resp.Body).Decode(&sites); err != nil {
		return nil, errors.Wrap(err, "failed to decode accessible resources")
	}
	return sites, nil
}

// classify maps a go-jira failure onto the upstream taxonomy.
func classify(resp *jira.Response, err error) error {
	if err == nil {
		return nil
	}
	status := 0
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	}
	return upstream.Classify(service, status, err)
}
