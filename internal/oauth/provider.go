// Package oauth wires the delegated authorization of external accounts: provider configuration and the redirect callback.
package oauth

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

// AtlassianEndpoint is the Atlassian Cloud 3LO authorization server.
var AtlassianEndpoint = oauth2.Endpoint{
	AuthURL:   "https://auth.atlassian.com/authorize",
	TokenURL:  "https://auth.atlassian.com/oauth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Provider builds authorization URLs and exchanges codes for one external system.
type Provider struct {
	name   string
	config *oauth2.Config
	params []oauth2.AuthCodeOption
}

// NewGitHub returns the GitHub OAuth app provider.
func NewGitHub(clientID, clientSecret, redirectURL string, scopes []string) *Provider {
	return &Provider{
		name: "github",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     githuboauth.Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
		},
	}
}

// NewAtlassian returns the Jira Cloud provider. The audience and prompt parameters are required by Atlassian.
func NewAtlassian(clientID, clientSecret, redirectURL string, scopes []string) *Provider {
	return &Provider{
		name: "jira",
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     AtlassianEndpoint,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
		},
		params: []oauth2.AuthCodeOption{
			oauth2.SetAuthURLParam("audience", "api.atlassian.com"),
			oauth2.SetAuthURLParam("prompt", "consent"),
		},
	}
}

// WithEndpoint overrides the authorization server.
func (p *Provider) WithEndpoint(endpoint oauth2.Endpoint) *Provider {
	p.config.Endpoint = endpoint
	return p
}

func (p *Provider) Name() string {
	return p.name
}

// AuthCodeURL returns the URL the user visits to grant access.
func (p *Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state, p.params...)
}

// Exchange trades an authorization code for a token.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("missing authorization code")
	}
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrapf(err, "%s token exchange failed", p.name)
	}
	return token, nil
}

// RedirectURL joins the public base URL and a callback path.
func RedirectURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
