package oauth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/collaby/collaby-bot/internal/auth"
	"github.com/collaby/collaby-bot/internal/credentials"
	"github.com/collaby/collaby-bot/internal/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type recordingMessenger struct {
	mu    sync.Mutex
	users []string
}

func (r *recordingMessenger) DirectMessage(_ context.Context, userID, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userID)
	return nil
}

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		assert.NoError(t, req.ParseForm())
		assert.Equal(t, "the-code", req.PostForm.Get("code"))
		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthCodeURL(t *testing.T) {
	testCases := []struct {
		Name     string
		Provider *oauth.Provider
		Expected map[string]string
	}{
		{
			Name:     "github",
			Provider: oauth.NewGitHub("gh-client", "secret", "https://bot.example/auth/github/callback", []string{"repo"}),
			Expected: map[string]string{"client_id": "gh-client", "state": "s-1", "scope": "repo"},
		},
		{
			Name:     "atlassian",
			Provider: oauth.NewAtlassian("jira-client", "secret", "https://bot.example/auth/jira/callback", []string{"read:jira-work"}),
			Expected: map[string]string{"client_id": "jira-client", "state": "s-1", "audience": "api.atlassian.com", "prompt": "consent"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			u, err := url.Parse(tc.Provider.AuthCodeURL("s-1"))
			require.NoError(t, err)
			for k, v := range tc.Expected {
				assert.Equal(t, v, u.Query().Get(k), k)
			}
		})
	}
}

func TestRedirectURL(t *testing.T) {
	assert.Equal(t, "https://bot.example/auth/jira/callback", oauth.RedirectURL("https://bot.example/", "/auth/jira/callback"))
	assert.Equal(t, "https://bot.example/auth/jira/callback", oauth.RedirectURL("https://bot.example", "auth/jira/callback"))
}

func newCallback(t *testing.T) (*auth.Handshake, *credentials.Store, *recordingMessenger, http.Handler) {
	t.Helper()
	srv := tokenServer(t)
	provider := oauth.NewAtlassian("id", "secret", "https://bot.example/cb", nil).
		WithEndpoint(oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token", AuthStyle: oauth2.AuthStyleInParams})
	creds := credentials.New(credentials.Jira)
	handshake := auth.New(provider, creds, auth.WithStateGenerator(func() string { return "s-1" }))
	messenger := &recordingMessenger{}
	return handshake, creds, messenger, oauth.NewCallback(provider, handshake, oauth.WithMessenger(messenger))
}

func TestCallback(t *testing.T) {
	handshake, creds, messenger, _inst := newCallback(t)

	_, err := handshake.Begin(context.Background(), "alice")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	_inst.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/jira/callback?code=the-code&state=s-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, err := creds.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", c.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), c.Expiry, time.Minute)
	assert.Equal(t, []string{"alice"}, messenger.users)
	assert.Equal(t, 0, handshake.Pending())
}

func TestCallbackFailures(t *testing.T) {
	testCases := []struct {
		Name     string
		Begin    bool
		Method   string
		Query    string
		Expected int
	}{
		{Name: "empty queue", Query: "code=the-code&state=s-1", Expected: http.StatusAccepted},
		{Name: "missing code", Begin: true, Query: "state=s-1", Expected: http.StatusBadRequest},
		{Name: "state mismatch", Begin: true, Query: "code=the-code&state=other", Expected: http.StatusBadRequest},
		{Name: "provider error", Begin: true, Query: "error=access_denied", Expected: http.StatusOK},
		{Name: "method", Method: http.MethodPost, Query: "code=the-code", Expected: http.StatusMethodNotAllowed},
	}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			handshake, creds, messenger, _inst := newCallback(t)
			if tc.Begin {
				_, err := handshake.Begin(context.Background(), "alice")
				require.NoError(t, err)
			}
			method := tc.Method
			if method == "" {
				method = http.MethodGet
			}

			rec := httptest.NewRecorder()
			_inst.ServeHTTP(rec, httptest.NewRequest(method, "/cb?"+tc.Query, nil))
			assert.Equal(t, tc.Expected, rec.Code)
			assert.False(t, creds.Valid("alice"))
			assert.Empty(t, messenger.users)
			if tc.Begin {
				assert.Equal(t, 1, handshake.Pending(), "hold is kept")
			}
		})
	}
}
