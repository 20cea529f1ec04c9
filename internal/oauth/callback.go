package oauth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/collaby/collaby-bot/internal/auth"
	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/collaby/collaby-bot/internal/models"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Exchanger trades an authorization code for a token.
type Exchanger interface {
	Name() string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Completer binds a callback to the pending user.
type Completer interface {
	State() (string, bool)
	Complete(cb auth.Callback) (string, error)
}

// Messenger sends a direct message to a chat user.
type Messenger interface {
	DirectMessage(ctx context.Context, userID, title, body string) error
}

// Callback is the redirect endpoint of one provider.
type Callback struct {
	exchanger Exchanger
	handshake Completer
	messenger Messenger
	timeout   time.Duration
	logger    *slog.Logger
}

type Option func(*Callback)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Callback) {
		c.logger = logger
	}
}

// WithMessenger notifies the user once the account is linked.
func WithMessenger(m Messenger) Option {
	return func(c *Callback) {
		c.messenger = m
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Callback) {
		c.timeout = d
	}
}

func NewCallback(exchanger Exchanger, handshake Completer, opts ...Option) *Callback {
	_inst := &Callback{exchanger: exchanger, handshake: handshake, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("component", "oauth-callback", "provider", exchanger.Name())
	return _inst
}

func (c *Callback) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		helpers.RespondHTTP(models.Response{StatusCode: http.StatusMethodNotAllowed}, nil, rw)
		return
	}
	query := req.URL.Query()
	if reason := query.Get("error"); reason != "" {
		c.logger.Warn("authorization denied by provider", slog.String("reason", reason))
		helpers.RespondHTTP(models.Response{Body: "authorization denied", StatusCode: http.StatusOK}, nil, rw)
		return
	}
	code, state := query.Get("code"), query.Get("state")
	if code == "" {
		helpers.RespondHTTP(models.Response{Body: "missing code", StatusCode: http.StatusBadRequest}, nil, rw)
		return
	}

	pendingState, ok := c.handshake.State()
	if !ok {
		c.logger.Info("callback without pending authorization")
		helpers.RespondHTTP(models.Response{Body: "no pending authorization", StatusCode: http.StatusAccepted}, nil, rw)
		return
	}
	if state != "" && pendingState != "" && state != pendingState {
		c.logger.Warn("callback state mismatch")
		helpers.RespondHTTP(models.Response{Body: "state mismatch", StatusCode: http.StatusBadRequest}, auth.ErrStateMismatch, rw)
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), c.timeout)
	defer cancel()
	token, err := c.exchanger.Exchange(ctx, code)
	if err != nil {
		c.logger.Error("code exchange failed", slog.Any("error", err))
		helpers.RespondHTTP(models.Response{Body: "token exchange failed", StatusCode: http.StatusBadGateway}, nil, rw)
		return
	}

	userID, err := c.handshake.Complete(auth.Callback{State: state, Token: token.AccessToken, Expiry: token.Expiry})
	switch {
	case errors.Is(err, auth.ErrEmptyQueue):
		c.logger.Info("authorization was abandoned before the callback")
		helpers.RespondHTTP(models.Response{Body: "no pending authorization", StatusCode: http.StatusAccepted}, nil, rw)
		return
	case err != nil:
		c.logger.Warn("failed to complete authorization", slog.Any("error", err))
		helpers.RespondHTTP(models.Response{Body: "authorization failed", StatusCode: http.StatusBadRequest}, err, rw)
		return
	}

	if c.messenger != nil {
		if err = c.messenger.DirectMessage(ctx, userID, "Authorization Complete", "Your "+c.exchanger.Name()+" account is now linked."); err != nil {
			c.logger.Warn("failed to notify user", slog.String("user", userID), slog.Any("error", err))
		}
	}
	helpers.RespondHTTP(models.Response{Body: "authorization complete, you can close this window", StatusCode: http.StatusOK}, nil, rw)
}
