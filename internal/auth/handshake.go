// Package auth serializes OAuth authorizations so that a provider callback can be bound to the user that started it.
package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/collaby/collaby-bot/internal/credentials"
	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const DefaultCapacity = 5

var (
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	ErrEmptyQueue           = errors.New("no pending authorization")
	ErrStateMismatch        = errors.New("authorization state mismatch")
	ErrBusy                 = errors.New("too many pending authorizations")
	ErrAlreadyPending       = errors.New("authorization already in progress")
)

// URLBuilder returns the provider authorization URL for a state value.
type URLBuilder interface {
	AuthCodeURL(state string) string
}

// Callback is the provider answer to an authorization.
type Callback struct {
	State  string
	Token  string
	Expiry time.Time
}

type pending struct {
	user  string
	state string
	timer *time.Timer
}

// Handshake is the pending-authorization state machine of one external system.
// At most one authorization is outstanding; further Begin calls wait for it to complete.
type Handshake struct {
	mu          sync.Mutex
	logger      *slog.Logger
	urls        URLBuilder
	creds       *credentials.Store
	hold        chan struct{}
	queue       []*pending
	waiting     int
	// users holds everyone waiting for or holding the handshake.
	users       map[string]struct{}
	capacity    int
	holdTimeout time.Duration
	newState    func() string
}

type Option func(*Handshake)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handshake) {
		h.logger = logger
	}
}

// WithCapacity bounds the number of users waiting for or holding the handshake.
func WithCapacity(n int) Option {
	return func(h *Handshake) {
		h.capacity = n
	}
}

// WithHoldTimeout abandons an authorization that received no callback within d.
func WithHoldTimeout(d time.Duration) Option {
	return func(h *Handshake) {
		h.holdTimeout = d
	}
}

func WithStateGenerator(fn func() string) Option {
	return func(h *Handshake) {
		h.newState = fn
	}
}

func New(urls URLBuilder, creds *credentials.Store, opts ...Option) *Handshake {
	_inst := &Handshake{
		urls:     urls,
		creds:    creds,
		hold:     make(chan struct{}, 1),
		users:    make(map[string]struct{}),
		capacity: DefaultCapacity,
		newState: uuid.NewString,
	}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	if _inst.capacity < 1 {
		_inst.capacity = 1
	}
	_inst.logger = _inst.logger.With("component", "auth", "system", creds.System())
	return _inst
}

// Begin waits for the handshake to be free, enqueues userID and returns the URL the user must visit.
// A user may have a single authorization in flight.
func (h *Handshake) Begin(ctx context.Context, userID string) (string, error) {
	if h.creds.Valid(userID) {
		return "", ErrAlreadyAuthenticated
	}

	h.mu.Lock()
	if _, ok := h.users[userID]; ok {
		h.mu.Unlock()
		return "", ErrAlreadyPending
	}
	if h.waiting+len(h.queue) >= h.capacity {
		h.mu.Unlock()
		return "", ErrBusy
	}
	h.waiting++
	h.users[userID] = struct{}{}
	h.mu.Unlock()

	select {
	case h.hold <- struct{}{}:
	case <-ctx.Done():
		h.mu.Lock()
		h.waiting--
		delete(h.users, userID)
		h.mu.Unlock()
		return "", errors.Wrap(ctx.Err(), "waiting for pending authorization")
	}

	// The credential may have been stored while waiting.
	if h.creds.Valid(userID) {
		h.mu.Lock()
		h.waiting--
		delete(h.users, userID)
		h.mu.Unlock()
		<-h.hold
		return "", ErrAlreadyAuthenticated
	}

	p := &pending{user: userID, state: h.newState()}
	h.mu.Lock()
	h.waiting--
	h.queue = append(h.queue, p)
	if h.holdTimeout > 0 {
		p.timer = time.AfterFunc(h.holdTimeout, func() { h.abandon(p) })
	}
	h.mu.Unlock()

	h.logger.Info("authorization started", slog.String("user", userID))
	return h.urls.AuthCodeURL(p.state), nil
}

// Complete binds the callback credential to the oldest pending user and releases the hold.
func (h *Handshake) Complete(cb Callback) (string, error) {
	h.mu.Lock()
	if len(h.queue) == 0 {
		h.mu.Unlock()
		return "", ErrEmptyQueue
	}
	p := h.queue[0]
	if cb.State != "" && p.state != "" && cb.State != p.state {
		h.mu.Unlock()
		return "", ErrStateMismatch
	}
	h.queue = h.queue[1:]
	delete(h.users, p.user)
	if p.timer != nil {
		p.timer.Stop()
	}
	h.mu.Unlock()

	h.creds.Put(p.user, credentials.Credential{Token: cb.Token, Expiry: cb.Expiry})
	<-h.hold
	h.logger.Info("authorization completed", slog.String("user", p.user))
	return p.user, nil
}

func (h *Handshake) abandon(p *pending) {
	h.mu.Lock()
	if len(h.queue) == 0 || h.queue[0] != p {
		h.mu.Unlock()
		return
	}
	h.queue = h.queue[1:]
	delete(h.users, p.user)
	h.mu.Unlock()

	<-h.hold
	h.logger.Warn("authorization abandoned", slog.String("user", p.user))
}

// State returns the state value of the outstanding authorization.
func (h *Handshake) State() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.queue) == 0 {
		return "", false
	}
	return h.queue[0].state, true
}

// Pending returns the number of users holding or waiting for the handshake.
func (h *Handshake) Pending() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.waiting + len(h.queue)
}
