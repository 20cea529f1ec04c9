package commands

import (
	"log/slog"
	"time"

	"github.com/collaby/collaby-bot/internal/binding"
	"github.com/collaby/collaby-bot/internal/credentials"
)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) {
		h.logger = logger
	}
}

func WithCodeHost(c CodeHost) Option {
	return func(h *Handlers) {
		h.codeHost = c
	}
}

func WithTracker(t Tracker) Option {
	return func(h *Handlers) {
		h.tracker = t
	}
}

// WithGitHubAuth sets the GitHub credential store and the handshake that fills it.
func WithGitHubAuth(creds *credentials.Store, a Authorizer) Option {
	return func(h *Handlers) {
		h.githubCreds = creds
		h.githubAuth = a
	}
}

// WithJiraAuth sets the Jira credential store and the handshake that fills it.
func WithJiraAuth(creds *credentials.Store, a Authorizer) Option {
	return func(h *Handlers) {
		h.jiraCreds = creds
		h.jiraAuth = a
	}
}

func WithBindings(b *binding.Store) Option {
	return func(h *Handlers) {
		h.bindings = b
	}
}

func WithConfirmer(c Confirmer) Option {
	return func(h *Handlers) {
		h.confirmer = c
	}
}

// WithConfirmTimeout bounds the wait for a yes/no answer.
func WithConfirmTimeout(d time.Duration) Option {
	return func(h *Handlers) {
		h.confirmTimeout = d
	}
}

// WithTimeout bounds each call to an external service.
func WithTimeout(d time.Duration) Option {
	return func(h *Handlers) {
		h.timeout = d
	}
}

func WithMessenger(m Messenger) Option {
	return func(h *Handlers) {
		h.messenger = m
	}
}

// WithWebhook sets the delivery URL, secret and events of the hooks created by repository add.
func WithWebhook(url, secret string, events []string) Option {
	return func(h *Handlers) {
		h.hookURL = url
		h.hookSecret = secret
		h.hookEvents = events
	}
}
