// Package commands implements the chat command surface: argument validation, one call into the registry,
// credential stores or external controllers, and the mapping of the outcome to a titled Reply.
package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/collaby/collaby-bot/internal/binding"
	ghctl "github.com/collaby/collaby-bot/internal/controllers/github"
	jiractl "github.com/collaby/collaby-bot/internal/controllers/jira"
	"github.com/collaby/collaby-bot/internal/credentials"
	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/collaby/collaby-bot/internal/registry"
)

const (
	DefaultConfirmTimeout = 20 * time.Second
	DefaultTimeout        = 30 * time.Second

	// maxFields is the number of fields a chat embed can carry.
	maxFields = 25
)

// Severity selects the color of a Reply.
type Severity int

const (
	Success Severity = iota
	Info
	Failure
	Listing
)

// Color returns the embed color of the severity.
func (s Severity) Color() int {
	switch s {
	case Success:
		return 0x2ecc71
	case Info:
		return 0xf1c40f
	case Failure:
		return 0xe74c3c
	default:
		return 0x5865f2
	}
}

// Scope identifies where a command was invoked and by whom. Names are for display only.
type Scope struct {
	Server      string
	Channel     string
	User        string
	ChannelName string
	UserName    string
}

// ChannelLabel is the channel as shown in replies.
func (s Scope) ChannelLabel() string {
	if s.ChannelName != "" {
		return "#" + s.ChannelName
	}
	return "<#" + s.Channel + ">"
}

// UserLabel is the invoking user as shown in replies.
func (s Scope) UserLabel() string {
	if s.UserName != "" {
		return s.UserName
	}
	return "<@" + s.User + ">"
}

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Reply is the structured answer to a command. Private replies are only shown to the invoking user.
type Reply struct {
	Title       string
	Description string
	Severity    Severity
	Fields      []Field
	Private     bool
}

// Confirmer asks the invoking user a yes/no question. Implementations must return when ctx is done.
type Confirmer interface {
	Confirm(ctx context.Context, scope Scope, prompt string) (bool, error)
}

// Messenger delivers a direct message to a user.
type Messenger interface {
	DirectMessage(ctx context.Context, userID, title, body string) error
}

// Authorizer starts an OAuth authorization for a user.
type Authorizer interface {
	Begin(ctx context.Context, userID string) (string, error)
}

// CodeHost is the subset of the GitHub controller used by commands.
type CodeHost interface {
	RegisterWebhooks(ctx context.Context, token, fullName, hookURL, secret string, events []string) (*ghctl.HookReport, error)
	RemoveWebhooks(ctx context.Context, token, fullName, hookURL string) (int, error)
	Branches(ctx context.Context, token, fullName string) ([]string, error)
	OpenPullRequests(ctx context.Context, token, fullName string) ([]ghctl.PullRequest, error)
}

// Tracker is the subset of the Jira controller used by commands.
type Tracker interface {
	Sites(ctx context.Context, token string) ([]jiractl.Site, error)
	Issue(ctx context.Context, token, siteID, key string) (*jiractl.Issue, error)
	AssignableUsers(ctx context.Context, token, siteID, issueKey string) ([]jiractl.User, error)
	Assign(ctx context.Context, token, siteID, issueKey, accountID string) error
	Unassign(ctx context.Context, token, siteID, issueKey string) error
	Projects(ctx context.Context, token, siteID string) ([]jiractl.Project, error)
	ActiveSprint(ctx context.Context, token, siteID, project string) (*jiractl.Sprint, error)
}

// Handlers holds the collaborators of every command. It is safe for concurrent use.
type Handlers struct {
	logger         *slog.Logger
	registry       *registry.Registry
	codeHost       CodeHost
	tracker        Tracker
	githubCreds    *credentials.Store
	jiraCreds      *credentials.Store
	githubAuth     Authorizer
	jiraAuth       Authorizer
	bindings       *binding.Store
	confirmer      Confirmer
	messenger      Messenger
	confirmTimeout time.Duration
	timeout        time.Duration
	hookURL        string
	hookSecret     string
	hookEvents     []string
}

type Option func(*Handlers)

// New returns the command handlers over reg. Credential stores and bindings default to empty in-memory stores.
func New(reg *registry.Registry, opts ...Option) *Handlers {
	_inst := &Handlers{
		registry:       reg,
		confirmTimeout: DefaultConfirmTimeout,
		timeout:        DefaultTimeout,
	}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	if _inst.githubCreds == nil {
		_inst.githubCreds = credentials.New(credentials.GitHub)
	}
	if _inst.jiraCreds == nil {
		_inst.jiraCreds = credentials.New(credentials.Jira)
	}
	if _inst.bindings == nil {
		_inst.bindings = binding.New()
	}
	_inst.logger = _inst.logger.With("component", "commands")
	return _inst
}

func (h *Handlers) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

// confirm treats every failure, including an expired wait, as a refusal.
func (h *Handlers) confirm(ctx context.Context, scope Scope, prompt string) bool {
	if h.confirmer == nil {
		return false
	}
	if h.confirmTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.confirmTimeout)
		defer cancel()
	}
	ok, err := h.confirmer.Confirm(ctx, scope, prompt)
	if err != nil {
		h.logger.Debug("confirmation not received", slog.String("user", scope.User), slog.Any("error", err))
		return false
	}
	return ok
}
