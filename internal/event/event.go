// Package event defines the normalized, kind-tagged representation of an inbound webhook delivery.
package event

import (
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Kind is the event kind a subscription targets.
type Kind string

const (
	Commit      Kind = "commit"
	Issue       Kind = "issue"
	PullRequest Kind = "pull_request"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{PullRequest, Issue, Commit}

// ErrUnknownKind is returned by ParseKind for unsupported input.
var ErrUnknownKind = errors.New("unknown event kind")

// ParseKind accepts a kind name or one of its command aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "commit", "commits", "push":
		return Commit, nil
	case "issue", "issues":
		return Issue, nil
	case "pull_request", "pull-request", "pull-requests", "pull_requests", "pr", "prs":
		return PullRequest, nil
	default:
		return "", errors.Wrapf(ErrUnknownKind, "%q", s)
	}
}

// Label is the human readable plural name of the kind.
func (k Kind) Label() string {
	switch k {
	case Commit:
		return "commits"
	case Issue:
		return "issues"
	case PullRequest:
		return "pull requests"
	default:
		return string(k)
	}
}

// Event is a normalized webhook delivery. Exactly one of Commit, Issue and PullRequest is set, matching Kind.
type Event struct {
	Kind       Kind
	Repository string
	Branch     string
	Action     string
	Actor      string
	Timestamp  time.Time
	URL        string

	Commit      *CommitDetails
	Issue       *IssueDetails
	PullRequest *PullRequestDetails
}

// CommitDetails carries the head commit of a push.
type CommitDetails struct {
	Message string
}

// IssueDetails carries the issue body.
type IssueDetails struct {
	Body string
}

// PullRequestDetails carries the pull request body and optional review data.
type PullRequestDetails struct {
	Body              string
	Review            *Review
	RequestedReviewer string
}

// Review is a submitted pull request review.
type Review struct {
	Reviewer    string
	Body        string
	State       string
	SubmittedAt time.Time
}

// LogValue implements slog.LogValuer.
func (e *Event) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", string(e.Kind)),
		slog.String("repository", e.Repository),
		slog.String("branch", e.Branch),
		slog.String("action", e.Action),
		slog.String("actor", e.Actor),
	)
}

// Validate checks the tag and payload agree.
func (e *Event) Validate() error {
	if e.Repository == "" {
		return &ParseError{Field: "repository.full_name"}
	}
	var ok bool
	switch e.Kind {
	case Commit:
		ok = e.Commit != nil
	case Issue:
		ok = e.Issue != nil
	case PullRequest:
		ok = e.PullRequest != nil
	default:
		return errors.Wrapf(ErrUnknownKind, "%q", e.Kind)
	}
	if !ok {
		return errors.Errorf("event of kind %s carries no payload", e.Kind)
	}
	return nil
}
