package event

import (
	"encoding/json"
	"fmt"

	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/google/go-github/v84/github"
	"github.com/pkg/errors"
)

// ErrUnhandledEvent is returned for webhook event types that never produce a notification.
var ErrUnhandledEvent = errors.New("unhandled event type")

// ParseError reports a delivery missing a field that has no sane default.
type ParseError struct {
	Field string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed payload: %s: %v", e.Field, e.Cause)
	}
	return fmt.Sprintf("malformed payload: missing %s", e.Field)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Routable reports whether a webhook event type can produce an Event.
func Routable(eventType string) bool {
	switch eventType {
	case "push", "issues", "pull_request", "pull_request_review":
		return true
	default:
		return false
	}
}

// Normalize turns a webhook delivery into an Event.
func Normalize(eventType string, body []byte) (*Event, error) {
	if !Routable(eventType) {
		return nil, errors.Wrap(ErrUnhandledEvent, eventType)
	}
	payload, err := github.ParseWebHook(eventType, body)
	if err != nil {
		return nil, &ParseError{Field: "body", Cause: err}
	}

	var e *Event
	switch p := payload.(type) {
	case *github.PushEvent:
		e, err = fromPush(p)
	case *github.IssuesEvent:
		e, err = fromIssues(p)
	case *github.PullRequestEvent:
		e, err = fromPullRequest(p, body)
	case *github.PullRequestReviewEvent:
		e, err = fromPullRequestReview(p)
	default:
		return nil, errors.Wrapf(ErrUnhandledEvent, "%T", payload)
	}
	if err != nil {
		return nil, err
	}
	return e, e.Validate()
}

func fromPush(p *github.PushEvent) (*Event, error) {
	name := p.GetRepo().GetFullName()
	if name == "" {
		return nil, &ParseError{Field: "repository.full_name"}
	}
	if len(p.Commits) == 0 || p.Commits[0] == nil {
		return nil, &ParseError{Field: "commits"}
	}
	head := p.Commits[0]
	return &Event{
		Kind:       Commit,
		Repository: name,
		Branch:     helpers.BranchFromRef(p.Ref),
		Action:     "push",
		Actor:      head.GetAuthor().GetName(),
		Timestamp:  head.GetTimestamp().Time,
		URL:        head.GetURL(),
		Commit:     &CommitDetails{Message: head.GetMessage()},
	}, nil
}

func fromIssues(p *github.IssuesEvent) (*Event, error) {
	name := p.GetRepo().GetFullName()
	if name == "" {
		return nil, &ParseError{Field: "repository.full_name"}
	}
	issue := p.GetIssue()
	return &Event{
		Kind:       Issue,
		Repository: name,
		Branch:     helpers.DefaultBranch,
		Action:     p.GetAction(),
		Actor:      issue.GetUser().GetLogin(),
		Timestamp:  issue.GetCreatedAt().Time,
		URL:        issue.GetHTMLURL(),
		Issue:      &IssueDetails{Body: issue.GetBody()},
	}, nil
}

// reviewEnvelope picks up a review sub-payload forwarded on a pull_request delivery.
type reviewEnvelope struct {
	Review *github.PullRequestReview `json:"review,omitempty"`
}

func fromPullRequest(p *github.PullRequestEvent, body []byte) (*Event, error) {
	name := p.GetRepo().GetFullName()
	if name == "" {
		return nil, &ParseError{Field: "repository.full_name"}
	}
	var extra reviewEnvelope
	_ = json.Unmarshal(body, &extra)

	pr := p.GetPullRequest()
	e := &Event{
		Kind:       PullRequest,
		Repository: name,
		Branch:     helpers.DefaultBranch,
		Action:     p.GetAction(),
		Actor:      pr.GetUser().GetLogin(),
		Timestamp:  pr.GetUpdatedAt().Time,
		URL:        pr.GetHTMLURL(),
		PullRequest: &PullRequestDetails{
			Body:              pr.GetBody(),
			RequestedReviewer: p.GetRequestedReviewer().GetLogin(),
		},
	}
	if p.RequestedTeam != nil && e.PullRequest.RequestedReviewer == "" {
		e.PullRequest.RequestedReviewer = p.RequestedTeam.GetName()
	}
	attachReview(e, extra.Review)
	return e, nil
}

func fromPullRequestReview(p *github.PullRequestReviewEvent) (*Event, error) {
	name := p.GetRepo().GetFullName()
	if name == "" {
		return nil, &ParseError{Field: "repository.full_name"}
	}
	pr := p.GetPullRequest()
	e := &Event{
		Kind:        PullRequest,
		Repository:  name,
		Branch:      helpers.DefaultBranch,
		Action:      p.GetAction(),
		Actor:       pr.GetUser().GetLogin(),
		Timestamp:   pr.GetUpdatedAt().Time,
		URL:         pr.GetHTMLURL(),
		PullRequest: &PullRequestDetails{Body: pr.GetBody()},
	}
	attachReview(e, p.Review)
	return e, nil
}

func attachReview(e *Event, r *github.PullRequestReview) {
	if r == nil {
		return
	}
	e.PullRequest.Review = &Review{
		Reviewer:    r.GetUser().GetLogin(),
		Body:        r.GetBody(),
		State:       r.GetState(),
		SubmittedAt: r.GetSubmittedAt().Time,
	}
	if !e.PullRequest.Review.SubmittedAt.IsZero() {
		e.Timestamp = e.PullRequest.Review.SubmittedAt
	}
	if url := r.GetHTMLURL(); url != "" {
		e.URL = url
	}
}

// RefChange is a branch created or deleted on a tracked repository.
type RefChange struct {
	Repository string
	Branch     string
	Deleted    bool
}

// NormalizeRefChange extracts a branch change from create and delete deliveries.
// Tag events yield a nil change and no error.
func NormalizeRefChange(eventType string, body []byte) (*RefChange, error) {
	payload, err := github.ParseWebHook(eventType, body)
	if err != nil {
		return nil, &ParseError{Field: "body", Cause: err}
	}
	var (
		ref, refType, name string
		deleted            bool
	)
	switch p := payload.(type) {
	case *github.CreateEvent:
		ref, refType, name = p.GetRef(), p.GetRefType(), p.GetRepo().GetFullName()
	case *github.DeleteEvent:
		ref, refType, name = p.GetRef(), p.GetRefType(), p.GetRepo().GetFullName()
		deleted = true
	default:
		return nil, errors.Wrapf(ErrUnhandledEvent, "%T", payload)
	}
	if refType != "branch" {
		return nil, nil
	}
	if name == "" {
		return nil, &ParseError{Field: "repository.full_name"}
	}
	if ref == "" {
		return nil, &ParseError{Field: "ref"}
	}
	return &RefChange{Repository: name, Branch: helpers.NormaliseRef(ref), Deleted: deleted}, nil
}
