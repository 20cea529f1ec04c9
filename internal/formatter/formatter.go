// Package formatter renders normalized events into deterministic, multi-line notification text.
package formatter

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/collaby/collaby-bot/internal/event"
	"github.com/pkg/errors"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("notifications").Funcs(StandardFuncs).ParseFS(templateFS, "templates/*.tmpl"))

// Variant names the rendering selected for an event.
type Variant string

const (
	VariantCommit                     Variant = "commit"
	VariantIssue                      Variant = "issue"
	VariantPullRequest                Variant = "pull_request"
	VariantPullRequestReview          Variant = "pull_request_review"
	VariantPullRequestReviewRequested Variant = "pull_request_review_requested"
)

// Notification colors, one per event kind.
const (
	ColorPullRequest = 0x1abc9c
	ColorIssue       = 0xe91e63
	ColorCommit      = 0x9b59b6
)

// SelectVariant picks exactly one rendering for e.
// Pull requests prefer review data, then a requested reviewer, then the base rendering.
func SelectVariant(e *event.Event) (Variant, error) {
	switch e.Kind {
	case event.Commit:
		return VariantCommit, nil
	case event.Issue:
		return VariantIssue, nil
	case event.PullRequest:
		if e.PullRequest == nil {
			return VariantPullRequest, nil
		}
		if e.PullRequest.Review != nil {
			return VariantPullRequestReview, nil
		}
		if e.Action == "review_requested" {
			return VariantPullRequestReviewRequested, nil
		}
		return VariantPullRequest, nil
	default:
		return "", errors.Wrapf(event.ErrUnknownKind, "%q", e.Kind)
	}
}

// Render produces the notification body for e.
func Render(e *event.Event) (string, error) {
	if e == nil {
		return "", errors.New("nil event")
	}
	if err := e.Validate(); err != nil {
		return "", errors.Wrap(err, "invalid event")
	}
	variant, err := SelectVariant(e)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err = templates.ExecuteTemplate(&buf, string(variant)+".tmpl", e); err != nil {
		return "", errors.Wrapf(err, "failed to render %s notification", variant)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Title is a one-line summary suitable for a message heading.
func Title(e *event.Event) string {
	variant, _ := SelectVariant(e)
	switch variant {
	case VariantCommit:
		return fmt.Sprintf("%s: new commit on %s", e.Repository, e.Branch)
	case VariantIssue:
		return fmt.Sprintf("%s: issue %s", e.Repository, humanize(e.Action))
	case VariantPullRequestReview:
		return fmt.Sprintf("%s: pull request reviewed", e.Repository)
	case VariantPullRequestReviewRequested:
		return fmt.Sprintf("%s: review requested", e.Repository)
	case VariantPullRequest:
		return fmt.Sprintf("%s: pull request %s", e.Repository, humanize(e.Action))
	default:
		return e.Repository
	}
}

// Color returns the notification color for a kind.
func Color(k event.Kind) int {
	switch k {
	case event.PullRequest:
		return ColorPullRequest
	case event.Issue:
		return ColorIssue
	default:
		return ColorCommit
	}
}
