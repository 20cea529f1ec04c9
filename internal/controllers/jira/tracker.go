package jira

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/collaby/collaby-bot/internal/upstream"
	"github.com/pkg/errors"
)

// ErrUnknownUser is returned when an assignee matches no assignable user.
var ErrUnknownUser = errors.New("unknown user")

// Issue is the summary of a Jira issue.
type Issue struct {
	Key         string
	Summary     string
	Description string
	Assignee    string
	AssigneeID  string
	Status      string
	StoryPoints float64
	ResolvedAt  time.Time
}

// User is an assignable Jira account.
type User struct {
	AccountID   string
	DisplayName string
}

// Project is a Jira project visible to the user.
type Project struct {
	ID   string
	Key  string
	Name string
}

// Issue fetches one issue.
func (j *Controller) Issue(ctx context.Context, token, siteID, key string) (*Issue, error) {
	c, err := j.client(token, siteID)
	if err != nil {
		return nil, err
	}
	raw, resp, err := c.Issue.GetWithContext(ctx, key, nil)
	if err != nil {
		return nil, errors.Wrapf(classify(resp, err), "failed to get issue %s", key)
	}
	return j.toIssue(raw), nil
}

// AssignableUsers lists the users that may be assigned issues of the project owning issueKey.
func (j *Controller) AssignableUsers(ctx context.Context, token, siteID, issueKey string) ([]User, error) {
	c, err := j.client(token, siteID)
	if err != nil {
		return nil, err
	}
	project, _, _ := strings.Cut(issueKey, "-")
	q := url.Values{}
	q.Set("projectKeys", project)
	q.Set("maxResults", "200")
	req, err := c.NewRequestWithContext(ctx, http.MethodGet, "rest/api/2/user/assignable/multiProjectSearch?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build assignable users request")
	}
	var raw []jira.User
	resp, err := c.Do(req, &raw)
	if err != nil {
		return nil, errors.Wrapf(classify(resp, err), "failed to list assignable users of %s", project)
	}
	users := make([]User, 0, len(raw))
	for _, u := range raw {
		users = append(users, User{AccountID: u.AccountID, DisplayName: u.DisplayName})
	}
	return users, nil
}

// ResolveUser matches who against the assignable users by account id, then by display name.
func ResolveUser(users []User, who string) (User, error) {
	for _, u := range users {
		if u.AccountID == who {
			return u, nil
		}
	}
	for _, u := range users {
		if strings.EqualFold(u.DisplayName, who) {
			return u, nil
		}
	}
	return User{}, &upstream.Error{Service: service, Kind: upstream.NotFound, Cause: errors.Wrapf(ErrUnknownUser, "%q", who)}
}

// Assign sets the assignee of issueKey.
func (j *Controller) Assign(ctx context.Context, token, siteID, issueKey, accountID string) error {
	c, err := j.client(token, siteID)
	if err != nil {
		return err
	}
	resp, err := c.Issue.UpdateAssigneeWithContext(ctx, issueKey, &jira.User{AccountID: accountID})
	return errors.Wrapf(classify(resp, err), "failed to assign %s", issueKey)
}

// Unassign clears the assignee of issueKey.
func (j *Controller) Unassign(ctx context.Context, token, siteID, issueKey string) error {
	c, err := j.client(token, siteID)
	if err != nil {
		return err
	}
	req, err := c.NewRequestWithContext(ctx, http.MethodPut, "rest/api/2/issue/"+url.PathEscape(issueKey)+"/assignee", map[string]any{"accountId": nil})
	if err != nil {
		return errors.Wrap(err, "failed to build unassign request")
	}
	resp, err := c.Do(req, nil)
	return errors.Wrapf(classify(resp, err), "failed to unassign %s", issueKey)
}

// Projects lists the projects visible to the user.
func (j *Controller) Projects(ctx context.Context, token, siteID string) ([]Project, error) {
	c, err := j.client(token, siteID)
	if err != nil {
		return nil, err
	}
	list, resp, err := c.Project.GetListWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(classify(resp, err), "failed to list projects")
	}
	projects := make([]Project, 0, len(*list))
	for _, p := range *list {
		projects = append(projects, Project{ID: p.ID, Key: p.Key, Name: p.Name})
	}
	return projects, nil
}

func (j *Controller) toIssue(raw *jira.Issue) *Issue {
	out := &Issue{Key: raw.Key}
	f := raw.Fields
	if f == nil {
		return out
	}
	out.Summary = f.Summary
	out.Description = f.Description
	if f.Assignee != nil {
		out.Assignee = f.Assignee.DisplayName
		out.AssigneeID = f.Assignee.AccountID
	}
	if f.Status != nil {
		out.Status = f.Status.Name
	}
	if t := time.Time(f.Resolutiondate); !t.IsZero() {
		out.ResolvedAt = t
	}
	if v, ok := f.Unknowns[j.storyPointsField].(float64); ok {
		out.StoryPoints = v
	}
	return out
}
