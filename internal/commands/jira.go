package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/collaby/collaby-bot/internal/binding"
	jiractl "github.com/collaby/collaby-bot/internal/controllers/jira"
	"github.com/collaby/collaby-bot/internal/credentials"
	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/pkg/errors"
)

const (
	usageInstanceSet = "/jira instance set <INSTANCE_NAME>"
	usageIssueGet    = "/jira issue get <ISSUE_ID>"
	usageAssign      = "/jira issue assign <ISSUE_ID> [USER]"
	usageUnassign    = "/jira issue unassign <ISSUE_ID>"
	usageSprint      = "/jira sprint <PROJECT_KEY>"

	descriptionLimit = 1024
)

// trackerSession resolves the credential of the user, then the site bound to the server.
// An expired credential stops here, before any call reaches the tracker.
func (h *Handlers) trackerSession(scope Scope) (string, binding.Site, error) {
	if h.tracker == nil {
		return "", binding.Site{}, errNotConfigured
	}
	c, err := h.jiraCreds.Get(scope.User)
	if err != nil {
		return "", binding.Site{}, err
	}
	site, err := h.bindings.Get(scope.Server)
	if err != nil {
		return "", binding.Site{}, err
	}
	return c.Token, site, nil
}

// InstanceSet binds the server to the Jira site named name among the sites the user can access.
// Replacing an existing binding requires confirmation.
func (h *Handlers) InstanceSet(ctx context.Context, scope Scope, name string) Reply {
	name = strings.TrimSpace(name)
	if name == "" {
		return usage(usageInstanceSet)
	}
	if h.tracker == nil {
		return h.reply(scope, credentials.Jira, errNotConfigured)
	}
	c, err := h.jiraCreds.Get(scope.User)
	if err != nil {
		return h.reply(scope, credentials.Jira, err)
	}

	callCtx, cancel := h.withTimeout(ctx)
	sites, err := h.tracker.Sites(callCtx, c.Token)
	cancel()
	if err != nil {
		return h.reply(scope, credentials.Jira, err)
	}
	var found *jiractl.Site
	for i := range sites {
		if strings.EqualFold(sites[i].Name, name) {
			found = &sites[i]
			break
		}
	}
	if found == nil {
		return failure("Instance Not Found", "Could not find Jira instance named %s within %s's scope.", name, scope.UserLabel())
	}
	site := binding.Site{ID: found.ID, Name: found.Name, URL: found.URL}

	current, err := h.bindings.Set(scope.Server, site, false)
	if errors.Is(err, binding.ErrAlreadyBound) {
		if current.ID == site.ID {
			return info("Instance Already Set", "This server is already linked to %s.", current.Name)
		}
		prompt := fmt.Sprintf("This server is already linked to the %s instance. Replace it with %s? (yes/no)", current.Name, site.Name)
		if !h.confirm(ctx, scope, prompt) {
			return info("Instance Not Changed", "The instance will not be changed to %s.", site.Name)
		}
		_, err = h.bindings.Set(scope.Server, site, true)
	}
	if err != nil {
		return h.reply(scope, credentials.Jira, err)
	}
	return success("You can now use Jira commands to access projects in %s!", site.Name)
}

// InstanceGet shows the site bound to the server.
func (h *Handlers) InstanceGet(_ context.Context, scope Scope) Reply {
	site, err := h.bindings.Get(scope.Server)
	if err != nil {
		return h.reply(scope, credentials.Jira, err)
	}
	return Reply{
		Title:       "Current Jira Instance",
		Description: site.Name,
		Severity:    Listing,
		Fields:      []Field{{Name: "URL", Value: helpers.Coalesce(site.URL, "unknown")}},
	}
}

// InstanceRemove unbinds the server from its site after confirmation.
func (h *Handlers) InstanceRemove(ctx context.Context, scope Scope) Reply {
	site, err := h.bindings.Get(scope.Server)
	if err != nil {
		return h.reply(scope, credentials.Jira, err)
	}
	prompt := fmt.Sprintf("Are you sure you want to remove %s from this server? It can be set again with /jira instance set. (yes/no)", site.Name)
	if !h.confirm(ctx, scope, prompt) {
		return info("Instance Not Removed", "%s will not be removed from this server.", site.Name)
	}
	if _, err = h.bindings.Remove(scope.Server); err != nil {
		return h.reply(scope, credentials.Jira, err)
	}
	return success("%s is no longer associated with this server.", site.Name)
}

// IssueGet shows the summary, description, assignee and status of an issue.
func (h *Handlers) IssueGet(ctx context.Context, scope Scope, key string) Reply {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" {
		return usage(usageIssueGet)
	}
	token, site, err := h.trackerSession(scope)
	if err != nil {
		return h.reply(scope, credentials.Jira, err)
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	issue, err := h.tracker.Issue(ctx, token, site.ID, key)
	if err != nil {
		return h.reply(scope, credentials.Jira, err)
	}
	r := Reply{
		Title:    issue.Key,
		Severity: Listing,
		Fields: []Field{
			{Name: "Summary", Value: helpers.Coalesce(issue.Summary, "No summary")},
			{Name: "Description", Value: helpers.Truncate(helpers.Coalesce(issue.Description, "No description"), descriptionLimit)},
			{Name: "Assignee", Value: helpers.Coalesce(issue.Assignee, "Unassigned")},
			{Name: "Status", Value: helpers.Coalesce(issue.Status, "Unknown")},
		},
	}
	if issue.StoryPoints > 0 {
		r.Fields = append(r.Fields, Field{Name: "Story Points", Value: formatPoints(issue.StoryPoints)})
	}
	return r
}

// IssueAssign assigns an issue to who. Without who it lists the assignable users. Reassigning an issue
// that already has another assignee requires confirmation.
func (h *Handlers) IssueAssign(ctx context.Context, scope Scope, key, who string) Reply {
	key = strings.ToUpper(strings.TrimSpace(key))
	who = strings.TrimSpace(who)
	if key == "" {
		return usage(usageAssign)
	}
	token, site, err := h.trackerSession(scope)
	if err != nil {
		return h.reply(scope, credentials.Jira, err)
	}

	callCtx, cancel := h.withTimeout(ctx)
	users, err := h.tracker.AssignableUsers(callCtx, token, site.ID, key)
	cancel()
	if err != nil {
		return h.reply(scope, credentials.Jira, err)
	}
	if who == "" {
		r := Reply{Title: "Assignable Users", Description: usageAssign, Severity: Info}
		for _, u := range users {
			r.Fields = append(r.Fields, Field{Name: u.DisplayName, Value: u.AccountID})
		}
		return limitFields(r)
	}
	user, err := jiractl.ResolveUser(users, who)
	if err != nil {
		return failure("User Error", "User %s not found.", who)
	}

	callCtx, cancel = h.withTimeout(ctx)
	issue, err := h.tracker.Issue(callCtx, token, site.ID, key)
	cancel()
	if err != nil {
		return h.reply(scope, credentials.Jira, err)
	}
	if issue.AssigneeID == user.AccountID {
		return info("Already Assigned", "%s is already assigned to %s.", key, user.DisplayName)
	}
	if issue.AssigneeID != "" {
		prompt := fmt.Sprintf("%s is already assigned to %s. Reassign to %s? (yes/no)", key, issue.Assignee, user.DisplayName)
		if !h.confirm(ctx, scope, prompt) {
			return info("Not Reassigned", "%s will not be reassigned to %s.", key, user.DisplayName)
		}
	}

	callCtx, cancel = h.withTimeout(ctx)
	defer cancel()
	if err = h.tracker.Assign(callCtx, token, site.ID, key, user.AccountID); err != nil {
		return h.reply(scope, credentials.Jira, err)
	}
	h.logger.Info("issue assigned", slog.String("issue", key), slog.String("assignee", user.AccountID))
	return success("Successfully assigned %s to %s!", key, user.DisplayName)
}

// IssueUnassign clears the assignee of an issue.
func (h *Handlers) IssueUnassign(ctx context.Context, scope Scope, key string) Reply {
	key = strings.ToUpper(strings.TrimSpace(key))
	if key == "" {
		return usage(usageUnassign)
	}
	token, site, err := h.trackerSession(scope)
	if err != nil {
		return h.reply(scope, credentials.Jira, err)
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	if err = h.tracker.Unassign(ctx, token, site.ID, key); err != nil {
		return h.reply(scope, credentials.Jira, err)
	}
	return success("%s has been unassigned.", key)
}

// Sprint summarizes the active sprint of a project. Without a project it lists the available projects.
func (h *Handlers) Sprint(ctx context.Context, scope Scope, project string) Reply {
	project = strings.ToUpper(strings.TrimSpace(project))
	token, site, err := h.trackerSession(scope)
	if err != nil {
		return h.reply(scope, credentials.Jira, err)
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	if project == "" {
		projects, err := h.tracker.Projects(ctx, token, site.ID)
		if err != nil {
			return h.reply(scope, credentials.Jira, err)
		}
		r := Reply{Title: "Available Projects", Description: usageSprint, Severity: Info}
		for _, p := range projects {
			r.Fields = append(r.Fields, Field{Name: p.Name, Value: fmt.Sprintf("Key: %s\nProject ID: %s", p.Key, p.ID)})
		}
		return limitFields(r)
	}

	sprint, err := h.tracker.ActiveSprint(ctx, token, site.ID, project)
	if err != nil {
		return h.reply(scope, credentials.Jira, err)
	}
	if len(sprint.Issues) == 0 {
		return info("No Active Sprint", "%s has no issues in an active sprint.", project)
	}
	return sprintReply(project, sprint)
}

func sprintReply(project string, sprint *jiractl.Sprint) Reply {
	var done float64
	for _, i := range sprint.Issues {
		if !i.ResolvedAt.IsZero() {
			done += i.StoryPoints
		}
	}
	r := Reply{
		Title: "Active Sprint",
		Description: fmt.Sprintf("%s: %d issues, %s of %s points remaining",
			helpers.Coalesce(sprint.Name, project), len(sprint.Issues), formatPoints(sprint.TotalPoints-done), formatPoints(sprint.TotalPoints)),
		Severity: Listing,
	}
	if !sprint.Start.IsZero() && !sprint.End.IsZero() {
		r.Fields = append(r.Fields, Field{
			Name:  "Dates",
			Value: fmt.Sprintf("%s to %s", sprint.Start.Format("2006-01-02"), sprint.End.Format("2006-01-02")),
		})
	}
	if len(sprint.Burndown) > 0 {
		lines := make([]string, 0, len(sprint.Burndown))
		for _, p := range sprint.Burndown {
			lines = append(lines, fmt.Sprintf("%s: %s remaining (ideal %s)", p.Date.Format("01-02"), formatPoints(p.Remaining), formatPoints(p.Ideal)))
		}
		r.Fields = append(r.Fields, Field{Name: "Burndown", Value: helpers.Truncate(strings.Join(lines, "\n"), descriptionLimit)})
	}
	for _, i := range sprint.Issues {
		r.Fields = append(r.Fields, Field{
			Name:  fmt.Sprintf("%s %s", i.Key, i.Summary),
			Value: fmt.Sprintf("Assignee: %s\nStatus: %s", helpers.Coalesce(i.Assignee, "Unassigned"), helpers.Coalesce(i.Status, "Unknown")),
		})
	}
	return limitFields(r)
}

func formatPoints(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
