package commands

import (
	"context"
	"log/slog"
	"strings"
)

var help = []Field{
	{Name: "/gh add <REPO_OWNER>/<REPO_NAME>", Value: "Register the webhooks of a repository and start tracking it."},
	{Name: "/gh remove <REPO_OWNER>/<REPO_NAME>", Value: "Stop tracking a repository."},
	{Name: "/gh subscribe <REPO> <pull-requests|issues|commits> [BRANCH]", Value: "Post events of a repository to this channel."},
	{Name: "/gh unsubscribe <REPO> <pull-requests|issues|commits> [BRANCH]", Value: "Stop posting events of a repository to this channel."},
	{Name: "/gh list", Value: "List the repositories tracked on this server."},
	{Name: "/gh open-pull-requests <REPO>", Value: "List the open pull requests of a repository."},
	{Name: "/gh auth", Value: "Authorize CollabyBot on GitHub."},
	{Name: "/jira auth", Value: "Authorize CollabyBot on Jira."},
	{Name: "/jira instance set|get|remove", Value: "Manage the Jira instance linked to this server."},
	{Name: "/jira issue get|assign|unassign <ISSUE_ID>", Value: "Show or change an issue."},
	{Name: "/jira sprint [PROJECT_KEY]", Value: "Summarize the active sprint of a project."},
}

// Help lists the available commands.
func (h *Handlers) Help(_ context.Context, _ Scope) Reply {
	return Reply{
		Title:       "CollabyBot Commands",
		Description: "Notifications for GitHub repositories and Jira helpers.",
		Severity:    Listing,
		Fields:      help,
		Private:     true,
	}
}

// ServerRemoved drops everything owned by a server the bot left: tracked repositories, the instance
// binding and the Jira credentials of its members. GitHub tokens are not tied to a server and are kept.
func (h *Handlers) ServerRemoved(_ context.Context, serverID string, members []string) {
	repos := h.registry.OnServerRemoved(serverID)
	_, err := h.bindings.Remove(serverID)
	purged := h.jiraCreds.Evict(members...)
	h.logger.Info("server state purged",
		slog.String("server", serverID),
		slog.String("repositories", strings.Join(repos, ",")),
		slog.Bool("binding", err == nil),
		slog.Int("credentials", purged))
}

// MemberRemoved evicts the Jira credential of a user who left a server.
func (h *Handlers) MemberRemoved(_ context.Context, serverID, userID string) {
	purged := h.jiraCreds.Evict(userID)
	h.logger.Info("member credentials purged", slog.String("server", serverID), slog.String("user", userID), slog.Int("credentials", purged))
}
