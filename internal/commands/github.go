package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	ghctl "github.com/collaby/collaby-bot/internal/controllers/github"
	"github.com/collaby/collaby-bot/internal/credentials"
	"github.com/collaby/collaby-bot/internal/event"
	"github.com/collaby/collaby-bot/internal/registry"
	"github.com/pkg/errors"
)

const (
	usageAdd         = "/gh add <REPO_OWNER>/<REPO_NAME>"
	usageRemove      = "/gh remove <REPO_OWNER>/<REPO_NAME>"
	usageSubscribe   = "/gh subscribe <REPO_OWNER>/<REPO_NAME> <pull-requests|issues|commits> [BRANCH_NAME]"
	usageUnsubscribe = "/gh unsubscribe <REPO_OWNER>/<REPO_NAME> <pull-requests|issues|commits> [BRANCH_NAME]"
	usagePulls       = "/gh open-pull-requests <REPO_OWNER>/<REPO_NAME>"
)

func (h *Handlers) githubToken(userID string) (string, error) {
	if h.codeHost == nil {
		return "", errNotConfigured
	}
	c, err := h.githubCreds.Get(userID)
	if err != nil {
		return "", err
	}
	return c.Token, nil
}

// RepoAdd registers the bot webhooks on a repository, fetches its branches and starts tracking it for the server.
// An existing hook is extended with the missing events and reported, but does not stop the repository from being added.
func (h *Handlers) RepoAdd(ctx context.Context, scope Scope, fullName string) Reply {
	fullName = strings.TrimSpace(fullName)
	if _, _, err := ghctl.SplitFullName(fullName); err != nil {
		return usage(usageAdd)
	}
	if _, err := h.registry.Branches(scope.Server, fullName); err == nil {
		return info("Already Added", "%s has already been added to this server.", fullName)
	}
	token, err := h.githubToken(scope.User)
	if err != nil {
		return h.reply(scope, credentials.GitHub, err)
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	hooks, err := h.codeHost.RegisterWebhooks(ctx, token, fullName, h.hookURL, h.hookSecret, h.hookEvents)
	if err != nil {
		return h.reply(scope, credentials.GitHub, err)
	}
	branches, err := h.codeHost.Branches(ctx, token, fullName)
	if err != nil {
		return h.reply(scope, credentials.GitHub, err)
	}
	if err = h.registry.AddRepository(scope.Server, fullName, branches); err != nil {
		return h.reply(scope, credentials.GitHub, err)
	}

	h.logger.Info("repository added", slog.String("server", scope.Server), slog.String("repository", fullName), slog.Int("branches", len(branches)))
	r := success("%s has been added.", fullName)
	r.Fields = append(r.Fields, Field{Name: "Branches", Value: joinOr(branches, "none")})
	if len(hooks.Existing) > 0 || len(hooks.Added) > 0 {
		value := fmt.Sprintf("A webhook was already registered on %s.", fullName)
		if len(hooks.Added) > 0 {
			value += fmt.Sprintf(" It now also delivers %s.", strings.Join(hooks.Added, ", "))
		}
		r.Fields = append(r.Fields, Field{Name: "Webhook Already Exists", Value: value})
	}
	return r
}

// RepoRemove stops tracking a repository for the server. Webhooks are removed once no server tracks it anymore
// and the user holds a GitHub token; failing to remove them does not undo the removal.
func (h *Handlers) RepoRemove(ctx context.Context, scope Scope, fullName string) Reply {
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return usage(usageRemove)
	}
	if err := h.registry.RemoveRepository(scope.Server, fullName); err != nil {
		return h.reply(scope, credentials.GitHub, err)
	}
	r := success("%s has been removed.", fullName)
	if len(h.registry.Servers(fullName)) > 0 {
		return r
	}

	token, err := h.githubToken(scope.User)
	if err != nil {
		return r
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	n, err := h.codeHost.RemoveWebhooks(ctx, token, fullName, h.hookURL)
	if err != nil {
		h.logger.Warn("failed to remove webhooks", slog.String("repository", fullName), slog.Any("error", err))
		r.Fields = append(r.Fields, Field{Name: "Webhooks", Value: "The webhooks could not be removed from " + fullName + "."})
		return r
	}
	h.logger.Info("webhooks removed", slog.String("repository", fullName), slog.Int("count", n))
	return r
}

// Subscribe subscribes the invoking channel to one kind of event on a repository. Without arguments it
// answers with the usage and the repositories the channel could subscribe to.
func (h *Handlers) Subscribe(_ context.Context, scope Scope, fullName, kind, branch string) Reply {
	k, r, ok := h.subscriptionArgs(scope, fullName, kind, usageSubscribe)
	if !ok {
		return r
	}
	result, err := h.registry.Subscribe(scope.Server, fullName, k, scope.Channel, branch)
	if err != nil {
		return h.reply(scope, credentials.GitHub, err)
	}

	var added, already, nested []string
	for _, o := range result.Outcomes {
		if k == event.Commit && strings.Contains(o.Branch, "/") {
			nested = append(nested, o.Branch)
		}
		line := subscriptionLine(k, fullName, o.Branch)
		if o.Outcome == registry.Added {
			added = append(added, fmt.Sprintf("%s is now subscribed to %s!", scope.ChannelLabel(), line))
		} else {
			already = append(already, fmt.Sprintf("%s is already subscribed to %s.", scope.ChannelLabel(), line))
		}
	}
	if len(added) == 0 && len(already) == 0 {
		return info("Nothing To Subscribe", "%s has no branches to subscribe to.", fullName)
	}
	if len(added) == 0 {
		r = info("Already Subscribed", "%s", strings.Join(already, "\n"))
	} else {
		r = success("%s", strings.Join(append(added, already...), "\n"))
	}
	if len(nested) > 0 {
		value := fmt.Sprintf("Pushes are matched by the last segment of their ref, so commits to %s will not be delivered.",
			strings.Join(nested, ", "))
		r.Fields = append(r.Fields, Field{Name: "Nested Branch Names", Value: value})
	}
	return r
}

// Unsubscribe removes the invoking channel from one kind of event on a repository.
func (h *Handlers) Unsubscribe(_ context.Context, scope Scope, fullName, kind, branch string) Reply {
	k, r, ok := h.subscriptionArgs(scope, fullName, kind, usageUnsubscribe)
	if !ok {
		return r
	}
	result, err := h.registry.Unsubscribe(scope.Server, fullName, k, scope.Channel, branch)
	if err != nil {
		return h.reply(scope, credentials.GitHub, err)
	}
	if !result.Changed() {
		return info("Not Subscribed", "%s was not subscribed to %s.", scope.ChannelLabel(), subscriptionLine(k, fullName, branch))
	}
	var lines []string
	for _, o := range result.Outcomes {
		if o.Outcome == registry.Removed {
			lines = append(lines, fmt.Sprintf("%s is no longer subscribed to %s.", scope.ChannelLabel(), subscriptionLine(k, fullName, o.Branch)))
		}
	}
	return success("%s", strings.Join(lines, "\n"))
}

func (h *Handlers) subscriptionArgs(scope Scope, fullName, kind, syntax string) (event.Kind, Reply, bool) {
	if strings.TrimSpace(fullName) == "" || strings.TrimSpace(kind) == "" {
		r := usage(syntax)
		repos := h.registry.ListRepositories(scope.Server)
		if len(repos) == 0 {
			r.Fields = []Field{{Name: "Repositories", Value: "You haven't added any repos to CollabyBot yet."}}
		} else {
			r.Fields = []Field{{Name: "Repositories", Value: strings.Join(repos, "\n")}}
		}
		return "", r, false
	}
	k, err := event.ParseKind(kind)
	if err != nil {
		return "", usage(syntax), false
	}
	return k, Reply{}, true
}

func subscriptionLine(k event.Kind, fullName, branch string) string {
	if k == event.Commit && branch != "" {
		return fmt.Sprintf("%s for %s on %s", k.Label(), fullName, branch)
	}
	return fmt.Sprintf("%s for %s", k.Label(), fullName)
}

// ListRepositories lists the repositories tracked for the server.
func (h *Handlers) ListRepositories(_ context.Context, scope Scope) Reply {
	repos := h.registry.ListRepositories(scope.Server)
	if len(repos) == 0 {
		return info("No Repositories", "You haven't added any repos to CollabyBot yet.")
	}
	return Reply{Title: "Current repositories:", Description: strings.Join(repos, "\n"), Severity: Listing}
}

// OpenPullRequests lists the open pull requests of a repository with their author and link.
func (h *Handlers) OpenPullRequests(ctx context.Context, scope Scope, fullName string) Reply {
	fullName = strings.TrimSpace(fullName)
	if _, _, err := ghctl.SplitFullName(fullName); err != nil {
		return usage(usagePulls)
	}
	token, err := h.githubToken(scope.User)
	if err != nil {
		return h.reply(scope, credentials.GitHub, err)
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	pulls, err := h.codeHost.OpenPullRequests(ctx, token, fullName)
	if err != nil {
		return h.reply(scope, credentials.GitHub, err)
	}
	if len(pulls) == 0 {
		return info("No Open Pull Requests", "There are no open pull requests in %s.", fullName)
	}
	r := Reply{Title: fmt.Sprintf("Open pull requests in %s:", fullName), Severity: Listing}
	for _, pr := range pulls {
		r.Fields = append(r.Fields, Field{
			Name:  fmt.Sprintf("#%d %s", pr.Number, pr.Title),
			Value: fmt.Sprintf("by %s\n%s", pr.Author, pr.URL),
		})
	}
	return limitFields(r)
}

// GitHubAuth starts a GitHub authorization for the invoking user.
func (h *Handlers) GitHubAuth(ctx context.Context, scope Scope) Reply {
	return h.authorize(ctx, scope, credentials.GitHub, "GitHub", h.githubAuth)
}

// JiraAuth starts a Jira authorization for the invoking user.
func (h *Handlers) JiraAuth(ctx context.Context, scope Scope) Reply {
	return h.authorize(ctx, scope, credentials.Jira, "Jira", h.jiraAuth)
}

// authorize waits for the handshake of system and delivers the authorization link by direct message,
// falling back to a private reply when no message can be sent.
func (h *Handlers) authorize(ctx context.Context, scope Scope, system, name string, a Authorizer) Reply {
	if a == nil {
		return h.reply(scope, system, errNotConfigured)
	}
	link, err := a.Begin(ctx, scope.User)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return failure("Authorization Busy", "Another authorization is in progress. Try again in a few minutes.")
		}
		return h.reply(scope, system, err)
	}

	body := fmt.Sprintf("Follow this link to authorize CollabyBot on %s:\n%s", name, link)
	if h.messenger != nil {
		err = h.messenger.DirectMessage(ctx, scope.User, name+" Authorization", body)
		if err == nil {
			return Reply{
				Title:       name + " Authorization",
				Description: "Check your direct messages for the authorization link.",
				Severity:    Info,
				Private:     true,
			}
		}
		h.logger.Warn("failed to send authorization link", slog.String("user", scope.User), slog.Any("error", err))
	}
	return Reply{Title: name + " Authorization", Description: body, Severity: Info, Private: true}
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
