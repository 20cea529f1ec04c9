package github

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/collaby/collaby-bot/internal/upstream"
	"github.com/google/go-github/v84/github"
	"github.com/pkg/errors"
	"github.com/shurcooL/githubv4"
)

// ErrInvalidRepository is returned for names that are not in owner/name form.
var ErrInvalidRepository = errors.New("repository must be in owner/name form")

// SplitFullName splits owner/name.
func SplitFullName(fullName string) (string, string, error) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", errors.Wrapf(ErrInvalidRepository, "%q", fullName)
	}
	return owner, name, nil
}

// HookReport describes what RegisterWebhooks did to the repository hook delivering to the bot.
type HookReport struct {
	// Created holds the events of a newly created hook.
	Created []string
	// Existing holds the events a hook at the same URL already delivered.
	Existing []string
	// Added holds the events that were missing from that hook and have been added to it.
	Added []string
}

// RegisterWebhooks creates a single JSON webhook delivering events to hookURL.
// GitHub allows one hook per URL, so when it already exists its event list is extended instead.
func (g *Controller) RegisterWebhooks(ctx context.Context, token, fullName, hookURL, secret string, events []string) (*HookReport, error) {
	owner, repo, err := SplitFullName(fullName)
	if err != nil {
		return nil, err
	}
	client, err := g.Clients(token)
	if err != nil {
		return nil, err
	}

	hook := &github.Hook{
		Name:   github.Ptr("web"),
		Active: github.Ptr(true),
		Events: events,
		Config: &github.HookConfig{
			URL:         github.Ptr(hookURL),
			ContentType: github.Ptr("json"),
			InsecureSSL: github.Ptr("0"),
		},
	}
	if secret != "" {
		hook.Config.Secret = github.Ptr(secret)
	}

	report := &HookReport{}
	_, _, err = client.V3.Repositories.CreateHook(ctx, owner, repo, hook)
	switch err = classify(err); {
	case err == nil:
		report.Created = events
	case upstream.IsKind(err, upstream.AlreadyExists):
		if report, err = extendHook(ctx, client, owner, repo, hookURL, events); err != nil {
			return nil, errors.Wrapf(err, "failed to update the existing hook on %s", fullName)
		}
	default:
		return nil, errors.Wrapf(err, "failed to create hook on %s", fullName)
	}
	g.logger.Info("webhooks registered", slog.String("repository", fullName),
		slog.Any("created", report.Created), slog.Any("existing", report.Existing), slog.Any("added", report.Added))
	return report, nil
}

// extendHook adds the missing events to the hook of owner/repo delivering to hookURL.
func extendHook(ctx context.Context, client *Client, owner, repo, hookURL string, events []string) (*HookReport, error) {
	hook, err := findHook(ctx, client, owner, repo, hookURL)
	if err != nil {
		return nil, err
	}

	report := &HookReport{Existing: hook.Events}
	merged := slices.Clone(hook.Events)
	for _, ev := range events {
		if !slices.Contains(hook.Events, ev) && !slices.Contains(hook.Events, "*") {
			report.Added = append(report.Added, ev)
			merged = append(merged, ev)
		}
	}
	if len(report.Added) == 0 && hook.GetActive() {
		return report, nil
	}

	edit := &github.Hook{Events: merged, Active: github.Ptr(true)}
	if _, _, err = client.V3.Repositories.EditHook(ctx, owner, repo, hook.GetID(), edit); err != nil {
		return nil, classify(err)
	}
	return report, nil
}

func findHook(ctx context.Context, client *Client, owner, repo, hookURL string) (*github.Hook, error) {
	opts := &github.ListOptions{PerPage: 100}
	for {
		hooks, resp, err := client.V3.Repositories.ListHooks(ctx, owner, repo, opts)
		if err != nil {
			return nil, classify(err)
		}
		for _, h := range hooks {
			if h.GetConfig().GetURL() == hookURL {
				return h, nil
			}
		}
		if resp.NextPage == 0 {
			return nil, &upstream.Error{Service: service, Kind: upstream.NotFound, Cause: errors.Errorf("no hook delivers to %s", hookURL)}
		}
		opts.Page = resp.NextPage
	}
}

// RemoveWebhooks deletes every hook of fullName that delivers to hookURL and returns how many were removed.
func (g *Controller) RemoveWebhooks(ctx context.Context, token, fullName, hookURL string) (int, error) {
	owner, repo, err := SplitFullName(fullName)
	if err != nil {
		return 0, err
	}
	client, err := g.Clients(token)
	if err != nil {
		return 0, err
	}

	var ids []int64
	opts := &github.ListOptions{PerPage: 100}
	for {
		hooks, resp, err := client.V3.Repositories.ListHooks(ctx, owner, repo, opts)
		if err != nil {
			return 0, errors.Wrapf(classify(err), "failed to list hooks on %s", fullName)
		}
		for _, h := range hooks {
			if h.GetConfig().GetURL() == hookURL {
				ids = append(ids, h.GetID())
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	for i, id := range ids {
		if _, err = client.V3.Repositories.DeleteHook(ctx, owner, repo, id); err != nil {
			return i, errors.Wrapf(classify(err), "failed to delete hook %d on %s", id, fullName)
		}
	}
	return len(ids), nil
}

// Branches lists the branch names of fullName.
func (g *Controller) Branches(ctx context.Context, token, fullName string) ([]string, error) {
	owner, repo, err := SplitFullName(fullName)
	if err != nil {
		return nil, err
	}
	client, err := g.Clients(token)
	if err != nil {
		return nil, err
	}

	var query struct {
		Repository struct {
			Refs struct {
				Nodes []struct {
					Name githubv4.String
				}
				PageInfo struct {
					EndCursor   githubv4.String
					HasNextPage githubv4.Boolean
				}
			} `graphql:"refs(refPrefix: \"refs/heads/\", first: 100, after: $cursor)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}
	variables := map[string]any{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(repo),
		"cursor": (*githubv4.String)(nil),
	}

	var branches []string
	for {
		if err = client.V4.Query(ctx, &query, variables); err != nil {
			return nil, errors.Wrapf(classifyGraphQL(err), "failed to list branches of %s", fullName)
		}
		for _, n := range query.Repository.Refs.Nodes {
			branches = append(branches, string(n.Name))
		}
		if !query.Repository.Refs.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(query.Repository.Refs.PageInfo.EndCursor)
	}
	return branches, nil
}

// PullRequest is an open pull request summary.
type PullRequest struct {
	Number int
	Title  string
	Author string
	URL    string
}

// OpenPullRequests lists the open pull requests of fullName.
func (g *Controller) OpenPullRequests(ctx context.Context, token, fullName string) ([]PullRequest, error) {
	owner, repo, err := SplitFullName(fullName)
	if err != nil {
		return nil, err
	}
	client, err := g.Clients(token)
	if err != nil {
		return nil, err
	}

	var out []PullRequest
	opts := &github.PullRequestListOptions{State: "open", ListOptions: github.ListOptions{PerPage: 100}}
	for {
		prs, resp, err := client.V3.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, errors.Wrapf(classify(err), "failed to list pull requests of %s", fullName)
		}
		for _, pr := range prs {
			out = append(out, PullRequest{
				Number: pr.GetNumber(),
				Title:  pr.GetTitle(),
				Author: pr.GetUser().GetLogin(),
				URL:    pr.GetHTMLURL(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// RateLimits returns the current core and GraphQL quotas of token.
func (g *Controller) RateLimits(ctx context.Context, token string) (*github.RateLimits, error) {
	client, err := g.Clients(token)
	if err != nil {
		return nil, err
	}
	limits, _, err := client.V3.RateLimit.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(classify(err), "failed to fetch rate limits")
	}
	g.limitLog.Do(func() {
		g.logger.Info("rate limits", slog.Int("core_remaining", limits.GetCore().Remaining), slog.Int("graphql_remaining", limits.GetGraphQL().Remaining))
	})
	return limits, nil
}
