package commands_test

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/collaby/collaby-bot/internal/auth"
	"github.com/collaby/collaby-bot/internal/binding"
	"github.com/collaby/collaby-bot/internal/commands"
	ghctl "github.com/collaby/collaby-bot/internal/controllers/github"
	jiractl "github.com/collaby/collaby-bot/internal/controllers/jira"
	"github.com/collaby/collaby-bot/internal/credentials"
	"github.com/collaby/collaby-bot/internal/event"
	"github.com/collaby/collaby-bot/internal/registry"
	"github.com/collaby/collaby-bot/internal/upstream"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scope = commands.Scope{Server: "S1", Channel: "C1", User: "U1", ChannelName: "general", UserName: "alice"}

type fakeCodeHost struct {
	mu       sync.Mutex
	hooks    *ghctl.HookReport
	hookErr  error
	branches []string
	pulls    []ghctl.PullRequest
	removed  []string
	calls    []string
}

func (f *fakeCodeHost) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCodeHost) RegisterWebhooks(_ context.Context, _, fullName, _, _ string, events []string) (*ghctl.HookReport, error) {
	f.record("hooks:" + fullName)
	if f.hookErr != nil {
		return nil, f.hookErr
	}
	if f.hooks != nil {
		return f.hooks, nil
	}
	return &ghctl.HookReport{Created: events}, nil
}

func (f *fakeCodeHost) RemoveWebhooks(_ context.Context, _, fullName, _ string) (int, error) {
	f.record("unhook:" + fullName)
	f.removed = append(f.removed, fullName)
	return 3, nil
}

func (f *fakeCodeHost) Branches(_ context.Context, _, fullName string) ([]string, error) {
	f.record("branches:" + fullName)
	return f.branches, nil
}

func (f *fakeCodeHost) OpenPullRequests(_ context.Context, _, fullName string) ([]ghctl.PullRequest, error) {
	f.record("pulls:" + fullName)
	return f.pulls, nil
}

type fakeTracker struct {
	mu       sync.Mutex
	sites    []jiractl.Site
	issue    *jiractl.Issue
	users    []jiractl.User
	projects []jiractl.Project
	sprint   *jiractl.Sprint
	err      error
	calls    []string
	assigned string
}

func (f *fakeTracker) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeTracker) Sites(context.Context, string) ([]jiractl.Site, error) {
	f.record("sites")
	return f.sites, f.err
}

func (f *fakeTracker) Issue(_ context.Context, _, _, key string) (*jiractl.Issue, error) {
	f.record("issue:" + key)
	if f.err != nil {
		return nil, f.err
	}
	return f.issue, nil
}

func (f *fakeTracker) AssignableUsers(context.Context, string, string, string) ([]jiractl.User, error) {
	f.record("users")
	return f.users, f.err
}

func (f *fakeTracker) Assign(_ context.Context, _, _, key, accountID string) error {
	f.record("assign:" + key)
	f.assigned = accountID
	return f.err
}

func (f *fakeTracker) Unassign(_ context.Context, _, _, key string) error {
	f.record("unassign:" + key)
	return f.err
}

func (f *fakeTracker) Projects(context.Context, string, string) ([]jiractl.Project, error) {
	f.record("projects")
	return f.projects, f.err
}

func (f *fakeTracker) ActiveSprint(_ context.Context, _, _, project string) (*jiractl.Sprint, error) {
	f.record("sprint:" + project)
	return f.sprint, f.err
}

type answer struct {
	yes     bool
	block   bool
	prompts []string
}

func (a *answer) Confirm(ctx context.Context, _ commands.Scope, prompt string) (bool, error) {
	a.prompts = append(a.prompts, prompt)
	if a.block {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return a.yes, nil
}

type fakeAuthorizer struct {
	link string
	err  error
}

func (f fakeAuthorizer) Begin(context.Context, string) (string, error) {
	return f.link, f.err
}

type dm struct {
	users []string
	err   error
}

func (d *dm) DirectMessage(_ context.Context, userID, _, _ string) error {
	d.users = append(d.users, userID)
	return d.err
}

type fixture struct {
	reg      *registry.Registry
	host     *fakeCodeHost
	tracker  *fakeTracker
	ghCreds  *credentials.Store
	jiraCred *credentials.Store
	bindings *binding.Store
	confirm  *answer
	handlers *commands.Handlers
}

func newFixture(t *testing.T, opts ...commands.Option) *fixture {
	t.Helper()
	f := &fixture{
		reg:      registry.New(),
		host:     &fakeCodeHost{branches: []string{"main", "dev"}},
		tracker:  &fakeTracker{},
		ghCreds:  credentials.New(credentials.GitHub),
		jiraCred: credentials.New(credentials.Jira),
		bindings: binding.New(),
		confirm:  &answer{yes: true},
	}
	base := []commands.Option{
		commands.WithCodeHost(f.host),
		commands.WithTracker(f.tracker),
		commands.WithGitHubAuth(f.ghCreds, fakeAuthorizer{link: "https://github.example/authorize"}),
		commands.WithJiraAuth(f.jiraCred, fakeAuthorizer{err: auth.ErrAlreadyAuthenticated}),
		commands.WithBindings(f.bindings),
		commands.WithConfirmer(f.confirm),
		commands.WithWebhook("https://bot.example/webhook", "secret", []string{"push", "issues", "pull_request"}),
	}
	f.handlers = commands.New(f.reg, append(base, opts...)...)
	return f
}

func (f *fixture) authenticate() {
	f.ghCreds.Put(scope.User, credentials.Credential{Token: "gh-token"})
	f.jiraCred.Put(scope.User, credentials.Credential{Token: "jira-token", Expiry: time.Now().Add(time.Hour)})
}

func TestRepoAdd(t *testing.T) {
	testCases := []struct {
		Name          string
		Repository    string
		Authenticated bool
		Hooks         *ghctl.HookReport
		HookErr       error
		Expected      commands.Severity
		ExpectedTitle string
		ExpectedAdded bool
		ExpectedHook  string
	}{
		{
			Name:          "added",
			Repository:    "acme/widgets",
			Authenticated: true,
			Expected:      commands.Success,
			ExpectedTitle: "Success",
			ExpectedAdded: true,
		},
		{
			Name:          "invalid name",
			Repository:    "widgets",
			Authenticated: true,
			Expected:      commands.Info,
			ExpectedTitle: "Usage",
		},
		{
			Name:          "not authenticated",
			Repository:    "acme/widgets",
			Expected:      commands.Failure,
			ExpectedTitle: "Authentication Error",
		},
		{
			Name:          "existing hooks",
			Repository:    "acme/widgets",
			Authenticated: true,
			Hooks:         &ghctl.HookReport{Existing: []string{"push"}, Added: []string{"issues"}},
			Expected:      commands.Success,
			ExpectedTitle: "Success",
			ExpectedAdded: true,
			ExpectedHook:  "A webhook was already registered on acme/widgets. It now also delivers issues.",
		},
		{
			Name:          "complete existing hook",
			Repository:    "acme/widgets",
			Authenticated: true,
			Hooks:         &ghctl.HookReport{Existing: []string{"push", "issues"}},
			Expected:      commands.Success,
			ExpectedTitle: "Success",
			ExpectedAdded: true,
			ExpectedHook:  "A webhook was already registered on acme/widgets.",
		},
		{
			Name:          "permission denied",
			Repository:    "acme/widgets",
			Authenticated: true,
			HookErr:       &upstream.Error{Service: "github", Kind: upstream.PermissionDenied, Status: http.StatusForbidden},
			Expected:      commands.Failure,
			ExpectedTitle: "Access Denied Error",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			f := newFixture(t)
			f.host.hooks = tc.Hooks
			f.host.hookErr = tc.HookErr
			if tc.Authenticated {
				f.authenticate()
			}

			r := f.handlers.RepoAdd(context.Background(), scope, tc.Repository)
			assert.Equal(t, tc.Expected, r.Severity)
			assert.Equal(t, tc.ExpectedTitle, r.Title)

			branches, err := f.reg.Branches(scope.Server, tc.Repository)
			if !tc.ExpectedAdded {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"main", "dev"}, branches)
			assert.Equal(t, []string{"hooks:acme/widgets", "branches:acme/widgets"}, f.host.calls)
			if tc.ExpectedHook == "" {
				assert.Len(t, r.Fields, 1)
				return
			}
			require.Len(t, r.Fields, 2)
			assert.Equal(t, "Webhook Already Exists", r.Fields[1].Name)
			assert.Equal(t, tc.ExpectedHook, r.Fields[1].Value)
		})
	}
}

func TestRepoAddTwice(t *testing.T) {
	f := newFixture(t)
	f.authenticate()
	require.Equal(t, commands.Success, f.handlers.RepoAdd(context.Background(), scope, "acme/widgets").Severity)

	r := f.handlers.RepoAdd(context.Background(), scope, "acme/widgets")
	assert.Equal(t, commands.Info, r.Severity)
	assert.Equal(t, "Already Added", r.Title)
	assert.Len(t, f.host.calls, 2)
}

func TestRepoRemove(t *testing.T) {
	f := newFixture(t)
	f.authenticate()
	require.NoError(t, f.reg.AddRepository("S1", "acme/widgets", []string{"main"}))
	require.NoError(t, f.reg.AddRepository("S2", "acme/widgets", []string{"main"}))

	r := f.handlers.RepoRemove(context.Background(), scope, "acme/widgets")
	assert.Equal(t, commands.Success, r.Severity)
	assert.Empty(t, f.host.removed, "still tracked by S2")

	other := scope
	other.Server = "S2"
	r = f.handlers.RepoRemove(context.Background(), other, "acme/widgets")
	assert.Equal(t, commands.Success, r.Severity)
	assert.Equal(t, []string{"acme/widgets"}, f.host.removed)

	r = f.handlers.RepoRemove(context.Background(), scope, "acme/widgets")
	assert.Equal(t, "Repository Not Found", r.Title)
	assert.Contains(t, r.Description, "/gh add acme/widgets")
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.AddRepository("S1", "acme/widgets", []string{"main", "dev"}))
	ctx := context.Background()

	r := f.handlers.Subscribe(ctx, scope, "acme/widgets", "commits", "main")
	assert.Equal(t, commands.Success, r.Severity)
	assert.Equal(t, "#general is now subscribed to commits for acme/widgets on main!", r.Description)

	r = f.handlers.Subscribe(ctx, scope, "acme/widgets", "commits", "main")
	assert.Equal(t, commands.Info, r.Severity)
	assert.Equal(t, "Already Subscribed", r.Title)
	assert.Equal(t, []string{"C1"}, f.reg.SubscribersFor("acme/widgets", event.Commit, "main"))

	r = f.handlers.Subscribe(ctx, scope, "acme/widgets", "commits", "")
	assert.Equal(t, commands.Success, r.Severity)
	assert.Equal(t, 2, strings.Count(r.Description, "\n")+1)
	assert.Contains(t, r.Description, "now subscribed to commits for acme/widgets on dev!")

	r = f.handlers.Subscribe(ctx, scope, "acme/widgets", "pull-requests", "")
	assert.Equal(t, "#general is now subscribed to pull requests for acme/widgets!", r.Description)

	r = f.handlers.Subscribe(ctx, scope, "acme/widgets", "commits", "nope")
	assert.Equal(t, "Not Found", r.Title)

	r = f.handlers.Subscribe(ctx, scope, "acme/gadgets", "issues", "")
	assert.Equal(t, "Repository Not Found", r.Title)

	r = f.handlers.Subscribe(ctx, scope, "acme/widgets", "wiki", "")
	assert.Equal(t, "Usage", r.Title)

	r = f.handlers.Subscribe(ctx, scope, "", "", "")
	assert.Equal(t, "Usage", r.Title)
	require.Len(t, r.Fields, 1)
	assert.Equal(t, "acme/widgets", r.Fields[0].Value)
}

func TestSubscribeNestedBranch(t *testing.T) {
	testCases := []struct {
		Name     string
		Kind     string
		Branch   string
		Expected string
	}{
		{
			Name:     "nested branch",
			Kind:     "commits",
			Branch:   "feature/login",
			Expected: "Pushes are matched by the last segment of their ref, so commits to feature/login will not be delivered.",
		},
		{
			Name:     "every branch",
			Kind:     "commits",
			Expected: "Pushes are matched by the last segment of their ref, so commits to feature/login will not be delivered.",
		},
		{Name: "flat branch", Kind: "commits", Branch: "main"},
		{Name: "issues", Kind: "issues"},
	}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.reg.AddRepository("S1", "acme/widgets", []string{"main", "feature/login"}))

			r := f.handlers.Subscribe(context.Background(), scope, "acme/widgets", tc.Kind, tc.Branch)
			assert.Equal(t, commands.Success, r.Severity)
			if tc.Expected == "" {
				assert.Empty(t, r.Fields)
				return
			}
			require.Len(t, r.Fields, 1)
			assert.Equal(t, "Nested Branch Names", r.Fields[0].Name)
			assert.Equal(t, tc.Expected, r.Fields[0].Value)
		})
	}
}

func TestUnsubscribe(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.AddRepository("S1", "acme/widgets", []string{"main"}))
	ctx := context.Background()

	r := f.handlers.Unsubscribe(ctx, scope, "acme/widgets", "issues", "")
	assert.Equal(t, commands.Info, r.Severity)
	assert.Equal(t, "Not Subscribed", r.Title)

	f.handlers.Subscribe(ctx, scope, "acme/widgets", "issues", "")
	r = f.handlers.Unsubscribe(ctx, scope, "acme/widgets", "issues", "")
	assert.Equal(t, commands.Success, r.Severity)
	assert.Equal(t, "#general is no longer subscribed to issues for acme/widgets.", r.Description)
	assert.Empty(t, f.reg.SubscribersFor("acme/widgets", event.Issue, ""))
}

func TestListRepositories(t *testing.T) {
	f := newFixture(t)
	r := f.handlers.ListRepositories(context.Background(), scope)
	assert.Equal(t, "You haven't added any repos to CollabyBot yet.", r.Description)

	require.NoError(t, f.reg.AddRepository("S1", "acme/widgets", nil))
	require.NoError(t, f.reg.AddRepository("S1", "acme/gadgets", nil))
	r = f.handlers.ListRepositories(context.Background(), scope)
	assert.Equal(t, commands.Listing, r.Severity)
	assert.Equal(t, "acme/widgets\nacme/gadgets", r.Description)
}

func TestOpenPullRequests(t *testing.T) {
	f := newFixture(t)
	f.authenticate()
	f.host.pulls = []ghctl.PullRequest{{Number: 7, Title: "Fix login", Author: "bob", URL: "https://github.example/acme/widgets/pull/7"}}

	r := f.handlers.OpenPullRequests(context.Background(), scope, "acme/widgets")
	assert.Equal(t, "Open pull requests in acme/widgets:", r.Title)
	require.Len(t, r.Fields, 1)
	assert.Equal(t, "#7 Fix login", r.Fields[0].Name)
	assert.Contains(t, r.Fields[0].Value, "by bob")

	f.host.pulls = nil
	r = f.handlers.OpenPullRequests(context.Background(), scope, "acme/widgets")
	assert.Equal(t, "No Open Pull Requests", r.Title)
}

func TestAuthorize(t *testing.T) {
	messenger := &dm{}
	f := newFixture(t, commands.WithMessenger(messenger))

	r := f.handlers.GitHubAuth(context.Background(), scope)
	assert.True(t, r.Private)
	assert.NotContains(t, r.Description, "https://github.example/authorize")
	assert.Equal(t, []string{"U1"}, messenger.users)

	messenger.err = errors.New("dms closed")
	r = f.handlers.GitHubAuth(context.Background(), scope)
	assert.True(t, r.Private)
	assert.Contains(t, r.Description, "https://github.example/authorize")

	r = f.handlers.JiraAuth(context.Background(), scope)
	assert.Equal(t, "User Already Authenticated", r.Title)
}

func TestExpiredCredential(t *testing.T) {
	f := newFixture(t)
	f.jiraCred.Put("U1", credentials.Credential{Token: "t", Expiry: time.Now().Add(-time.Minute)})
	_, err := f.bindings.Set("S1", binding.Site{ID: "site-1", Name: "acme"}, false)
	require.NoError(t, err)
	ctx := context.Background()

	replies := []commands.Reply{
		f.handlers.IssueGet(ctx, scope, "ABC-1"),
		f.handlers.IssueAssign(ctx, scope, "ABC-1", "bob"),
		f.handlers.IssueUnassign(ctx, scope, "ABC-1"),
		f.handlers.Sprint(ctx, scope, "ABC"),
		f.handlers.InstanceSet(ctx, scope, "acme"),
	}
	for _, r := range replies {
		assert.Equal(t, "Authentication Error: Expired Token", r.Title)
		assert.Equal(t, commands.Failure, r.Severity)
		assert.Contains(t, r.Description, "/jira auth")
	}
	assert.Empty(t, f.tracker.calls)
}

func TestAuthorizeFailures(t *testing.T) {
	testCases := []struct {
		Name     string
		Err      error
		Expected string
	}{
		{Name: "authenticated", Err: auth.ErrAlreadyAuthenticated, Expected: "User Already Authenticated"},
		{Name: "in progress", Err: auth.ErrAlreadyPending, Expected: "Authorization In Progress"},
		{Name: "busy", Err: auth.ErrBusy, Expected: "Authorization Busy"},
	}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			f := newFixture(t, commands.WithGitHubAuth(credentials.New(credentials.GitHub), fakeAuthorizer{err: tc.Err}))
			r := f.handlers.GitHubAuth(context.Background(), scope)
			assert.Equal(t, tc.Expected, r.Title)
		})
	}
}

func TestSweptCredentialReadsExpired(t *testing.T) {
	f := newFixture(t)
	f.jiraCred.Put("U1", credentials.Credential{Token: "t", Expiry: time.Now().Add(-time.Minute)})
	require.Equal(t, 1, f.jiraCred.Sweep())
	_, err := f.bindings.Set("S1", binding.Site{ID: "site-1", Name: "acme"}, false)
	require.NoError(t, err)

	r := f.handlers.IssueGet(context.Background(), scope, "ABC-1")
	assert.Equal(t, "Authentication Error: Expired Token", r.Title)
	assert.Empty(t, f.tracker.calls)
}

func TestTrackerRequiresInstance(t *testing.T) {
	f := newFixture(t)
	f.authenticate()

	r := f.handlers.IssueGet(context.Background(), scope, "ABC-1")
	assert.Equal(t, "Instance Not Set", r.Title)
	assert.Empty(t, f.tracker.calls)
}

func TestInstanceSet(t *testing.T) {
	f := newFixture(t)
	f.authenticate()
	f.tracker.sites = []jiractl.Site{
		{ID: "site-1", Name: "acme", URL: "https://acme.atlassian.net"},
		{ID: "site-2", Name: "globex", URL: "https://globex.atlassian.net"},
	}
	ctx := context.Background()

	r := f.handlers.InstanceSet(ctx, scope, "nowhere")
	assert.Equal(t, "Instance Not Found", r.Title)

	r = f.handlers.InstanceSet(ctx, scope, "ACME")
	assert.Equal(t, "You can now use Jira commands to access projects in acme!", r.Description)
	assert.Empty(t, f.confirm.prompts)

	f.confirm.yes = false
	r = f.handlers.InstanceSet(ctx, scope, "globex")
	assert.Equal(t, "The instance will not be changed to globex.", r.Description)
	require.Len(t, f.confirm.prompts, 1)
	assert.Contains(t, f.confirm.prompts[0], "already linked to the acme instance")
	site, err := f.bindings.Get("S1")
	require.NoError(t, err)
	assert.Equal(t, "site-1", site.ID)

	f.confirm.yes = true
	r = f.handlers.InstanceSet(ctx, scope, "globex")
	assert.Equal(t, commands.Success, r.Severity)
	site, err = f.bindings.Get("S1")
	require.NoError(t, err)
	assert.Equal(t, "site-2", site.ID)

	r = f.handlers.InstanceGet(ctx, scope)
	assert.Equal(t, "globex", r.Description)
}

func TestInstanceRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.handlers.InstanceRemove(ctx, scope)
	assert.Equal(t, "Instance Not Set", r.Title)

	_, err := f.bindings.Set("S1", binding.Site{ID: "site-1", Name: "acme"}, false)
	require.NoError(t, err)
	f.confirm.yes = false
	r = f.handlers.InstanceRemove(ctx, scope)
	assert.Equal(t, "acme will not be removed from this server.", r.Description)

	f.confirm.yes = true
	r = f.handlers.InstanceRemove(ctx, scope)
	assert.Equal(t, "acme is no longer associated with this server.", r.Description)
	_, err = f.bindings.Get("S1")
	assert.ErrorIs(t, err, binding.ErrNotBound)
}

func trackerFixture(t *testing.T, opts ...commands.Option) *fixture {
	t.Helper()
	f := newFixture(t, opts...)
	f.authenticate()
	_, err := f.bindings.Set("S1", binding.Site{ID: "site-1", Name: "acme"}, false)
	require.NoError(t, err)
	return f
}

func TestIssueGet(t *testing.T) {
	f := trackerFixture(t)
	f.tracker.issue = &jiractl.Issue{Key: "ABC-1", Summary: "Broken login", Status: "To Do"}

	r := f.handlers.IssueGet(context.Background(), scope, "abc-1")
	assert.Equal(t, "ABC-1", r.Title)
	assert.Equal(t, []commands.Field{
		{Name: "Summary", Value: "Broken login"},
		{Name: "Description", Value: "No description"},
		{Name: "Assignee", Value: "Unassigned"},
		{Name: "Status", Value: "To Do"},
	}, r.Fields)

	f.tracker.err = &upstream.Error{Service: "jira", Kind: upstream.NotFound, Status: http.StatusNotFound}
	r = f.handlers.IssueGet(context.Background(), scope, "ABC-2")
	assert.Equal(t, "Not Found Error", r.Title)
	assert.Contains(t, r.Description, "Jira")
}

func TestIssueAssign(t *testing.T) {
	users := []jiractl.User{{AccountID: "acc-bob", DisplayName: "Bob"}, {AccountID: "acc-eve", DisplayName: "Eve"}}
	testCases := []struct {
		Name             string
		Who              string
		Issue            *jiractl.Issue
		Confirm          bool
		Expected         string
		ExpectedAssignee string
	}{
		{
			Name:     "list users",
			Expected: "Assignable Users",
		},
		{
			Name:     "unknown user",
			Who:      "mallory",
			Expected: "User Error",
		},
		{
			Name:             "unassigned issue",
			Who:              "bob",
			Issue:            &jiractl.Issue{Key: "ABC-1"},
			Expected:         "Success",
			ExpectedAssignee: "acc-bob",
		},
		{
			Name:     "same assignee",
			Who:      "acc-bob",
			Issue:    &jiractl.Issue{Key: "ABC-1", Assignee: "Bob", AssigneeID: "acc-bob"},
			Expected: "Already Assigned",
		},
		{
			Name:     "reassign declined",
			Who:      "Bob",
			Issue:    &jiractl.Issue{Key: "ABC-1", Assignee: "Eve", AssigneeID: "acc-eve"},
			Expected: "Not Reassigned",
		},
		{
			Name:             "reassign confirmed",
			Who:              "Bob",
			Issue:            &jiractl.Issue{Key: "ABC-1", Assignee: "Eve", AssigneeID: "acc-eve"},
			Confirm:          true,
			Expected:         "Success",
			ExpectedAssignee: "acc-bob",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			f := trackerFixture(t)
			f.tracker.users = users
			f.tracker.issue = tc.Issue
			f.confirm.yes = tc.Confirm

			r := f.handlers.IssueAssign(context.Background(), scope, "ABC-1", tc.Who)
			assert.Equal(t, tc.Expected, r.Title)
			assert.Equal(t, tc.ExpectedAssignee, f.tracker.assigned)
			if tc.Who == "" {
				assert.Len(t, r.Fields, 2)
			}
		})
	}
}

func TestConfirmationTimesOut(t *testing.T) {
	f := trackerFixture(t, commands.WithConfirmTimeout(20*time.Millisecond))
	f.confirm.block = true
	f.tracker.users = []jiractl.User{{AccountID: "acc-bob", DisplayName: "Bob"}}
	f.tracker.issue = &jiractl.Issue{Key: "ABC-1", Assignee: "Eve", AssigneeID: "acc-eve"}

	start := time.Now()
	r := f.handlers.IssueAssign(context.Background(), scope, "ABC-1", "Bob")
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, "Not Reassigned", r.Title)
	assert.Empty(t, f.tracker.assigned)
	assert.NotContains(t, f.tracker.calls, "assign:ABC-1")
}

func TestIssueUnassign(t *testing.T) {
	f := trackerFixture(t)
	r := f.handlers.IssueUnassign(context.Background(), scope, "ABC-1")
	assert.Equal(t, "ABC-1 has been unassigned.", r.Description)
	assert.Equal(t, []string{"unassign:ABC-1"}, f.tracker.calls)
}

func TestSprint(t *testing.T) {
	f := trackerFixture(t)
	f.tracker.projects = []jiractl.Project{{ID: "10000", Key: "ABC", Name: "Alphabet"}}

	r := f.handlers.Sprint(context.Background(), scope, "")
	assert.Equal(t, "Available Projects", r.Title)
	require.Len(t, r.Fields, 1)
	assert.Contains(t, r.Fields[0].Value, "Project ID: 10000")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	issues := []jiractl.Issue{
		{Key: "ABC-1", Summary: "One", StoryPoints: 3, ResolvedAt: start.Add(26 * time.Hour)},
		{Key: "ABC-2", Summary: "Two", StoryPoints: 5},
	}
	f.tracker.sprint = &jiractl.Sprint{
		Name:        "Sprint 4",
		Start:       start,
		End:         start.AddDate(0, 0, 3),
		Issues:      issues,
		TotalPoints: 8,
		Burndown:    jiractl.Burndown(start, start.AddDate(0, 0, 3), issues),
	}
	r = f.handlers.Sprint(context.Background(), scope, "abc")
	assert.Equal(t, "Active Sprint", r.Title)
	assert.Equal(t, "Sprint 4: 2 issues, 5 of 8 points remaining", r.Description)
	assert.Equal(t, "Burndown", r.Fields[1].Name)
	assert.Contains(t, r.Fields[1].Value, "01-02: 5 remaining (ideal 4)")
	assert.Contains(t, f.tracker.calls, "sprint:ABC")
}

func TestLifecycle(t *testing.T) {
	f := trackerFixture(t)
	require.NoError(t, f.reg.AddRepository("S1", "acme/widgets", []string{"main"}))
	f.ghCreds.Put("U2", credentials.Credential{Token: "other"})
	f.jiraCred.Put("U2", credentials.Credential{Token: "other"})

	f.handlers.MemberRemoved(context.Background(), "S1", "U2")
	assert.False(t, f.jiraCred.Valid("U2"))
	assert.True(t, f.ghCreds.Valid("U2"))
	assert.True(t, f.jiraCred.Valid("U1"))

	f.handlers.ServerRemoved(context.Background(), "S1", []string{"U1"})
	assert.Empty(t, f.reg.ListRepositories("S1"))
	assert.False(t, f.jiraCred.Valid("U1"))
	assert.True(t, f.ghCreds.Valid("U1"))
	_, err := f.bindings.Get("S1")
	assert.ErrorIs(t, err, binding.ErrNotBound)
}

func TestHelp(t *testing.T) {
	f := newFixture(t)
	r := f.handlers.Help(context.Background(), scope)
	assert.True(t, r.Private)
	assert.NotEmpty(t, r.Fields)
	assert.Equal(t, 0x5865f2, r.Severity.Color())
}
