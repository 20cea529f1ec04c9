// Package registry owns the tracked repositories, their branches and the channels subscribed to each event kind, partitioned by server.
package registry

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/collaby/collaby-bot/internal/event"
	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/pkg/errors"
)

// Outcome is the per-set result of a subscription change.
type Outcome string

const (
	Added             Outcome = "added"
	AlreadySubscribed Outcome = "already_subscribed"
	Removed           Outcome = "removed"
	NotSubscribed     Outcome = "not_subscribed"
)

// BranchOutcome is the outcome for one subscriber set. Branch is empty for pull request and issue sets.
type BranchOutcome struct {
	Branch  string
	Outcome Outcome
}

// Result lists one outcome per subscriber set touched by a call.
type Result struct {
	Kind     event.Kind
	Outcomes []BranchOutcome
}

// Count returns how many sets ended with the given outcome.
func (r Result) Count(o Outcome) int {
	n := 0
	for _, bo := range r.Outcomes {
		if bo.Outcome == o {
			n++
		}
	}
	return n
}

// Changed reports whether at least one set was modified.
func (r Result) Changed() bool {
	return r.Count(Added) > 0 || r.Count(Removed) > 0
}

type repository struct {
	fullName     string
	branches     []string
	pullRequests []string
	issues       []string
	commits      map[string][]string
}

func newRepository(fullName string, branches []string) *repository {
	r := &repository{fullName: fullName, commits: make(map[string][]string)}
	for _, b := range branches {
		if b == "" || slices.Contains(r.branches, b) {
			continue
		}
		r.branches = append(r.branches, b)
		r.commits[b] = []string{}
	}
	return r
}

type server struct {
	order []string
	repos map[string]*repository
}

// Registry is the subscription state of every server. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	logger  *slog.Logger
	servers []string
	entries map[string]*server
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	_inst := &Registry{entries: make(map[string]*server)}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	return _inst
}

// lookup must be called with r.mu held.
func (r *Registry) lookup(serverID, fullName string) (*repository, error) {
	s, ok := r.entries[serverID]
	if !ok {
		return nil, repositoryNotFound(fullName)
	}
	repo, ok := s.repos[fullName]
	if !ok {
		return nil, repositoryNotFound(fullName)
	}
	return repo, nil
}

// AddRepository starts tracking fullName under serverID with empty subscriber sets for every branch.
func (r *Registry) AddRepository(serverID, fullName string, branches []string) error {
	if serverID == "" || fullName == "" {
		return errors.Wrap(ErrInvalidArgument, "server and repository are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.entries[serverID]
	if !ok {
		s = &server{repos: make(map[string]*repository)}
		r.entries[serverID] = s
		r.servers = append(r.servers, serverID)
	}
	if _, exists := s.repos[fullName]; exists {
		return errors.Wrapf(ErrAlreadyExists, "repository %q", fullName)
	}
	s.repos[fullName] = newRepository(fullName, branches)
	s.order = append(s.order, fullName)
	r.logger.Debug("repository added", slog.String("server", serverID), slog.String("repository", fullName), slog.Any("branches", branches))
	return nil
}

// RemoveRepository stops tracking fullName under serverID and drops all of its subscriber sets.
func (r *Registry) RemoveRepository(serverID, fullName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.lookup(serverID, fullName); err != nil {
		return err
	}
	s := r.entries[serverID]
	delete(s.repos, fullName)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == fullName })
	r.logger.Debug("repository removed", slog.String("server", serverID), slog.String("repository", fullName))
	return nil
}

// Subscribe adds channel to the kind's subscriber set. For commits an empty branch targets every known branch.
func (r *Registry) Subscribe(serverID, fullName string, kind event.Kind, channel, branch string) (Result, error) {
	return r.mutate(serverID, fullName, kind, channel, branch, subscribe)
}

// Unsubscribe removes channel from the kind's subscriber set. Removing an absent channel is not an error.
func (r *Registry) Unsubscribe(serverID, fullName string, kind event.Kind, channel, branch string) (Result, error) {
	return r.mutate(serverID, fullName, kind, channel, branch, unsubscribe)
}

type setOp func(set []string, channel string) ([]string, Outcome)

func subscribe(set []string, channel string) ([]string, Outcome) {
	if slices.Contains(set, channel) {
		return set, AlreadySubscribed
	}
	return append(set, channel), Added
}

func unsubscribe(set []string, channel string) ([]string, Outcome) {
	i := slices.Index(set, channel)
	if i < 0 {
		return set, NotSubscribed
	}
	return slices.Delete(set, i, i+1), Removed
}

func (r *Registry) mutate(serverID, fullName string, kind event.Kind, channel, branch string, op setOp) (Result, error) {
	result := Result{Kind: kind}
	if channel == "" {
		return result, errors.Wrap(ErrInvalidArgument, "channel is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	repo, err := r.lookup(serverID, fullName)
	if err != nil {
		return result, err
	}

	var o Outcome
	switch kind {
	case event.PullRequest:
		repo.pullRequests, o = op(repo.pullRequests, channel)
		result.Outcomes = append(result.Outcomes, BranchOutcome{Outcome: o})
	case event.Issue:
		repo.issues, o = op(repo.issues, channel)
		result.Outcomes = append(result.Outcomes, BranchOutcome{Outcome: o})
	case event.Commit:
		targets := repo.branches
		if branch != "" {
			if _, ok := repo.commits[branch]; !ok {
				return result, branchNotFound(branch)
			}
			targets = []string{branch}
		}
		for _, b := range targets {
			repo.commits[b], o = op(repo.commits[b], channel)
			result.Outcomes = append(result.Outcomes, BranchOutcome{Branch: b, Outcome: o})
		}
	default:
		return result, errors.Wrapf(event.ErrUnknownKind, "%q", kind)
	}
	return result, nil
}

// ListRepositories returns the server's repositories in insertion order.
func (r *Registry) ListRepositories(serverID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.entries[serverID]
	if !ok {
		return []string{}
	}
	return slices.Clone(s.order)
}

// Branches returns the known branches of a repository.
func (r *Registry) Branches(serverID, fullName string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	repo, err := r.lookup(serverID, fullName)
	if err != nil {
		return nil, err
	}
	return slices.Clone(repo.branches), nil
}

// Subscriptions returns the channel's subscriptions on a repository, keyed by kind. Commit entries list branches.
func (r *Registry) Subscriptions(serverID, fullName, channel string) (map[event.Kind][]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	repo, err := r.lookup(serverID, fullName)
	if err != nil {
		return nil, err
	}
	out := make(map[event.Kind][]string)
	if slices.Contains(repo.pullRequests, channel) {
		out[event.PullRequest] = []string{}
	}
	if slices.Contains(repo.issues, channel) {
		out[event.Issue] = []string{}
	}
	for _, b := range repo.branches {
		if slices.Contains(repo.commits[b], channel) {
			out[event.Commit] = append(out[event.Commit], b)
		}
	}
	return out, nil
}

// SubscribersFor returns the channels subscribed to kind on fullName across every server tracking it.
// An unknown repository or branch yields an empty slice. For commits an empty branch means the default branch.
func (r *Registry) SubscribersFor(fullName string, kind event.Kind, branch string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if kind == event.Commit && branch == "" {
		branch = helpers.DefaultBranch
	}
	out := []string{}
	for _, serverID := range r.servers {
		repo, ok := r.entries[serverID].repos[fullName]
		if !ok {
			continue
		}
		var set []string
		switch kind {
		case event.PullRequest:
			set = repo.pullRequests
		case event.Issue:
			set = repo.issues
		case event.Commit:
			set = repo.commits[branch]
		}
		for _, c := range set {
			if !slices.Contains(out, c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// Servers returns the servers tracking fullName in registration order.
func (r *Registry) Servers(fullName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, serverID := range r.servers {
		if _, ok := r.entries[serverID].repos[fullName]; ok {
			out = append(out, serverID)
		}
	}
	return out
}

// OnServerRemoved drops every repository owned by serverID and returns their names.
// Credential purge for departed users is left to the caller.
func (r *Registry) OnServerRemoved(serverID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.entries[serverID]
	if !ok {
		return nil
	}
	delete(r.entries, serverID)
	r.servers = slices.DeleteFunc(r.servers, func(id string) bool { return id == serverID })
	r.logger.Info("server removed", slog.String("server", serverID), slog.Int("repositories", len(s.order)))
	return s.order
}
