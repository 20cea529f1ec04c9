package registry

import (
	"slices"

	"github.com/collaby/collaby-bot/internal/models"
)

// Export writes the registry state into snap.
func (r *Registry) Export(snap *models.Snapshot) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap.Allocate()
	snap.Servers = slices.Clone(r.servers)
	for _, serverID := range r.servers {
		s := r.entries[serverID]
		records := make([]models.RepositoryRecord, 0, len(s.order))
		prs := make(map[string][]string, len(s.order))
		issues := make(map[string][]string, len(s.order))
		commits := make(map[string]map[string][]string, len(s.order))
		for _, name := range s.order {
			repo := s.repos[name]
			records = append(records, models.RepositoryRecord{FullName: name, Branches: slices.Clone(repo.branches)})
			prs[name] = slices.Clone(repo.pullRequests)
			issues[name] = slices.Clone(repo.issues)
			commits[name] = make(map[string][]string, len(repo.commits))
			for b, set := range repo.commits {
				commits[name][b] = slices.Clone(set)
			}
		}
		snap.Repositories[serverID] = records
		snap.PullRequestSubscribers[serverID] = prs
		snap.IssueSubscribers[serverID] = issues
		snap.CommitSubscribers[serverID] = commits
	}
}

// Import replaces the registry state with the content of snap.
// Servers missing from snap.Servers are appended in map order.
func (r *Registry) Import(snap *models.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order := slices.Clone(snap.Servers)
	for serverID := range snap.Repositories {
		if !slices.Contains(order, serverID) {
			order = append(order, serverID)
		}
	}

	r.servers = nil
	r.entries = make(map[string]*server)
	for _, serverID := range order {
		s := &server{repos: make(map[string]*repository)}
		for _, rec := range snap.Repositories[serverID] {
			if _, dup := s.repos[rec.FullName]; dup {
				continue
			}
			repo := newRepository(rec.FullName, rec.Branches)
			repo.pullRequests = dedupe(snap.PullRequestSubscribers[serverID][rec.FullName])
			repo.issues = dedupe(snap.IssueSubscribers[serverID][rec.FullName])
			for _, b := range repo.branches {
				repo.commits[b] = dedupe(snap.CommitSubscribers[serverID][rec.FullName][b])
			}
			s.repos[rec.FullName] = repo
			s.order = append(s.order, rec.FullName)
		}
		r.entries[serverID] = s
		r.servers = append(r.servers, serverID)
	}
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
