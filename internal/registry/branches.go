package registry

import (
	"log/slog"
	"slices"
)

// SyncBranches replaces the known branches of fullName on every server tracking it.
// New branches start with an empty subscriber set; dropped branches lose theirs. It returns the number of entries updated.
func (r *Registry) SyncBranches(fullName string, branches []string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, serverID := range r.servers {
		repo, ok := r.entries[serverID].repos[fullName]
		if !ok {
			continue
		}
		next := newRepository(fullName, branches)
		for _, b := range next.branches {
			if set, known := repo.commits[b]; known {
				next.commits[b] = set
			}
		}
		repo.branches, repo.commits = next.branches, next.commits
		n++
	}
	r.logger.Debug("branches synced", slog.String("repository", fullName), slog.Int("entries", n))
	return n
}

// AddBranch registers a newly created branch on every server tracking fullName.
func (r *Registry) AddBranch(fullName, branch string) int {
	if branch == "" {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, serverID := range r.servers {
		repo, ok := r.entries[serverID].repos[fullName]
		if !ok || slices.Contains(repo.branches, branch) {
			continue
		}
		repo.branches = append(repo.branches, branch)
		repo.commits[branch] = []string{}
		n++
	}
	return n
}

// RemoveBranch forgets a deleted branch and its commit subscribers on every server tracking fullName.
func (r *Registry) RemoveBranch(fullName, branch string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, serverID := range r.servers {
		repo, ok := r.entries[serverID].repos[fullName]
		if !ok || !slices.Contains(repo.branches, branch) {
			continue
		}
		repo.branches = slices.DeleteFunc(repo.branches, func(b string) bool { return b == branch })
		delete(repo.commits, branch)
		n++
	}
	return n
}
