package models

import "time"

// SnapshotVersion is the layout version written by this build.
const SnapshotVersion = 1

// Snapshot is the flat, serializable form of the bot state, keyed by server and user ids.
type Snapshot struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`

	// Servers lists server ids in registration order.
	Servers []string `json:"servers,omitempty"`
	// Repositories maps a server id to its repositories in insertion order.
	Repositories map[string][]RepositoryRecord `json:"repositories"`
	// PullRequestSubscribers maps server id -> repository full name -> channel ids.
	PullRequestSubscribers map[string]map[string][]string `json:"pr_subscribers"`
	// IssueSubscribers maps server id -> repository full name -> channel ids.
	IssueSubscribers map[string]map[string][]string `json:"issue_subscribers"`
	// CommitSubscribers maps server id -> repository full name -> branch -> channel ids.
	CommitSubscribers map[string]map[string]map[string][]string `json:"commit_subscribers"`
	// ExternalCredentials maps an external system name -> user id -> credential.
	ExternalCredentials map[string]map[string]CredentialRecord `json:"external_credentials"`
	// InstanceBindings maps a server id to its tracker site.
	InstanceBindings map[string]SiteRecord `json:"instance_bindings"`
}

// RepositoryRecord is a tracked repository and its known branches.
type RepositoryRecord struct {
	FullName string   `json:"full_name"`
	Branches []string `json:"branches"`
}

// CredentialRecord is a stored external token. Expiry is nil for tokens that never expire.
// An empty Token with an Expiry records a swept credential.
type CredentialRecord struct {
	Token  string     `json:"token"`
	Expiry *time.Time `json:"expiry,omitempty"`
}

// SiteRecord is a tracker site bound to a server.
type SiteRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// NewSnapshot returns an empty snapshot with all maps allocated.
func NewSnapshot() *Snapshot {
	s := &Snapshot{Version: SnapshotVersion}
	s.Allocate()
	return s
}

// Allocate initialises any nil map, e.g. after decoding a partial document.
func (s *Snapshot) Allocate() {
	if s.Repositories == nil {
		s.Repositories = make(map[string][]RepositoryRecord)
	}
	if s.PullRequestSubscribers == nil {
		s.PullRequestSubscribers = make(map[string]map[string][]string)
	}
	if s.IssueSubscribers == nil {
		s.IssueSubscribers = make(map[string]map[string][]string)
	}
	if s.CommitSubscribers == nil {
		s.CommitSubscribers = make(map[string]map[string]map[string][]string)
	}
	if s.ExternalCredentials == nil {
		s.ExternalCredentials = make(map[string]map[string]CredentialRecord)
	}
	if s.InstanceBindings == nil {
		s.InstanceBindings = make(map[string]SiteRecord)
	}
}
