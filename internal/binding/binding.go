// Package binding associates each server with one tracker site.
package binding

import (
	"log/slog"
	"sync"

	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/collaby/collaby-bot/internal/models"
	"github.com/pkg/errors"
)

var (
	ErrNotBound     = errors.New("no instance bound")
	ErrAlreadyBound = errors.New("instance already bound")
)

// Site is a tracker instance.
type Site struct {
	ID   string
	Name string
	URL  string
}

type Store struct {
	mu     sync.RWMutex
	logger *slog.Logger
	sites  map[string]Site
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func New(opts ...Option) *Store {
	_inst := &Store{sites: make(map[string]Site)}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	return _inst
}

func (s *Store) Get(serverID string) (Site, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[serverID]
	if !ok {
		return Site{}, ErrNotBound
	}
	return site, nil
}

// Set binds site to serverID. An existing binding is only replaced when replace is true;
// otherwise ErrAlreadyBound is returned together with the current site.
func (s *Store) Set(serverID string, site Site, replace bool) (Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sites[serverID]; ok && !replace {
		return current, ErrAlreadyBound
	}
	s.sites[serverID] = site
	s.logger.Info("instance bound", slog.String("server", serverID), slog.String("site", site.Name))
	return site, nil
}

// Remove drops the binding of serverID and returns the removed site.
func (s *Store) Remove(serverID string) (Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[serverID]
	if !ok {
		return Site{}, ErrNotBound
	}
	delete(s.sites, serverID)
	return site, nil
}

func (s *Store) Export(snap *models.Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap.Allocate()
	for id, site := range s.sites {
		snap.InstanceBindings[id] = models.SiteRecord{ID: site.ID, Name: site.Name, URL: site.URL}
	}
}

func (s *Store) Import(snap *models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites = make(map[string]Site, len(snap.InstanceBindings))
	for id, rec := range snap.InstanceBindings {
		s.sites[id] = Site{ID: rec.ID, Name: rec.Name, URL: rec.URL}
	}
}
