package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/collaby/collaby-bot/internal/models"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Part is a component whose state is carried in the snapshot.
type Part interface {
	Export(snap *models.Snapshot)
	Import(snap *models.Snapshot)
}

// State ties the in-memory components to a Store.
type State struct {
	mu     sync.Mutex
	store  Store
	parts  []Part
	logger *slog.Logger

	// flushLog throttles the flush log line of periodic saves.
	flushLog *rate.Sometimes
}

func NewState(s Store, logger *slog.Logger, parts ...Part) *State {
	if logger == nil {
		logger = helpers.NewNoopLogger()
	}
	return &State{store: s, parts: parts, logger: logger.With("component", "state"), flushLog: helpers.OnceAMinute()}
}

// Hydrate loads the stored snapshot into every part.
func (s *State) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to hydrate state")
	}
	for _, p := range s.parts {
		p.Import(snap)
	}
	s.logger.Info("state hydrated", slog.Int("servers", len(snap.Servers)), slog.Time("saved_at", snap.SavedAt))
	return nil
}

// Flush saves the current state of every part.
func (s *State) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.NewSnapshot()
	for _, p := range s.parts {
		p.Export(snap)
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return errors.Wrap(err, "failed to flush state")
	}
	s.flushLog.Do(func() {
		s.logger.Info("state flushed", slog.Int("servers", len(snap.Servers)))
	})
	return nil
}
