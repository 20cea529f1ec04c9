// Package credentials keeps the per-user tokens issued by external systems.
package credentials

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/collaby/collaby-bot/internal/helpers"
	"github.com/collaby/collaby-bot/internal/models"
	"github.com/pkg/errors"
)

const (
	GitHub = "github"
	Jira   = "jira"
)

var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrExpiredCredential = errors.New("credential expired")
)

// Credential is an opaque token. A zero Expiry never expires.
type Credential struct {
	Token  string
	Expiry time.Time
}

// tombstoneRetention bounds how long a swept credential is still reported as expired rather than absent.
const tombstoneRetention = 90 * 24 * time.Hour

// Expired reports whether the credential is unusable at now.
func (c Credential) Expired(now time.Time) bool {
	return !c.Expiry.IsZero() && !now.Before(c.Expiry)
}

// Store holds the credentials of one external system keyed by user id.
type Store struct {
	mu     sync.RWMutex
	system string
	logger *slog.Logger
	now    func() time.Time
	tokens map[string]Credential
	// expired maps users whose credential was swept to its expiry.
	expired map[string]time.Time
}

type Option func(*Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(system string, opts ...Option) *Store {
	_inst := &Store{system: system, now: time.Now, tokens: make(map[string]Credential), expired: make(map[string]time.Time)}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("system", system)
	return _inst
}

// System returns the external system name.
func (s *Store) System() string {
	return s.system
}

// Put records or replaces the credential of userID.
func (s *Store) Put(userID string, c Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[userID] = c
	delete(s.expired, userID)
	s.logger.Debug("credential stored", slog.String("user", userID), slog.Time("expiry", c.Expiry))
}

// Get returns the usable credential of userID.
func (s *Store) Get(userID string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.tokens[userID]
	if !ok {
		if _, swept := s.expired[userID]; swept {
			return Credential{}, errors.Wrapf(ErrExpiredCredential, "%s user %s", s.system, userID)
		}
		return Credential{}, errors.Wrapf(ErrNotAuthenticated, "%s user %s", s.system, userID)
	}
	if c.Expired(s.now()) {
		return Credential{}, errors.Wrapf(ErrExpiredCredential, "%s user %s", s.system, userID)
	}
	return c, nil
}

// Valid reports whether userID holds a non-expired credential.
func (s *Store) Valid(userID string) bool {
	_, err := s.Get(userID)
	return err == nil
}

// Evict forgets the given users entirely and returns how many held a credential.
func (s *Store) Evict(userIDs ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range userIDs {
		if _, ok := s.tokens[id]; ok {
			delete(s.tokens, id)
			n++
		}
		delete(s.expired, id)
	}
	if n > 0 {
		s.logger.Info("credentials evicted", slog.Int("count", n))
	}
	return n
}

// Sweep drops the tokens of expired credentials and returns how many were removed.
// The users keep reading as expired until they authorize again or the tombstone ages out.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, c := range s.tokens {
		if c.Expired(now) {
			delete(s.tokens, id)
			s.expired[id] = c.Expiry
			n++
		}
	}
	for id, expiry := range s.expired {
		if now.Sub(expiry) > tombstoneRetention {
			delete(s.expired, id)
		}
	}
	return n
}

// Users returns the ids holding a credential, sorted.
func (s *Store) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.tokens))
}

func (s *Store) Export(snap *models.Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap.Allocate()
	records := make(map[string]models.CredentialRecord, len(s.tokens))
	for id, c := range s.tokens {
		rec := models.CredentialRecord{Token: c.Token}
		if !c.Expiry.IsZero() {
			rec.Expiry = helpers.Ptr(c.Expiry)
		}
		records[id] = rec
	}
	for id, expiry := range s.expired {
		records[id] = models.CredentialRecord{Expiry: helpers.Ptr(expiry)}
	}
	snap.ExternalCredentials[s.system] = records
}

func (s *Store) Import(snap *models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = make(map[string]Credential)
	s.expired = make(map[string]time.Time)
	for id, rec := range snap.ExternalCredentials[s.system] {
		if rec.Token == "" && rec.Expiry != nil {
			s.expired[id] = *rec.Expiry
			continue
		}
		c := Credential{Token: rec.Token}
		if rec.Expiry != nil {
			c.Expiry = *rec.Expiry
		}
		s.tokens[id] = c
	}
}
