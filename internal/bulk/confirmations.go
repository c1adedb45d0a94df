package bulk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

// Confirmation records a select-all target the user has seen and accepted
type Confirmation struct {
	Fingerprint string                  `json:"fingerprint"`
	Filters     models.CandidateFilters `json:"filters"`
	Count       int                     `json:"count"`
	IssuedAt    time.Time               `json:"issued_at"`
}

// ConfirmationStore keeps confirmations between the selection preview and
// the bulk request that uses it
type ConfirmationStore interface {
	Issue(ctx context.Context, c Confirmation, ttl time.Duration) (string, error)
	// Lookup returns nil, nil for unknown or expired tokens
	Lookup(ctx context.Context, token string) (*Confirmation, error)
}

// Confirm issues a token for a resolved select-all target
func Confirm(ctx context.Context, store ConfirmationStore, filters models.CandidateFilters, count int, ttl time.Duration) (string, error) {
	return store.Issue(ctx, Confirmation{
		Fingerprint: Fingerprint(filters),
		Filters:     filters,
		Count:       count,
		IssuedAt:    time.Now().UTC(),
	}, ttl)
}

// Verify checks that a select-all request carries a token confirming exactly
// its filters
func Verify(ctx context.Context, store ConfirmationStore, token string, filters models.CandidateFilters) (*Confirmation, error) {
	if token == "" {
		return nil, models.NewRuleError(models.ErrBulkTargetAmbiguous, models.ReasonNotConfirmed, "",
			"select-all requests need a confirmation token from bulk-selection")
	}

	c, err := store.Lookup(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up confirmation: %w", err)
	}
	if c == nil {
		return nil, models.NewRuleError(models.ErrBulkTargetAmbiguous, models.ReasonNotConfirmed, "",
			"confirmation expired or unknown; preview the selection again")
	}
	if c.Fingerprint != Fingerprint(filters) {
		return nil, filtersChanged()
	}
	return c, nil
}

// MemoryStore is an in-process ConfirmationStore used when Redis is disabled
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	c         Confirmation
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Issue stores c under a new token
func (s *MemoryStore) Issue(_ context.Context, c Confirmation, ttl time.Duration) (string, error) {
	token := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[token] = memoryEntry{c: c, expiresAt: now.Add(ttl)}
	return token, nil
}

// Lookup returns the confirmation for token if it has not expired
func (s *MemoryStore) Lookup(_ context.Context, token string) (*Confirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok {
		return nil, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, token)
		return nil, nil
	}
	c := e.c
	return &c, nil
}
