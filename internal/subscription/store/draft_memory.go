// Package store persists pending checkout drafts and the processed billing
// event log.
package store

import (
	"context"
	"sync"
	"time"

	"orbit/internal/subscription/models"
	id "orbit/pkg/domain"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/platform/tx"
)

// InMemoryDrafts keeps checkout drafts in memory.
type InMemoryDrafts struct {
	mu     sync.RWMutex
	drafts map[id.DraftID]*models.CheckoutDraft
}

func NewInMemoryDrafts() *InMemoryDrafts {
	return &InMemoryDrafts{drafts: make(map[id.DraftID]*models.CheckoutDraft)}
}

func (s *InMemoryDrafts) Create(ctx context.Context, d *models.CheckoutDraft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.drafts[d.ID]; exists {
		return sentinel.Duplicate("id")
	}
	cp := *d
	s.drafts[d.ID] = &cp
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.drafts, d.ID)
	})
	return nil
}

func (s *InMemoryDrafts) FindByID(_ context.Context, draftID id.DraftID) (*models.CheckoutDraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[draftID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// MarkConsumed stamps the draft once. A second call returns sentinel.ErrAlreadyUsed.
func (s *InMemoryDrafts) MarkConsumed(ctx context.Context, draftID id.DraftID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[draftID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if d.ConsumedAt != nil {
		return sentinel.ErrAlreadyUsed
	}
	d.ConsumedAt = &at
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur, ok := s.drafts[draftID]; ok {
			cur.ConsumedAt = nil
		}
	})
	return nil
}

func (s *InMemoryDrafts) Delete(_ context.Context, draftID id.DraftID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[draftID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.drafts, draftID)
	return nil
}

// DeleteExpired removes drafts that expired at or before now and returns them.
func (s *InMemoryDrafts) DeleteExpired(_ context.Context, now time.Time) ([]*models.CheckoutDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []*models.CheckoutDraft
	for draftID, d := range s.drafts {
		if d.Expired(now) {
			removed = append(removed, d)
			delete(s.drafts, draftID)
		}
	}
	return removed, nil
}
