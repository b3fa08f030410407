// Package store persists activities and their attachment metadata.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"orbit/internal/activity/models"
	id "orbit/pkg/domain"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/platform/tx"
)

// InMemory stores activities in memory for development and tests.
type InMemory struct {
	mu         sync.RWMutex
	activities map[id.ActivityID]*models.Activity
}

func NewInMemory() *InMemory {
	return &InMemory{activities: make(map[id.ActivityID]*models.Activity)}
}

func (s *InMemory) Create(ctx context.Context, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.activities[a.ID]; exists {
		return sentinel.Duplicate("id")
	}
	s.activities[a.ID] = clone(a)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.activities, a.ID)
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, activityID id.ActivityID) (*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activities[activityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(a), nil
}

// LockByID reads like FindByID. The in-memory transaction runner already
// serializes units of work, so there is no row lock to take.
func (s *InMemory) LockByID(ctx context.Context, activityID id.ActivityID) (*models.Activity, error) {
	return s.FindByID(ctx, activityID)
}

// List returns a page of the tenant's activities, latest date first.
func (s *InMemory) List(_ context.Context, filter models.ListFilter) ([]*models.Activity, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]*models.Activity, 0)
	for _, a := range s.activities {
		if a.TenantID != filter.TenantID {
			continue
		}
		if !filter.ClientID.IsNil() && a.ClientID != filter.ClientID {
			continue
		}
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if !filter.AssignedTo.IsNil() && a.AssignedTo != filter.AssignedTo {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(a.Description), search) {
			continue
		}
		matched = append(matched, clone(a))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Date.After(matched[j].Date)
	})
	return paginate(matched, filter.Offset, filter.Limit), len(matched), nil
}

// ListBetween returns activities of every tenant dated in [from, to), earliest first.
func (s *InMemory) ListBetween(_ context.Context, from, to time.Time) ([]*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Activity, 0)
	for _, a := range s.activities {
		if !a.Date.Before(from) && a.Date.Before(to) {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (s *InMemory) Update(ctx context.Context, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.activities[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.activities[a.ID] = clone(a)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.activities[a.ID] = prev
	})
	return nil
}

func (s *InMemory) Delete(ctx context.Context, activityID id.ActivityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.activities[activityID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.activities, activityID)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.activities[activityID] = existing
	})
	return nil
}

func (s *InMemory) CountByTenant(_ context.Context, tenantID id.TenantID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.activities {
		if a.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// CountByAssignee counts assigned activities per user, busiest first.
func (s *InMemory) CountByAssignee(_ context.Context, tenantID id.TenantID) ([]models.AssigneeCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[id.UserID]int)
	for _, a := range s.activities {
		if a.TenantID == tenantID && !a.AssignedTo.IsNil() {
			counts[a.AssignedTo]++
		}
	}
	out := make([]models.AssigneeCount, 0, len(counts))
	for userID, n := range counts {
		out = append(out, models.AssigneeCount{UserID: userID, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out, nil
}

// AttachmentURLsByTenant lists every attachment URL of the tenant.
func (s *InMemory) AttachmentURLsByTenant(_ context.Context, tenantID id.TenantID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	urls := make([]string, 0)
	for _, a := range s.activities {
		if a.TenantID == tenantID {
			urls = append(urls, a.URLs()...)
		}
	}
	sort.Strings(urls)
	return urls, nil
}

// DeleteByTenant removes every activity of a tenant as part of tenant deletion.
func (s *InMemory) DeleteByTenant(ctx context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make([]*models.Activity, 0)
	for activityID, a := range s.activities {
		if a.TenantID == tenantID {
			removed = append(removed, a)
			delete(s.activities, activityID)
		}
	}
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, a := range removed {
			s.activities[a.ID] = a
		}
	})
	return nil
}

func clone(a *models.Activity) *models.Activity {
	cp := *a
	cp.Attachments = append([]models.Attachment{}, a.Attachments...)
	return &cp
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
