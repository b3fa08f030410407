// Package store persists tenants and their usage counters.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"orbit/internal/plan"
	"orbit/internal/quota"
	"orbit/internal/tenant/models"
	id "orbit/pkg/domain"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/platform/tx"
)

// InMemory stores tenants in memory for development and tests.
// Writes register undo steps so a failed tx.InMemory unit leaves no trace.
type InMemory struct {
	mu          sync.RWMutex
	tenants     map[id.TenantID]*models.Tenant
	checkoutIdx map[string]id.TenantID
}

func NewInMemory() *InMemory {
	return &InMemory{
		tenants:     make(map[id.TenantID]*models.Tenant),
		checkoutIdx: make(map[string]id.TenantID),
	}
}

func (s *InMemory) Create(ctx context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tenants[t.ID]; exists {
		return sentinel.Duplicate("id")
	}
	if t.CheckoutRef != "" {
		if _, exists := s.checkoutIdx[t.CheckoutRef]; exists {
			return sentinel.Duplicate("checkout_ref")
		}
		s.checkoutIdx[t.CheckoutRef] = t.ID
	}
	cp := *t
	s.tenants[t.ID] = &cp
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.tenants, t.ID)
		if t.CheckoutRef != "" {
			delete(s.checkoutIdx, t.CheckoutRef)
		}
	})
	return nil
}

func (s *InMemory) FindByID(_ context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *InMemory) FindByCheckoutRef(_ context.Context, ref string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tenantID, ok := s.checkoutIdx[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.tenants[tenantID]
	return &cp, nil
}

func (s *InMemory) FindBySubscriptionRef(_ context.Context, ref string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ref == "" {
		return nil, sentinel.ErrNotFound
	}
	for _, t := range s.tenants {
		if t.SubscriptionRef == ref {
			cp := *t
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List returns a page of tenants, newest first, filtered by a case-insensitive name search.
func (s *InMemory) List(_ context.Context, filter models.ListFilter) ([]*models.Tenant, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]*models.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		if search != "" && !strings.Contains(strings.ToLower(t.Name), search) {
			continue
		}
		cp := *t
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, filter.Offset, filter.Limit), len(matched), nil
}

// Update persists profile, plan, ceilings and billing refs. StorageUsed is
// owned by the charge/release operations and is never overwritten here.
func (s *InMemory) Update(ctx context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tenants[t.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	prev := *existing
	next := *t
	next.StorageUsed = existing.StorageUsed
	next.CheckoutRef = existing.CheckoutRef
	s.tenants[t.ID] = &next
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		restored := prev
		restored.StorageUsed = s.tenants[t.ID].StorageUsed
		s.tenants[t.ID] = &restored
	})
	return nil
}

func (s *InMemory) Delete(ctx context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tenants[tenantID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.tenants, tenantID)
	if existing.CheckoutRef != "" {
		delete(s.checkoutIdx, existing.CheckoutRef)
	}
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.tenants[tenantID] = existing
		if existing.CheckoutRef != "" {
			s.checkoutIdx[existing.CheckoutRef] = tenantID
		}
	})
	return nil
}

// LockUsage reads the limits row. Serialization comes from the tx.InMemory
// unit the caller runs in.
func (s *InMemory) LockUsage(ctx context.Context, tenantID id.TenantID) (*quota.Usage, error) {
	return s.GetUsage(ctx, tenantID)
}

func (s *InMemory) GetUsage(_ context.Context, tenantID id.TenantID) (*quota.Usage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &quota.Usage{Limits: t.Limits, StorageUsed: t.StorageUsed}, nil
}

// ChargeStorage applies the bounded increment under the store lock, so the
// check and the write cannot interleave with another charge.
func (s *InMemory) ChargeStorage(ctx context.Context, tenantID id.TenantID, bytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !plan.Allows(t.Limits.StorageBytes, t.StorageUsed, bytes) {
		return sentinel.ErrLimitReached
	}
	t.StorageUsed += bytes
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur, ok := s.tenants[tenantID]; ok {
			cur.StorageUsed -= bytes
		}
	})
	return nil
}

func (s *InMemory) ReleaseStorage(ctx context.Context, tenantID id.TenantID, bytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return sentinel.ErrNotFound
	}
	released := min(bytes, t.StorageUsed)
	t.StorageUsed -= released
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur, ok := s.tenants[tenantID]; ok {
			cur.StorageUsed += released
		}
	})
	return nil
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
