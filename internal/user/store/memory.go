// Package store persists users.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"orbit/internal/access"
	"orbit/internal/user/models"
	id "orbit/pkg/domain"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/platform/tx"
)

// Duplicate fields reported by Create and Update.
const (
	FieldEmail      = "email"
	FieldOwner      = "owner"
	FieldSuperAdmin = "superadmin"
)

// InMemory stores users in memory for development and tests.
type InMemory struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[id.UserID]*models.User)}
}

func (s *InMemory) Create(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.ID]; exists {
		return sentinel.Duplicate("id")
	}
	if err := s.checkUnique(u); err != nil {
		return err
	}
	cp := *u
	s.users[u.ID] = &cp
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.users, u.ID)
	})
	return nil
}

// checkUnique mirrors the unique indexes of the users table. Callers hold mu.
func (s *InMemory) checkUnique(u *models.User) error {
	for _, other := range s.users {
		if other.ID == u.ID {
			continue
		}
		if other.TenantID == u.TenantID && other.EmailNormalized == u.EmailNormalized {
			return sentinel.Duplicate(FieldEmail)
		}
		if u.Role == access.RoleOwner && other.Role == access.RoleOwner && other.TenantID == u.TenantID {
			return sentinel.Duplicate(FieldOwner)
		}
		if u.Role == access.RoleSuperAdmin && other.Role == access.RoleSuperAdmin {
			return sentinel.Duplicate(FieldSuperAdmin)
		}
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// FindByEmail looks up a normalized address within a tenant. A nil tenant
// matches only the SuperAdmin.
func (s *InMemory) FindByEmail(_ context.Context, tenantID id.TenantID, normalized string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.TenantID == tenantID && u.EmailNormalized == normalized {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// FirstActive returns the earliest created active user of role in the tenant.
func (s *InMemory) FirstActive(_ context.Context, tenantID id.TenantID, role access.Role) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var first *models.User
	for _, u := range s.users {
		if u.TenantID != tenantID || u.Role != role || !u.Active {
			continue
		}
		if first == nil || u.CreatedAt.Before(first.CreatedAt) {
			first = u
		}
	}
	if first == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *first
	return &cp, nil
}

// List returns a page of the tenant's users, newest first.
func (s *InMemory) List(_ context.Context, filter models.ListFilter) ([]*models.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]*models.User, 0)
	for _, u := range s.users {
		if u.TenantID != filter.TenantID || u.Role == access.RoleSuperAdmin {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		cp := *u
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, filter.Offset, filter.Limit), len(matched), nil
}

// ListByTenant returns every user in the tenant.
func (s *InMemory) ListByTenant(_ context.Context, tenantID id.TenantID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0)
	for _, u := range s.users {
		if u.TenantID == tenantID {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) Update(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if err := s.checkUnique(u); err != nil {
		return err
	}
	prev := *existing
	next := *u
	s.users[u.ID] = &next
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.users[u.ID] = &prev
	})
	return nil
}

func (s *InMemory) Delete(ctx context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, userID)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.users[userID] = existing
	})
	return nil
}

// CountByTenant counts the tenant's users for quota admission.
func (s *InMemory) CountByTenant(_ context.Context, tenantID id.TenantID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.TenantID == tenantID && !tenantID.IsNil() {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) CountByRole(_ context.Context, role access.Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// DeleteByTenant removes every user of a tenant as part of tenant deletion.
func (s *InMemory) DeleteByTenant(ctx context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make([]*models.User, 0)
	for userID, u := range s.users {
		if u.TenantID == tenantID {
			removed = append(removed, u)
			delete(s.users, userID)
		}
	}
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, u := range removed {
			s.users[u.ID] = u
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
