// Package store persists CRM clients.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"orbit/internal/client/models"
	id "orbit/pkg/domain"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/platform/tx"
)

// FieldEmail is the duplicate field reported for a second client with the
// same normalized email in a tenant.
const FieldEmail = "email"

// InMemory stores clients in memory for development and tests.
type InMemory struct {
	mu      sync.RWMutex
	clients map[id.ClientID]*models.Client
}

func NewInMemory() *InMemory {
	return &InMemory{clients: make(map[id.ClientID]*models.Client)}
}

func (s *InMemory) Create(ctx context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clients[c.ID]; exists {
		return sentinel.Duplicate("id")
	}
	if err := s.checkUnique(c); err != nil {
		return err
	}
	s.clients[c.ID] = clone(c)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.clients, c.ID)
	})
	return nil
}

// checkUnique mirrors the (tenant_id, email_normalized) index. Callers hold mu.
func (s *InMemory) checkUnique(c *models.Client) error {
	for _, other := range s.clients {
		if other.ID != c.ID && other.TenantID == c.TenantID && other.EmailNormalized == c.EmailNormalized {
			return sentinel.Duplicate(FieldEmail)
		}
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, clientID id.ClientID) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[clientID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(c), nil
}

// List returns a page of the tenant's clients, newest first. Search matches
// name, company and tags.
func (s *InMemory) List(_ context.Context, filter models.ListFilter) ([]*models.Client, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]*models.Client, 0)
	for _, c := range s.clients {
		if c.TenantID != filter.TenantID {
			continue
		}
		if !filter.AssignedTo.IsNil() && c.AssignedTo != filter.AssignedTo {
			continue
		}
		if len(filter.Tags) > 0 && !c.HasAnyTag(filter.Tags) {
			continue
		}
		if search != "" && !matchesSearch(c, search) {
			continue
		}
		matched = append(matched, clone(c))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, filter.Offset, filter.Limit), len(matched), nil
}

func matchesSearch(c *models.Client, search string) bool {
	if strings.Contains(strings.ToLower(c.Name), search) || strings.Contains(strings.ToLower(c.Company), search) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}

func (s *InMemory) Update(ctx context.Context, c *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.clients[c.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if err := s.checkUnique(c); err != nil {
		return err
	}
	prev := existing
	s.clients[c.ID] = clone(c)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.clients[c.ID] = prev
	})
	return nil
}

func (s *InMemory) Delete(ctx context.Context, clientID id.ClientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.clients[clientID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.clients, clientID)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.clients[clientID] = existing
	})
	return nil
}

// CountByTenant counts the tenant's clients for quota admission.
func (s *InMemory) CountByTenant(_ context.Context, tenantID id.TenantID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.clients {
		if c.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// CountByMonth groups the tenant's clients by creation month, oldest first.
func (s *InMemory) CountByMonth(_ context.Context, tenantID id.TenantID) ([]models.MonthlyCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type key struct{ year, month int }
	counts := make(map[key]int)
	for _, c := range s.clients {
		if c.TenantID != tenantID {
			continue
		}
		created := c.CreatedAt.UTC()
		counts[key{created.Year(), int(created.Month())}]++
	}
	out := make([]models.MonthlyCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.MonthlyCount{Year: k.year, Month: k.month, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

// DeleteByTenant removes every client of a tenant as part of tenant deletion.
func (s *InMemory) DeleteByTenant(ctx context.Context, tenantID id.TenantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make([]*models.Client, 0)
	for clientID, c := range s.clients {
		if c.TenantID == tenantID {
			removed = append(removed, c)
			delete(s.clients, clientID)
		}
	}
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, c := range removed {
			s.clients[c.ID] = c
		}
	})
	return nil
}

func clone(c *models.Client) *models.Client {
	cp := *c
	cp.Tags = append([]string{}, c.Tags...)
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
