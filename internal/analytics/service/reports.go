package service

import (
	"context"

	"orbit/internal/access"
	"orbit/internal/analytics/models"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
)

// ClientsPerMonth counts the caller's clients by creation month, oldest first.
func (s *Service) ClientsPerMonth(ctx context.Context) ([]models.MonthlyCount, error) {
	_, scope, err := s.gate.Resolve(ctx, access.OpAnalyticsView, id.TenantID{})
	if err != nil {
		return nil, err
	}
	counts, err := s.clients.CountByMonth(ctx, scope.TenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count clients")
	}
	out := make([]models.MonthlyCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, models.MonthlyCount{Year: c.Year, Month: c.Month, Count: c.Count})
	}
	return out, nil
}

// ActiveUsers lists users with assigned activities, busiest first. Counts
// for users that no longer exist are dropped.
func (s *Service) ActiveUsers(ctx context.Context) ([]models.ActiveUser, error) {
	_, scope, err := s.gate.Resolve(ctx, access.OpAnalyticsView, id.TenantID{})
	if err != nil {
		return nil, err
	}
	counts, err := s.activities.CountByAssignee(ctx, scope.TenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count activities")
	}
	users, err := s.usersByID(ctx, scope.TenantID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ActiveUser, 0, len(counts))
	for _, c := range counts {
		u, ok := users[c.UserID]
		if !ok {
			continue
		}
		out = append(out, models.ActiveUser{UserID: u.ID, Name: u.Name, Email: u.Email, ActivityCount: c.Count})
	}
	return out, nil
}

func (s *Service) usersByID(ctx context.Context, tenantID id.TenantID) (map[id.UserID]*userModels.User, error) {
	users, err := s.users.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load users")
	}
	byID := make(map[id.UserID]*userModels.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

func nameOf(users map[id.UserID]*userModels.User, userID id.UserID) string {
	if u, ok := users[userID]; ok {
		return u.Name
	}
	return ""
}
