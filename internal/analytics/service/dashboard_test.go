package service

import (
	"errors"

	"go.uber.org/mock/gomock"

	"orbit/internal/access"
	activityModels "orbit/internal/activity/models"
	"orbit/internal/plan"
	tenantModels "orbit/internal/tenant/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/testutil"
)

func (s *ServiceSuite) tenant(name string, p plan.Plan) *tenantModels.Tenant {
	return testutil.NewTenantBuilder().WithName(name).WithPlan(p).Build()
}

func (s *ServiceSuite) expectCounts(t *tenantModels.Tenant, users, clients, activities int, assignees ...id.UserID) {
	s.users.EXPECT().CountByTenant(gomock.Any(), t.ID).Return(users, nil)
	s.clients.EXPECT().CountByTenant(gomock.Any(), t.ID).Return(clients, nil)
	s.activities.EXPECT().CountByTenant(gomock.Any(), t.ID).Return(activities, nil)
	counts := make([]activityModels.AssigneeCount, 0, len(assignees))
	for _, a := range assignees {
		counts = append(counts, activityModels.AssigneeCount{UserID: a, Count: 1})
	}
	s.activities.EXPECT().CountByAssignee(gomock.Any(), t.ID).Return(counts, nil)
}

func (s *ServiceSuite) TestDashboard() {
	s.Run("superadmin only", func() {
		_, err := s.service.Dashboard(s.as(access.RoleOwner))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("summarizes every tenant in list order", func() {
		free := testutil.NewTenantBuilder().WithName("Acme").WithStorageUsed(5 * plan.MiB).Build()
		ent := s.tenant("Globex", plan.Enterprise)
		third := s.tenant("Initech", plan.Pro)
		s.tenants.EXPECT().List(gomock.Any(), tenantModels.ListFilter{}).Return([]*tenantModels.Tenant{free, ent, third}, 3, nil)
		s.expectCounts(free, 2, 7, 4, id.NewUserID(), id.NewUserID())
		s.expectCounts(ent, 40, 900, 12, id.NewUserID())
		s.expectCounts(third, 1, 0, 0)

		rows, err := s.service.Dashboard(s.as(access.RoleSuperAdmin))
		s.Require().NoError(err)
		s.Require().Len(rows, 3)

		s.Equal("Acme", rows[0].Name)
		s.Equal(2, rows[0].ActiveUsers)
		s.Equal("Free", rows[0].SubscriptionStatus())
		usage := rows[0].UsageVsLimits()
		s.Equal("2/2", usage.Users)
		s.Equal("7/10", usage.Clients)
		s.Equal("5MB/100MB", usage.Storage)

		s.Equal("Active", rows[1].SubscriptionStatus())
		s.Equal("40/unlimited", rows[1].UsageVsLimits().Users)
		s.Equal("Initech", rows[2].Name)
		s.Zero(rows[2].ActiveUsers)
	})

	s.Run("a failing tenant fails the dashboard", func() {
		t := s.tenant("Acme", plan.Free)
		s.tenants.EXPECT().List(gomock.Any(), tenantModels.ListFilter{}).Return([]*tenantModels.Tenant{t}, 1, nil)
		s.users.EXPECT().CountByTenant(gomock.Any(), t.ID).Return(0, errors.New("connection reset"))

		_, err := s.service.Dashboard(s.as(access.RoleSuperAdmin))
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
