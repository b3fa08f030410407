package service

import (
	"encoding/csv"
	"errors"
	"strings"
	"time"

	"go.uber.org/mock/gomock"

	"orbit/internal/access"
	activityModels "orbit/internal/activity/models"
	"orbit/internal/analytics/models"
	clientModels "orbit/internal/client/models"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/testutil"
)

func (s *ServiceSuite) TestClientsPerMonth() {
	s.Run("staff cannot view analytics", func() {
		_, err := s.service.ClientsPerMonth(s.as(access.RoleStaff))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("superadmin cannot view tenant analytics", func() {
		_, err := s.service.ClientsPerMonth(s.as(access.RoleSuperAdmin))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("counts are read for the caller's tenant", func() {
		s.clients.EXPECT().CountByMonth(gomock.Any(), s.tenantID).Return([]clientModels.MonthlyCount{
			{Year: 2025, Month: 12, Count: 3},
			{Year: 2026, Month: 1, Count: 1},
		}, nil)
		counts, err := s.service.ClientsPerMonth(s.as(access.RoleOwner))
		s.Require().NoError(err)
		s.Equal([]models.MonthlyCount{{Year: 2025, Month: 12, Count: 3}, {Year: 2026, Month: 1, Count: 1}}, counts)
	})

	s.Run("store failure is internal", func() {
		s.clients.EXPECT().CountByMonth(gomock.Any(), s.tenantID).Return(nil, errors.New("boom"))
		_, err := s.service.ClientsPerMonth(s.as(access.RoleAdmin))
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestActiveUsers() {
	busy := s.user("Busy", "busy@acme.test")
	quiet := s.user("Quiet", "quiet@acme.test")
	s.activities.EXPECT().CountByAssignee(gomock.Any(), s.tenantID).Return([]activityModels.AssigneeCount{
		{UserID: busy.ID, Count: 5},
		{UserID: id.NewUserID(), Count: 3},
		{UserID: quiet.ID, Count: 1},
	}, nil)
	s.users.EXPECT().ListByTenant(gomock.Any(), s.tenantID).Return([]*userModels.User{quiet, busy}, nil)

	active, err := s.service.ActiveUsers(s.as(access.RoleOwner))
	s.Require().NoError(err)
	s.Require().Len(active, 2)
	s.Equal("Busy", active[0].Name)
	s.Equal(5, active[0].ActivityCount)
	s.Equal("quiet@acme.test", active[1].Email)
}

func (s *ServiceSuite) TestExportClients() {
	admin := s.user("Adam", "adam@acme.test")
	c := testutil.NewClientBuilder().
		WithTenantID(s.tenantID).
		WithName("Ada, Ltd").
		WithEmail("ada@client.test").
		WithPhone("555").
		WithCompany("Analytical").
		WithTags("vip", "lead").
		AssignedTo(admin.ID).
		CreatedAt(s.now).
		Build()
	s.clients.EXPECT().List(gomock.Any(), clientModels.ListFilter{TenantID: s.tenantID}).Return([]*clientModels.Client{c}, 1, nil)
	s.users.EXPECT().ListByTenant(gomock.Any(), s.tenantID).Return([]*userModels.User{admin}, nil)

	out, err := s.service.ExportClients(s.as(access.RoleAdmin))
	s.Require().NoError(err)
	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal("Name,Email,Phone,Company,Tags,Assigned To,Created By,Created At", strings.Join(records[0], ","))
	s.Equal([]string{"Ada, Ltd", "ada@client.test", "555", "Analytical", "vip,lead", "Adam", "", "2026-03-01T09:00:00Z"}, records[1])
}

func (s *ServiceSuite) TestExportActivities() {
	staff := s.user("Sam", "sam@acme.test")
	c := testutil.NewClientBuilder().WithTenantID(s.tenantID).WithName("Ada").Build()
	date := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	a := testutil.NewActivityBuilder().
		WithTenantID(s.tenantID).
		WithClientID(c.ID).
		WithType(activityModels.TypeCall).
		WithDescription("Follow up").
		On(date).
		AssignedTo(staff.ID).
		CreatedAt(s.now).
		Build()
	orphan := testutil.NewActivityBuilder().
		WithTenantID(s.tenantID).
		WithClientID(id.NewClientID()).
		WithType(activityModels.TypeNote).
		WithDescription("Gone").
		On(date).
		CreatedAt(s.now).
		Build()

	s.activities.EXPECT().List(gomock.Any(), activityModels.ListFilter{TenantID: s.tenantID}).Return([]*activityModels.Activity{a, orphan}, 2, nil)
	s.clients.EXPECT().List(gomock.Any(), clientModels.ListFilter{TenantID: s.tenantID}).Return([]*clientModels.Client{c}, 1, nil)
	s.users.EXPECT().ListByTenant(gomock.Any(), s.tenantID).Return([]*userModels.User{staff}, nil)

	out, err := s.service.ExportActivities(s.as(access.RoleOwner))
	s.Require().NoError(err)
	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	s.Equal([]string{"Type", "Date", "Description", "Client Name", "Assigned To", "Created At"}, records[0])
	s.Equal([]string{"Call", "2026-03-05T00:00:00Z", "Follow up", "Ada", "Sam", "2026-03-01T09:00:00Z"}, records[1])
	s.Equal([]string{"Note", "2026-03-05T00:00:00Z", "Gone", "", "", "2026-03-01T09:00:00Z"}, records[2])
}
