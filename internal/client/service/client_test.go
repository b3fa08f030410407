package service

import (
	"context"
	"errors"

	"go.uber.org/mock/gomock"

	"orbit/internal/access"
	"orbit/internal/client/models"
	"orbit/internal/notification"
	"orbit/internal/plan"
	"orbit/internal/quota"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
)

func strPtr(v string) *string { return &v }

func (s *ServiceSuite) TestCreate() {
	req := func() *models.CreateClientRequest {
		return &models.CreateClientRequest{Name: "Ada", Email: "Ada@Client.test", Phone: "123456", Tags: models.TagList{"vip"}}
	}

	s.Run("free plan auto-assigns the first admin and notifies both", func() {
		ctx, p := s.as(access.RoleOwner, s.tenant)
		admin := s.member(access.RoleAdmin, s.tenant)
		s.tenants.EXPECT().FindByID(gomock.Any(), s.tenant).Return(s.org(plan.Free), nil)
		s.members.EXPECT().FirstActive(gomock.Any(), s.tenant, access.RoleAdmin).Return(admin, nil)
		gomock.InOrder(
			s.quota.EXPECT().Admit(gomock.Any(), s.tenant, quota.KindClients, int64(1)).Return(nil),
			s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, c *models.Client) error {
				s.Equal(admin.ID, c.AssignedTo)
				s.Equal(p.ID, c.CreatedBy)
				s.Equal("ada@client.test", c.EmailNormalized)
				return nil
			}),
		)
		var kinds []string
		s.expectNotify(&kinds, 2)

		client, err := s.service.Create(ctx, req())
		s.Require().NoError(err)
		s.Equal(admin.ID, client.AssignedTo)
		s.Equal([]string{notification.KindClientWelcome, notification.KindClientAssigned}, kinds)
	})

	s.Run("paid plan leaves the client unassigned", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		s.tenants.EXPECT().FindByID(gomock.Any(), s.tenant).Return(s.org(plan.Pro), nil)
		s.quota.EXPECT().Admit(gomock.Any(), s.tenant, quota.KindClients, int64(1)).Return(nil)
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		var kinds []string
		s.expectNotify(&kinds, 1)

		client, err := s.service.Create(ctx, req())
		s.Require().NoError(err)
		s.True(client.AssignedTo.IsNil())
		s.Equal([]string{notification.KindClientWelcome}, kinds)
	})

	s.Run("self assignment sends no assignment email", func() {
		ctx, p := s.as(access.RoleAdmin, s.tenant)
		self := s.member(access.RoleAdmin, s.tenant)
		self.ID = p.ID
		r := req()
		r.AssignedTo = p.ID.String()
		s.tenants.EXPECT().FindByID(gomock.Any(), s.tenant).Return(s.org(plan.Free), nil)
		s.members.EXPECT().FindByID(gomock.Any(), p.ID).Return(self, nil)
		s.quota.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		var kinds []string
		s.expectNotify(&kinds, 1)

		_, err := s.service.Create(ctx, r)
		s.Require().NoError(err)
		s.Equal([]string{notification.KindClientWelcome}, kinds)
	})

	s.Run("assignee from another tenant is rejected", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		outsider := s.member(access.RoleStaff, id.NewTenantID())
		r := req()
		r.AssignedTo = outsider.ID.String()
		s.tenants.EXPECT().FindByID(gomock.Any(), s.tenant).Return(s.org(plan.Pro), nil)
		s.members.EXPECT().FindByID(gomock.Any(), outsider.ID).Return(outsider, nil)

		_, err := s.service.Create(ctx, r)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("inactive or owner assignee is rejected", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		inactive := s.member(access.RoleStaff, s.tenant)
		inactive.Active = false
		owner := s.member(access.RoleOwner, s.tenant)

		for _, m := range []*userModels.User{inactive, owner} {
			r := req()
			r.AssignedTo = m.ID.String()
			s.tenants.EXPECT().FindByID(gomock.Any(), s.tenant).Return(s.org(plan.Pro), nil)
			s.members.EXPECT().FindByID(gomock.Any(), m.ID).Return(m, nil)
			_, err := s.service.Create(ctx, r)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})

	s.Run("quota denial aborts without notifications", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		s.tenants.EXPECT().FindByID(gomock.Any(), s.tenant).Return(s.org(plan.Pro), nil)
		s.quota.EXPECT().Admit(gomock.Any(), s.tenant, quota.KindClients, int64(1)).
			Return(dErrors.New(dErrors.CodeQuotaExceeded, "client limit reached for the current plan, upgrade to add more"))

		_, err := s.service.Create(ctx, req())
		s.True(dErrors.HasCode(err, dErrors.CodeQuotaExceeded))
	})

	s.Run("duplicate email is a conflict", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		s.tenants.EXPECT().FindByID(gomock.Any(), s.tenant).Return(s.org(plan.Pro), nil)
		s.quota.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.Duplicate("email"))

		_, err := s.service.Create(ctx, req())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "email")
	})

	s.Run("staff cannot create clients", func() {
		ctx, _ := s.as(access.RoleStaff, s.tenant)
		_, err := s.service.Create(ctx, req())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("super admin must name the tenant", func() {
		ctx, _ := s.as(access.RoleSuperAdmin, id.TenantID{})
		_, err := s.service.Create(ctx, req())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown tenant", func() {
		ctx, _ := s.as(access.RoleSuperAdmin, id.TenantID{})
		r := req()
		r.TenantID = s.tenant.String()
		s.tenants.EXPECT().FindByID(gomock.Any(), s.tenant).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Create(ctx, r)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestList() {
	s.Run("staff are always filtered to themselves", func() {
		ctx, p := s.as(access.RoleStaff, s.tenant)
		s.store.EXPECT().List(gomock.Any(), models.ListFilter{
			TenantID: s.tenant, AssignedTo: p.ID, Search: "ada", Offset: 0, Limit: 10,
		}).Return([]*models.Client{}, 0, nil)

		_, _, err := s.service.List(ctx, models.ListClientsQuery{Search: "ada", AssignedTo: id.NewUserID().String(), Limit: 10})
		s.Require().NoError(err)
	})

	s.Run("admin may filter by assignee and tags", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		assignee := id.NewUserID()
		s.store.EXPECT().List(gomock.Any(), models.ListFilter{
			TenantID: s.tenant, AssignedTo: assignee, Tags: []string{"vip"}, Offset: 10, Limit: 10,
		}).Return([]*models.Client{s.client(s.tenant, assignee)}, 11, nil)

		clients, total, err := s.service.List(ctx, models.ListClientsQuery{Tags: []string{"vip"}, AssignedTo: assignee.String(), Offset: 10, Limit: 10})
		s.Require().NoError(err)
		s.Equal(11, total)
		s.Len(clients, 1)
	})

	s.Run("malformed assignee", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		_, _, err := s.service.List(ctx, models.ListClientsQuery{AssignedTo: "nope"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("store failure is internal", func() {
		ctx, _ := s.as(access.RoleOwner, s.tenant)
		s.store.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, 0, errors.New("connection reset"))
		_, _, err := s.service.List(ctx, models.ListClientsQuery{})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestGet() {
	s.Run("staff cannot see another assignee's client", func() {
		ctx, _ := s.as(access.RoleStaff, s.tenant)
		c := s.client(s.tenant, id.NewUserID())
		s.store.EXPECT().FindByID(gomock.Any(), c.ID).Return(c, nil)
		_, err := s.service.Get(ctx, c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("staff sees their own client", func() {
		ctx, p := s.as(access.RoleStaff, s.tenant)
		c := s.client(s.tenant, p.ID)
		s.store.EXPECT().FindByID(gomock.Any(), c.ID).Return(c, nil)
		got, err := s.service.Get(ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(c.ID, got.ID)
	})

	s.Run("another tenant's client is forbidden", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		c := s.client(id.NewTenantID(), id.UserID{})
		s.store.EXPECT().FindByID(gomock.Any(), c.ID).Return(c, nil)
		_, err := s.service.Get(ctx, c.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("super admin reads any tenant", func() {
		ctx, _ := s.as(access.RoleSuperAdmin, id.TenantID{})
		c := s.client(id.NewTenantID(), id.UserID{})
		s.store.EXPECT().FindByID(gomock.Any(), c.ID).Return(c, nil)
		_, err := s.service.Get(ctx, c.ID)
		s.NoError(err)
	})

	s.Run("missing", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		s.store.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Get(ctx, id.NewClientID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestUpdate() {
	s.Run("reassignment notifies the new assignee", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		c := s.client(s.tenant, id.UserID{})
		staff := s.member(access.RoleStaff, s.tenant)
		tags := models.TagList{"retail"}
		s.store.EXPECT().FindByID(gomock.Any(), c.ID).Return(c, nil)
		s.members.EXPECT().FindByID(gomock.Any(), staff.ID).Return(staff, nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.Client) error {
			s.Equal(staff.ID, u.AssignedTo)
			s.Equal("Ada Lovelace", u.Name)
			s.Equal([]string{"retail"}, u.Tags)
			s.Equal(s.now, u.UpdatedAt)
			return nil
		})
		var kinds []string
		s.expectNotify(&kinds, 1)

		_, err := s.service.Update(ctx, c.ID, &models.UpdateClientRequest{
			Name: strPtr("Ada Lovelace"), Tags: &tags, AssignedTo: strPtr(staff.ID.String()),
		})
		s.Require().NoError(err)
		s.Equal([]string{notification.KindClientAssigned}, kinds)
	})

	s.Run("same assignee sends nothing", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		staff := s.member(access.RoleStaff, s.tenant)
		c := s.client(s.tenant, staff.ID)
		s.store.EXPECT().FindByID(gomock.Any(), c.ID).Return(c, nil)
		s.members.EXPECT().FindByID(gomock.Any(), staff.ID).Return(staff, nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

		_, err := s.service.Update(ctx, c.ID, &models.UpdateClientRequest{AssignedTo: strPtr(staff.ID.String())})
		s.NoError(err)
	})

	s.Run("empty assignee clears", func() {
		ctx, _ := s.as(access.RoleOwner, s.tenant)
		c := s.client(s.tenant, id.NewUserID())
		s.store.EXPECT().FindByID(gomock.Any(), c.ID).Return(c, nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.Client) error {
			s.True(u.AssignedTo.IsNil())
			return nil
		})
		_, err := s.service.Update(ctx, c.ID, &models.UpdateClientRequest{AssignedTo: strPtr("")})
		s.NoError(err)
	})

	s.Run("duplicate email", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		c := s.client(s.tenant, id.UserID{})
		s.store.EXPECT().FindByID(gomock.Any(), c.ID).Return(c, nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(sentinel.Duplicate("email"))
		_, err := s.service.Update(ctx, c.ID, &models.UpdateClientRequest{Email: strPtr("bob@client.test")})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("staff cannot update", func() {
		ctx, _ := s.as(access.RoleStaff, s.tenant)
		_, err := s.service.Update(ctx, id.NewClientID(), &models.UpdateClientRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestDelete() {
	s.Run("admin deletes", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		c := s.client(s.tenant, id.UserID{})
		s.store.EXPECT().FindByID(gomock.Any(), c.ID).Return(c, nil)
		s.store.EXPECT().Delete(gomock.Any(), c.ID).Return(nil)
		s.NoError(s.service.Delete(ctx, c.ID))
	})

	s.Run("cross tenant", func() {
		ctx, _ := s.as(access.RoleOwner, s.tenant)
		c := s.client(id.NewTenantID(), id.UserID{})
		s.store.EXPECT().FindByID(gomock.Any(), c.ID).Return(c, nil)
		s.True(dErrors.HasCode(s.service.Delete(ctx, c.ID), dErrors.CodeForbidden))
	})

	s.Run("super admin cannot delete", func() {
		ctx, _ := s.as(access.RoleSuperAdmin, id.TenantID{})
		s.True(dErrors.HasCode(s.service.Delete(ctx, id.NewClientID()), dErrors.CodeForbidden))
	})
}
