package service

import (
	"context"

	"go.uber.org/mock/gomock"

	"orbit/internal/access"
	"orbit/internal/quota"
	"orbit/internal/user/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
)

func strPtr(v string) *string { return &v }

func (s *ServiceSuite) TestCreate() {
	req := func() *models.CreateUserRequest {
		return &models.CreateUserRequest{Name: "Ann", Email: "Ann@Acme.test", Password: "secret1", Role: "Staff"}
	}

	s.Run("admin adds staff to own tenant after quota admission", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		s.hasher.EXPECT().Hash("secret1").Return("hashed", nil)
		gomock.InOrder(
			s.quota.EXPECT().Admit(gomock.Any(), s.tenant, quota.KindUsers, int64(1)).Return(nil),
			s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
				s.Equal(s.tenant, u.TenantID)
				s.Equal("ann@acme.test", u.EmailNormalized)
				s.Equal("hashed", u.PasswordHash)
				return nil
			}),
		)
		user, err := s.service.Create(ctx, req())
		s.Require().NoError(err)
		s.Equal(access.RoleStaff, user.Role)
		s.True(user.Active)
	})

	s.Run("quota denial aborts before insert", func() {
		ctx, _ := s.as(access.RoleOwner, s.tenant)
		s.hasher.EXPECT().Hash(gomock.Any()).Return("hashed", nil)
		s.quota.EXPECT().Admit(gomock.Any(), s.tenant, quota.KindUsers, int64(1)).
			Return(dErrors.New(dErrors.CodeQuotaExceeded, "user limit reached for the current plan, upgrade to add more"))
		_, err := s.service.Create(ctx, req())
		s.True(dErrors.HasCode(err, dErrors.CodeQuotaExceeded))
	})

	s.Run("duplicate email is a conflict naming the field", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		s.hasher.EXPECT().Hash(gomock.Any()).Return("hashed", nil)
		s.quota.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.Duplicate("email"))
		_, err := s.service.Create(ctx, req())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "email")
	})

	s.Run("owner role cannot be created here", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		r := req()
		r.Role = "Owner"
		_, err := s.service.Create(ctx, r)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("staff cannot create users", func() {
		ctx, _ := s.as(access.RoleStaff, s.tenant)
		_, err := s.service.Create(ctx, req())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("super admin must name the tenant", func() {
		ctx, _ := s.as(access.RoleSuperAdmin, id.TenantID{})
		_, err := s.service.Create(ctx, req())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("super admin acts on the named tenant", func() {
		ctx, _ := s.as(access.RoleSuperAdmin, id.TenantID{})
		other := id.NewTenantID()
		r := req()
		r.TenantID = other.String()
		s.hasher.EXPECT().Hash(gomock.Any()).Return("hashed", nil)
		s.quota.EXPECT().Admit(gomock.Any(), other, quota.KindUsers, int64(1)).Return(nil)
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		user, err := s.service.Create(ctx, r)
		s.Require().NoError(err)
		s.Equal(other, user.TenantID)
	})

	s.Run("tenant caller naming another tenant is forbidden", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		r := req()
		r.TenantID = id.NewTenantID().String()
		_, err := s.service.Create(ctx, r)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestList() {
	ctx, _ := s.as(access.RoleOwner, s.tenant)
	s.store.EXPECT().List(gomock.Any(), models.ListFilter{
		TenantID: s.tenant, Search: "ann", Role: access.RoleStaff, Offset: 10, Limit: 10,
	}).Return([]*models.User{s.member(access.RoleStaff, s.tenant)}, 11, nil)

	users, total, err := s.service.List(ctx, models.ListUsersQuery{Search: "ann", Role: "Staff", Offset: 10, Limit: 10})
	s.Require().NoError(err)
	s.Equal(11, total)
	s.Len(users, 1)

	_, _, err = s.service.List(ctx, models.ListUsersQuery{Role: "Manager"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestGet() {
	s.Run("cross tenant is forbidden", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		other := s.member(access.RoleStaff, id.NewTenantID())
		s.store.EXPECT().FindByID(gomock.Any(), other.ID).Return(other, nil)
		_, err := s.service.Get(ctx, other.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("super admin account is hidden", func() {
		ctx, _ := s.as(access.RoleOwner, s.tenant)
		sa := s.member(access.RoleSuperAdmin, id.TenantID{})
		s.store.EXPECT().FindByID(gomock.Any(), sa.ID).Return(sa, nil)
		_, err := s.service.Get(ctx, sa.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("missing", func() {
		ctx, _ := s.as(access.RoleOwner, s.tenant)
		s.store.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Get(ctx, id.NewUserID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestUpdate() {
	s.Run("changes fields and rehashes password", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		target := s.member(access.RoleStaff, s.tenant)
		s.store.EXPECT().FindByID(gomock.Any(), target.ID).Return(target, nil)
		s.hasher.EXPECT().Hash("newpass1").Return("rehashed", nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
			s.Equal("Renamed", u.Name)
			s.Equal("new@acme.test", u.EmailNormalized)
			s.Equal(access.RoleAdmin, u.Role)
			s.Equal("rehashed", u.PasswordHash)
			return nil
		})
		_, err := s.service.Update(ctx, target.ID, &models.UpdateUserRequest{
			Name: strPtr("Renamed"), Email: strPtr("NEW@acme.test"), Role: strPtr("Admin"), Password: strPtr("newpass1"),
		})
		s.Require().NoError(err)
	})

	s.Run("role cannot become owner or super admin", func() {
		for _, role := range []string{"Owner", "SuperAdmin"} {
			ctx, _ := s.as(access.RoleAdmin, s.tenant)
			target := s.member(access.RoleStaff, s.tenant)
			s.store.EXPECT().FindByID(gomock.Any(), target.ID).Return(target, nil)
			_, err := s.service.Update(ctx, target.ID, &models.UpdateUserRequest{Role: strPtr(role)})
			s.True(dErrors.HasCode(err, dErrors.CodeForbidden), role)
		}
	})

	s.Run("only super admin modifies an owner", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		owner := s.member(access.RoleOwner, s.tenant)
		s.store.EXPECT().FindByID(gomock.Any(), owner.ID).Return(owner, nil)
		_, err := s.service.Update(ctx, owner.ID, &models.UpdateUserRequest{Name: strPtr("x")})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		saCtx, _ := s.as(access.RoleSuperAdmin, id.TenantID{})
		s.store.EXPECT().FindByID(gomock.Any(), owner.ID).Return(owner, nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		_, err = s.service.Update(saCtx, owner.ID, &models.UpdateUserRequest{Name: strPtr("x")})
		s.NoError(err)
	})

	s.Run("email collision is a conflict", func() {
		ctx, _ := s.as(access.RoleOwner, s.tenant)
		target := s.member(access.RoleStaff, s.tenant)
		s.store.EXPECT().FindByID(gomock.Any(), target.ID).Return(target, nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(sentinel.Duplicate("email"))
		_, err := s.service.Update(ctx, target.ID, &models.UpdateUserRequest{Email: strPtr("taken@acme.test")})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("cannot deactivate self", func() {
		ctx, p := s.as(access.RoleAdmin, s.tenant)
		self := s.member(access.RoleAdmin, s.tenant)
		self.ID = p.ID
		off := false
		s.store.EXPECT().FindByID(gomock.Any(), self.ID).Return(self, nil)
		_, err := s.service.Update(ctx, self.ID, &models.UpdateUserRequest{Active: &off})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestDelete() {
	s.Run("owner deletes staff", func() {
		ctx, _ := s.as(access.RoleOwner, s.tenant)
		target := s.member(access.RoleStaff, s.tenant)
		s.store.EXPECT().FindByID(gomock.Any(), target.ID).Return(target, nil)
		s.store.EXPECT().Delete(gomock.Any(), target.ID).Return(nil)
		s.NoError(s.service.Delete(ctx, target.ID))
	})

	s.Run("owner may delete self", func() {
		ctx, p := s.as(access.RoleOwner, s.tenant)
		self := s.member(access.RoleOwner, s.tenant)
		self.ID = p.ID
		s.store.EXPECT().FindByID(gomock.Any(), self.ID).Return(self, nil)
		s.store.EXPECT().Delete(gomock.Any(), self.ID).Return(nil)
		s.NoError(s.service.Delete(ctx, self.ID))
	})

	s.Run("owner cannot delete another owner", func() {
		ctx, _ := s.as(access.RoleOwner, s.tenant)
		other := s.member(access.RoleOwner, s.tenant)
		s.store.EXPECT().FindByID(gomock.Any(), other.ID).Return(other, nil)
		err := s.service.Delete(ctx, other.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.ErrorContains(err, "an owner can only be deleted by itself")
	})

	s.Run("super admin cannot delete users", func() {
		ctx, _ := s.as(access.RoleSuperAdmin, id.TenantID{})
		s.True(dErrors.HasCode(s.service.Delete(ctx, id.NewUserID()), dErrors.CodeForbidden))
	})

	s.Run("admin cannot delete", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		s.True(dErrors.HasCode(s.service.Delete(ctx, id.NewUserID()), dErrors.CodeForbidden))
	})

	s.Run("another tenant's user is forbidden", func() {
		ctx, _ := s.as(access.RoleOwner, s.tenant)
		target := s.member(access.RoleStaff, id.NewTenantID())
		s.store.EXPECT().FindByID(gomock.Any(), target.ID).Return(target, nil)
		s.True(dErrors.HasCode(s.service.Delete(ctx, target.ID), dErrors.CodeForbidden))
	})
}
