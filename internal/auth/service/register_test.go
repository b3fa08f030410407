package service

import (
	"context"
	"errors"

	"go.uber.org/mock/gomock"

	"orbit/internal/access"
	"orbit/internal/auth/models"
	"orbit/internal/quota"
	tenantModels "orbit/internal/tenant/models"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
)

func (s *ServiceSuite) TestRegisterSuperAdmin() {
	req := func() *models.RegisterSuperAdminRequest {
		return &models.RegisterSuperAdminRequest{Name: "Root", Email: "Root@Orbit.test", Password: "secret1"}
	}

	s.Run("first super admin has no tenant", func() {
		s.hasher.EXPECT().Hash("secret1").Return("hashed", nil)
		s.users.EXPECT().CountByRole(gomock.Any(), access.RoleSuperAdmin).Return(0, nil)
		s.users.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *userModels.User) error {
			s.True(u.TenantID.IsNil())
			s.Equal("root@orbit.test", u.EmailNormalized)
			return nil
		})
		user, err := s.service.RegisterSuperAdmin(context.Background(), req())
		s.Require().NoError(err)
		s.Equal(access.RoleSuperAdmin, user.Role)
	})

	s.Run("second super admin is a conflict", func() {
		s.hasher.EXPECT().Hash(gomock.Any()).Return("hashed", nil)
		s.users.EXPECT().CountByRole(gomock.Any(), access.RoleSuperAdmin).Return(1, nil)
		_, err := s.service.RegisterSuperAdmin(context.Background(), req())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("racing insert hits the unique index", func() {
		s.hasher.EXPECT().Hash(gomock.Any()).Return("hashed", nil)
		s.users.EXPECT().CountByRole(gomock.Any(), access.RoleSuperAdmin).Return(0, nil)
		s.users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.Duplicate("superadmin"))
		_, err := s.service.RegisterSuperAdmin(context.Background(), req())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "a super admin already exists")
	})

	s.Run("hash failure", func() {
		s.hasher.EXPECT().Hash(gomock.Any()).Return("", errors.New("bcrypt"))
		_, err := s.service.RegisterSuperAdmin(context.Background(), req())
		s.Error(err)
	})
}

func (s *ServiceSuite) TestRegisterOwner() {
	tenantID := id.NewTenantID()
	req := func() *models.RegisterOwnerRequest {
		return &models.RegisterOwnerRequest{TenantID: tenantID.String(), Name: "Olive", Email: "olive@acme.test", Password: "secret1"}
	}

	s.Run("requires the super admin", func() {
		ctx := access.WithPrincipal(context.Background(), access.Principal{
			ID: id.NewUserID(), Role: access.RoleOwner, TenantID: tenantID,
		})
		_, err := s.service.RegisterOwner(ctx, req())
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		_, err = s.service.RegisterOwner(context.Background(), req())
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("organization must exist", func() {
		s.tenants.EXPECT().FindByID(gomock.Any(), tenantID).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.RegisterOwner(s.superAdminCtx(), req())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("admits the users quota then inserts", func() {
		s.tenants.EXPECT().FindByID(gomock.Any(), tenantID).Return(&tenantModels.Tenant{ID: tenantID}, nil)
		s.hasher.EXPECT().Hash("secret1").Return("hashed", nil)
		gomock.InOrder(
			s.quota.EXPECT().Admit(gomock.Any(), tenantID, quota.KindUsers, int64(1)).Return(nil),
			s.users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil),
		)
		user, err := s.service.RegisterOwner(s.superAdminCtx(), req())
		s.Require().NoError(err)
		s.Equal(access.RoleOwner, user.Role)
		s.Equal(tenantID, user.TenantID)
	})

	s.Run("second owner is a conflict", func() {
		s.tenants.EXPECT().FindByID(gomock.Any(), tenantID).Return(&tenantModels.Tenant{ID: tenantID}, nil)
		s.hasher.EXPECT().Hash(gomock.Any()).Return("hashed", nil)
		s.quota.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
		s.users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.Duplicate("owner"))
		_, err := s.service.RegisterOwner(s.superAdminCtx(), req())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "an owner already exists for this organization")
	})

	s.Run("quota denial", func() {
		s.tenants.EXPECT().FindByID(gomock.Any(), tenantID).Return(&tenantModels.Tenant{ID: tenantID}, nil)
		s.hasher.EXPECT().Hash(gomock.Any()).Return("hashed", nil)
		s.quota.EXPECT().Admit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(dErrors.New(dErrors.CodeQuotaExceeded, "user limit reached"))
		_, err := s.service.RegisterOwner(s.superAdminCtx(), req())
		s.True(dErrors.HasCode(err, dErrors.CodeQuotaExceeded))
	})
}
