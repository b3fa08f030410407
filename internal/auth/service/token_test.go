package service

import (
	"context"

	"go.uber.org/mock/gomock"

	"orbit/internal/access"
	"orbit/internal/auth/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
	"orbit/pkg/requestcontext"
)

func (s *ServiceSuite) TestLogin() {
	tenantID := id.NewTenantID()

	s.Run("organization member", func() {
		user := s.account(access.RoleAdmin, tenantID)
		s.users.EXPECT().FindByEmail(gomock.Any(), tenantID, "ann@acme.test").Return(user, nil)
		s.hasher.EXPECT().Verify("secret1", "hash").Return(nil)
		s.expectTokens(user)
		s.tokens.EXPECT().GenerateRefreshToken(gomock.Any(), user.ID).Return("refresh-token", nil)

		ctx := requestcontext.WithClientMetadata(context.Background(), "10.0.0.1",
			"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
		result, err := s.service.Login(ctx, &models.LoginRequest{TenantID: tenantID.String(), Email: "ANN@acme.test", Password: "secret1"})
		s.Require().NoError(err)
		s.Equal("access-token", result.AccessToken)
		s.Equal("refresh-token", result.RefreshToken)
		s.Equal(user.ID, result.User.ID)
	})

	s.Run("super admin signs in without an organization", func() {
		user := s.account(access.RoleSuperAdmin, id.TenantID{})
		s.users.EXPECT().FindByEmail(gomock.Any(), id.TenantID{}, "ann@acme.test").Return(user, nil)
		s.hasher.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil)
		s.users.EXPECT().CountByRole(gomock.Any(), access.RoleSuperAdmin).Return(1, nil)
		s.expectTokens(user)
		s.tokens.EXPECT().GenerateRefreshToken(gomock.Any(), user.ID).Return("refresh-token", nil)
		_, err := s.service.Login(context.Background(), &models.LoginRequest{Email: "ann@acme.test", Password: "secret1"})
		s.NoError(err)
	})

	s.Run("member without organization", func() {
		s.users.EXPECT().FindByEmail(gomock.Any(), id.TenantID{}, gomock.Any()).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Login(context.Background(), &models.LoginRequest{Email: "ann@acme.test", Password: "secret1"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown email and wrong password look the same", func() {
		s.users.EXPECT().FindByEmail(gomock.Any(), tenantID, gomock.Any()).Return(nil, sentinel.ErrNotFound)
		_, unknown := s.service.Login(context.Background(), &models.LoginRequest{TenantID: tenantID.String(), Email: "x@acme.test", Password: "secret1"})

		user := s.account(access.RoleStaff, tenantID)
		s.users.EXPECT().FindByEmail(gomock.Any(), tenantID, gomock.Any()).Return(user, nil)
		s.hasher.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(dErrors.New(dErrors.CodeUnauthorized, "invalid secret"))
		_, wrong := s.service.Login(context.Background(), &models.LoginRequest{TenantID: tenantID.String(), Email: "ann@acme.test", Password: "nope"})

		s.True(dErrors.HasCode(unknown, dErrors.CodeUnauthorized))
		s.Equal(unknown.Error(), wrong.Error())
	})

	s.Run("inactive account", func() {
		user := s.account(access.RoleStaff, tenantID)
		user.Active = false
		s.users.EXPECT().FindByEmail(gomock.Any(), tenantID, gomock.Any()).Return(user, nil)
		s.hasher.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil)
		_, err := s.service.Login(context.Background(), &models.LoginRequest{TenantID: tenantID.String(), Email: "ann@acme.test", Password: "secret1"})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("refused while two super admins exist", func() {
		user := s.account(access.RoleSuperAdmin, id.TenantID{})
		s.users.EXPECT().FindByEmail(gomock.Any(), id.TenantID{}, gomock.Any()).Return(user, nil)
		s.hasher.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil)
		s.users.EXPECT().CountByRole(gomock.Any(), access.RoleSuperAdmin).Return(2, nil)
		_, err := s.service.Login(context.Background(), &models.LoginRequest{Email: "ann@acme.test", Password: "secret1"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestRefresh() {
	tenantID := id.NewTenantID()

	s.Run("reissues access with the stored role", func() {
		user := s.account(access.RoleAdmin, tenantID)
		s.tokens.EXPECT().ValidateRefreshToken("refresh-token").Return(user.ID, nil)
		s.users.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
		s.expectTokens(user)
		result, err := s.service.Refresh(context.Background(), "refresh-token")
		s.Require().NoError(err)
		s.Equal("access-token", result.AccessToken)
		s.Equal("refresh-token", result.RefreshToken)
	})

	s.Run("invalid token", func() {
		s.tokens.EXPECT().ValidateRefreshToken("bad").Return(id.UserID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
		_, err := s.service.Refresh(context.Background(), "bad")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("deleted user", func() {
		userID := id.NewUserID()
		s.tokens.EXPECT().ValidateRefreshToken(gomock.Any()).Return(userID, nil)
		s.users.EXPECT().FindByID(gomock.Any(), userID).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Refresh(context.Background(), "refresh-token")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("deactivated user", func() {
		user := s.account(access.RoleStaff, tenantID)
		user.Active = false
		s.tokens.EXPECT().ValidateRefreshToken(gomock.Any()).Return(user.ID, nil)
		s.users.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
		_, err := s.service.Refresh(context.Background(), "refresh-token")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
