package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,TenantStore,Quota,PasswordHasher,TokenIssuer

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"orbit/internal/access"
	"orbit/internal/auth/service/mocks"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
	"orbit/pkg/platform/tx"
)

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	users   *mocks.MockUserStore
	tenants *mocks.MockTenantStore
	quota   *mocks.MockQuota
	hasher  *mocks.MockPasswordHasher
	tokens  *mocks.MockTokenIssuer
	now     time.Time
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.users = mocks.NewMockUserStore(s.ctrl)
	s.tenants = mocks.NewMockTenantStore(s.ctrl)
	s.quota = mocks.NewMockQuota(s.ctrl)
	s.hasher = mocks.NewMockPasswordHasher(s.ctrl)
	s.tokens = mocks.NewMockTokenIssuer(s.ctrl)
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.service = New(s.users, s.tenants, s.quota, s.hasher, s.tokens, access.NewGate(), tx.NewInMemory(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) superAdminCtx() context.Context {
	return access.WithPrincipal(context.Background(), access.Principal{ID: id.NewUserID(), Role: access.RoleSuperAdmin})
}

func (s *ServiceSuite) account(role access.Role, tenantID id.TenantID) *userModels.User {
	u, err := userModels.NewUser(id.NewUserID(), tenantID, "Ann", "ann@acme.test", "hash", role, s.now)
	s.Require().NoError(err)
	return u
}

func (s *ServiceSuite) expectTokens(user *userModels.User) {
	s.tokens.EXPECT().GenerateAccessToken(gomock.Any(), user.ID, string(user.Role), user.TenantID).Return("access-token", nil)
	s.tokens.EXPECT().AccessTTL().Return(time.Hour)
}
