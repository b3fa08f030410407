package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"orbit/internal/access"
	activityModels "orbit/internal/activity/models"
	activityStore "orbit/internal/activity/store"
	"orbit/internal/analytics/service"
	clientModels "orbit/internal/client/models"
	clientStore "orbit/internal/client/store"
	"orbit/internal/plan"
	tenantModels "orbit/internal/tenant/models"
	tenantStore "orbit/internal/tenant/store"
	userModels "orbit/internal/user/models"
	userStore "orbit/internal/user/store"
	id "orbit/pkg/domain"
)

type HandlerSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	tenant    *tenantModels.Tenant
	admin     *userModels.User
	principal access.Principal
	router    chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tenants := tenantStore.NewInMemory()
	users := userStore.NewInMemory()
	clients := clientStore.NewInMemory()
	activities := activityStore.NewInMemory()

	var err error
	s.tenant, err = tenantModels.NewTenant(id.NewTenantID(), "Acme", "", "", plan.Free, s.now)
	s.Require().NoError(err)
	s.Require().NoError(tenants.Create(s.ctx, s.tenant))
	s.admin, err = userModels.NewUser(id.NewUserID(), s.tenant.ID, "Adam", "adam@acme.test", "hash", access.RoleAdmin, s.now)
	s.Require().NoError(err)
	s.Require().NoError(users.Create(s.ctx, s.admin))

	client, err := clientModels.NewClient(id.NewClientID(), s.tenant.ID, "Ada", "ada@client.test", "555", "Analytical",
		[]string{"vip"}, s.admin.ID, s.admin.ID, s.now)
	s.Require().NoError(err)
	s.Require().NoError(clients.Create(s.ctx, client))
	for i := 0; i < 2; i++ {
		a, err := activityModels.NewActivity(id.NewActivityID(), s.tenant.ID, client.ID, activityModels.TypeMeeting, "Kickoff",
			s.now.AddDate(0, 0, i), s.admin.ID, s.admin.ID, s.now)
		s.Require().NoError(err)
		s.Require().NoError(activities.Create(s.ctx, a))
	}

	s.principal = access.Principal{ID: s.admin.ID, Role: access.RoleAdmin, TenantID: s.tenant.ID}
	svc := service.New(clients, activities, users, tenants, access.NewGate(), service.WithLogger(logger))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(access.WithPrincipal(req.Context(), s.principal)))
		})
	})
	New(svc, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (s *HandlerSuite) TestClientsPerMonth() {
	rec := s.get("/analytics/clients")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`[{"year":2026,"month":3,"count":1}]`, rec.Body.String())
}

func (s *HandlerSuite) TestActiveUsers() {
	rec := s.get("/analytics/users/active")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.JSONEq(`[{"name":"Adam","email":"adam@acme.test","activityCount":2}]`, rec.Body.String())
}

func (s *HandlerSuite) TestExports() {
	s.Run("clients", func() {
		rec := s.get("/analytics/clients/export")
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Equal("text/csv", rec.Header().Get("Content-Type"))
		s.Contains(rec.Header().Get("Content-Disposition"), "clients.csv")
		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		s.Require().Len(lines, 2)
		s.Equal("Name,Email,Phone,Company,Tags,Assigned To,Created By,Created At", lines[0])
		s.Equal("Ada,ada@client.test,555,Analytical,vip,Adam,Adam,2026-03-01T09:00:00Z", lines[1])
	})

	s.Run("activities newest first", func() {
		rec := s.get("/analytics/activities/export")
		s.Require().Equal(http.StatusOK, rec.Code)
		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		s.Require().Len(lines, 3)
		s.Equal("Type,Date,Description,Client Name,Assigned To,Created At", lines[0])
		s.Equal("Meeting,2026-03-02T09:00:00Z,Kickoff,Ada,Adam,2026-03-01T09:00:00Z", lines[1])
	})

	s.Run("staff cannot export", func() {
		s.principal.Role = access.RoleStaff
		rec := s.get("/analytics/clients/export")
		s.Equal(http.StatusForbidden, rec.Code)
	})
}

func (s *HandlerSuite) TestDashboard() {
	s.Run("admin is forbidden", func() {
		s.Equal(http.StatusForbidden, s.get("/superadmin/dashboard").Code)
	})

	s.Run("superadmin sees usage against limits", func() {
		s.principal = access.Principal{ID: id.NewUserID(), Role: access.RoleSuperAdmin}
		rec := s.get("/superadmin/dashboard")
		s.Require().Equal(http.StatusOK, rec.Code)

		var out struct {
			Organizations []map[string]any `json:"organizations"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
		s.Require().Len(out.Organizations, 1)
		org := out.Organizations[0]
		s.Equal(s.tenant.ID.String(), org["orgId"])
		s.Equal("Free", org["subscriptionStatus"])
		s.Equal(float64(1), org["userCount"])
		s.Equal(float64(1), org["activeUsers"])
		s.Equal(float64(2), org["activityCount"])
		s.Equal(map[string]any{"users": "1/2", "clients": "1/10", "storage": "0MB/100MB"}, org["usageVsLimits"])
	})
}
