package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"orbit/internal/access"
	"orbit/internal/activity/service"
	activityStore "orbit/internal/activity/store"
	clientModels "orbit/internal/client/models"
	clientStore "orbit/internal/client/store"
	"orbit/internal/notification"
	"orbit/internal/objectstore"
	"orbit/internal/plan"
	"orbit/internal/quota"
	tenantModels "orbit/internal/tenant/models"
	tenantStore "orbit/internal/tenant/store"
	userModels "orbit/internal/user/models"
	userStore "orbit/internal/user/store"
	id "orbit/pkg/domain"
	"orbit/pkg/platform/tx"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg notification.Message) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return true
}

type file struct {
	name        string
	contentType string
	content     string
}

type HandlerSuite struct {
	suite.Suite
	ctx       context.Context
	tenants   *tenantStore.InMemory
	objects   *objectstore.InMemory
	tenant    *tenantModels.Tenant
	admin     *userModels.User
	staff     *userModels.User
	client    *clientModels.Client
	principal *access.Principal
	notifier  *recordingNotifier
	router    chi.Router
	now       time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	s.tenants = tenantStore.NewInMemory()
	s.objects = objectstore.NewInMemory()
	users := userStore.NewInMemory()
	clients := clientStore.NewInMemory()
	tenant, err := tenantModels.NewTenant(id.NewTenantID(), "Acme", "", "", plan.Free, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.tenants.Create(s.ctx, tenant))
	s.tenant = tenant

	s.admin, err = userModels.NewUser(id.NewUserID(), tenant.ID, "Adam", "adam@acme.test", "hash", access.RoleAdmin, s.now)
	s.Require().NoError(err)
	s.staff, err = userModels.NewUser(id.NewUserID(), tenant.ID, "Sam", "sam@acme.test", "hash", access.RoleStaff, s.now)
	s.Require().NoError(err)
	s.Require().NoError(users.Create(s.ctx, s.admin))
	s.Require().NoError(users.Create(s.ctx, s.staff))

	s.client, err = clientModels.NewClient(id.NewClientID(), tenant.ID, "Ada", "ada@client.test", "123456", "", nil, id.UserID{}, s.admin.ID, s.now)
	s.Require().NoError(err)
	s.Require().NoError(clients.Create(s.ctx, s.client))

	s.as(s.admin)
	s.notifier = &recordingNotifier{}
	svc := service.New(activityStore.NewInMemory(), clients, users, quota.New(s.tenants), s.objects, s.notifier,
		access.NewGate(), tx.NewInMemory(),
		service.WithLogger(logger),
		service.WithClock(func() time.Time { return s.now }),
	)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(access.WithPrincipal(req.Context(), *s.principal)))
		})
	})
	New(svc, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) as(u *userModels.User) {
	p := u.Principal()
	s.principal = &p
}

func (s *HandlerSuite) send(method, path string, fields map[string]string, files ...file) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		s.Require().NoError(mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		s.Require().NoError(err)
		_, err = part.Write([]byte(f.content))
		s.Require().NoError(err)
	}
	s.Require().NoError(mw.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func (s *HandlerSuite) storageUsed() int64 {
	usage, err := s.tenants.GetUsage(s.ctx, s.tenant.ID)
	s.Require().NoError(err)
	return usage.StorageUsed
}

func (s *HandlerSuite) create(fields map[string]string, files ...file) map[string]any {
	body := map[string]string{"clientId": s.client.ID.String(), "date": "02-03-26"}
	for k, v := range fields {
		body[k] = v
	}
	rec := s.send(http.MethodPost, "/activity", body, files...)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	return s.decode(rec)
}

func png(name, content string) file {
	return file{name: name, contentType: "image/png", content: content}
}

func (s *HandlerSuite) TestCreate() {
	s.Run("stores files and charges their size", func() {
		out := s.create(map[string]string{"type": "call", "description": "intro", "assignedTo": s.staff.ID.String()},
			png("a.png", "12345"), png("b.png", "123"))
		s.Equal("Call", out["type"])
		s.Equal(s.staff.ID.String(), out["assignedTo"])
		s.Len(out["files"], 2)
		s.Equal(2, s.objects.Len())
		s.Equal(int64(8), s.storageUsed())
		s.Len(s.notifier.sent, 2)
		s.Equal("Call scheduled for 02 Mar 2026", s.notifier.sent[0].Subject)
	})

	s.Run("non-image upload", func() {
		rec := s.send(http.MethodPost, "/activity", map[string]string{"clientId": s.client.ID.String(), "date": "02-03-26"},
			file{name: "notes.txt", contentType: "text/plain", content: "x"})
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Equal("validation_failed", s.decode(rec)["error"])
	})

	s.Run("missing client id", func() {
		rec := s.send(http.MethodPost, "/activity", map[string]string{"date": "02-03-26"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown client", func() {
		rec := s.send(http.MethodPost, "/activity", map[string]string{"clientId": id.NewClientID().String(), "date": "02-03-26"})
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("storage ceiling rejects and keeps nothing", func() {
		used := s.storageUsed()
		s.Require().NoError(s.tenants.ChargeStorage(s.ctx, s.tenant.ID, 100*plan.MiB-used-2))
		before := s.objects.Len()

		rec := s.send(http.MethodPost, "/activity", map[string]string{"clientId": s.client.ID.String(), "date": "02-03-26"},
			png("big.png", "12345"))
		s.Equal(http.StatusForbidden, rec.Code)
		s.Equal("quota_exceeded", s.decode(rec)["error"])
		s.Equal(before, s.objects.Len())
		s.Equal(100*plan.MiB-2, s.storageUsed())
	})

	s.Run("staff are forbidden", func() {
		s.as(s.staff)
		rec := s.send(http.MethodPost, "/activity", map[string]string{"clientId": s.client.ID.String(), "date": "02-03-26"})
		s.Equal(http.StatusForbidden, rec.Code)
	})
}

func (s *HandlerSuite) TestStaffVisibility() {
	mine := s.create(map[string]string{"assignedTo": s.staff.ID.String()})
	theirs := s.create(map[string]string{"assignedTo": s.admin.ID.String()})

	s.as(s.staff)
	rec := s.get("/activity")
	s.Require().Equal(http.StatusOK, rec.Code)
	out := s.decode(rec)
	s.Equal(float64(1), out["totalResults"])
	items := out["items"].([]any)
	s.Equal(mine["id"], items[0].(map[string]any)["id"])

	s.Equal(http.StatusNotFound, s.get("/activity/"+theirs["id"].(string)).Code)
	s.Equal(http.StatusOK, s.get("/activity/"+mine["id"].(string)).Code)
}

func (s *HandlerSuite) TestUpdateReplacesFiles() {
	created := s.create(nil, png("a.png", "1234567890"))
	path := "/activity/" + created["id"].(string)
	oldURL := created["files"].([]any)[0].(map[string]any)["url"].(string)
	s.Equal(int64(10), s.storageUsed())

	rec := s.send(http.MethodPut, path, map[string]string{"description": "rescheduled", "date": "2026-03-05"}, png("b.png", "1234"))
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	out := s.decode(rec)
	s.Equal("rescheduled", out["description"])
	s.Len(out["files"], 1)
	s.False(s.objects.Has(oldURL))
	s.Equal(1, s.objects.Len())
	s.Equal(int64(4), s.storageUsed())

	s.Run("owner cannot update", func() {
		owner, err := userModels.NewUser(id.NewUserID(), s.tenant.ID, "Olive", "olive@acme.test", "hash", access.RoleOwner, s.now)
		s.Require().NoError(err)
		s.as(owner)
		s.Equal(http.StatusForbidden, s.send(http.MethodPut, path, map[string]string{"description": "x"}).Code)
	})
}

func (s *HandlerSuite) TestDelete() {
	created := s.create(nil, png("a.png", "12345"))
	path := "/activity/" + created["id"].(string)
	s.notifier.sent = nil

	req := httptest.NewRequest(http.MethodDelete, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusNoContent, rec.Code)
	s.Zero(s.objects.Len())
	s.Zero(s.storageUsed())
	s.Require().Len(s.notifier.sent, 1)
	s.Equal("ada@client.test", s.notifier.sent[0].To)
	s.Equal(http.StatusNotFound, s.get(path).Code)
}
