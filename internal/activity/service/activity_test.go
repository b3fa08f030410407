package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/mock/gomock"

	"orbit/internal/access"
	"orbit/internal/activity/models"
	"orbit/internal/notification"
	"orbit/internal/objectstore"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
)

func strPtr(v string) *string { return &v }

var errQuota = dErrors.New(dErrors.CodeQuotaExceeded, "storage limit reached")

func (s *ServiceSuite) TestCreate() {
	s.Run("uploads, charges and notifies client and assignee", func() {
		ctx, p := s.as(access.RoleAdmin, s.tenant)
		client := s.client(s.tenant)
		staff := s.member(access.RoleStaff, s.tenant)
		staff.Email = "staff@acme.test"
		s.members.EXPECT().FindByID(gomock.Any(), staff.ID).Return(staff, nil)
		s.clients.EXPECT().FindByID(gomock.Any(), client.ID).Return(client, nil)
		s.storage.EXPECT().CheckStorage(gomock.Any(), s.tenant, int64(300)).Return(nil)
		s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).Times(2).
			DoAndReturn(func(_ context.Context, obj objectstore.Object) (string, error) {
				s.Equal("org/activity_"+s.tenant.String(), obj.Folder)
				return "memory://" + obj.Name, nil
			})
		gomock.InOrder(
			s.storage.EXPECT().ChargeStorage(gomock.Any(), s.tenant, int64(300)).Return(nil),
			s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, a *models.Activity) error {
				s.Equal(client.ID, a.ClientID)
				s.Equal(staff.ID, a.AssignedTo)
				s.Equal(p.ID, a.CreatedBy)
				s.Equal(models.TypeCall, a.Type)
				s.Equal(int64(300), a.StorageBytes)
				return nil
			}),
		)
		var to []string
		s.expectNotify(&to, 2)

		activity, err := s.service.Create(ctx, &models.CreateActivityRequest{
			ClientID:   client.ID.String(),
			Type:       "call",
			Date:       "02-03-26",
			AssignedTo: staff.ID.String(),
			Files:      []models.Upload{upload("a.png", 100), upload("b.png", 200)},
		})
		s.Require().NoError(err)
		s.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), activity.Date)
		s.Equal([]string{"memory://a.png", "memory://b.png"}, activity.URLs())
		s.Equal([]string{"ada@client.test", "staff@acme.test"}, to)
	})

	s.Run("without files skips storage entirely", func() {
		ctx, _ := s.as(access.RoleOwner, s.tenant)
		client := s.client(s.tenant)
		s.clients.EXPECT().FindByID(gomock.Any(), client.ID).Return(client, nil)
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		var to []string
		s.expectNotify(&to, 1)

		activity, err := s.service.Create(ctx, &models.CreateActivityRequest{ClientID: client.ID.String(), Date: "2026-03-02"})
		s.Require().NoError(err)
		s.Equal(models.TypeMeeting, activity.Type)
		s.Empty(activity.Attachments)
	})

	s.Run("staff and superadmin are forbidden", func() {
		for _, role := range []access.Role{access.RoleStaff, access.RoleSuperAdmin} {
			ctx, _ := s.as(role, s.tenant)
			_, err := s.service.Create(ctx, &models.CreateActivityRequest{ClientID: id.NewClientID().String(), Date: "02-03-26"})
			s.True(dErrors.HasCode(err, dErrors.CodeForbidden), role)
		}
	})

	s.Run("client of another tenant reads as not found", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		foreign := s.client(id.NewTenantID())
		s.clients.EXPECT().FindByID(gomock.Any(), foreign.ID).Return(foreign, nil)

		_, err := s.service.Create(ctx, &models.CreateActivityRequest{ClientID: foreign.ID.String(), Date: "02-03-26"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("invalid date", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		_, err := s.service.Create(ctx, &models.CreateActivityRequest{ClientID: id.NewClientID().String(), Date: "31-02-26"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("storage pre-check rejects before any upload", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		client := s.client(s.tenant)
		s.clients.EXPECT().FindByID(gomock.Any(), client.ID).Return(client, nil)
		s.storage.EXPECT().CheckStorage(gomock.Any(), s.tenant, int64(100)).Return(errQuota)

		_, err := s.service.Create(ctx, &models.CreateActivityRequest{
			ClientID: client.ID.String(), Date: "02-03-26", Files: []models.Upload{upload("a.png", 100)},
		})
		s.ErrorIs(err, errQuota)
	})

	s.Run("failed upload removes earlier uploads", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		client := s.client(s.tenant)
		s.clients.EXPECT().FindByID(gomock.Any(), client.ID).Return(client, nil)
		s.storage.EXPECT().CheckStorage(gomock.Any(), s.tenant, int64(200)).Return(nil)
		gomock.InOrder(
			s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("memory://a.png", nil),
			s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("", errors.New("bucket unavailable")),
			s.objects.EXPECT().Delete(gomock.Any(), "memory://a.png").Return(nil),
		)

		_, err := s.service.Create(ctx, &models.CreateActivityRequest{
			ClientID: client.ID.String(), Date: "02-03-26", Files: []models.Upload{upload("a.png", 100), upload("b.png", 100)},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUpstream))
	})

	s.Run("charge refused deletes the uploads", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		client := s.client(s.tenant)
		s.clients.EXPECT().FindByID(gomock.Any(), client.ID).Return(client, nil)
		s.storage.EXPECT().CheckStorage(gomock.Any(), s.tenant, int64(100)).Return(nil)
		s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("memory://a.png", nil)
		s.storage.EXPECT().ChargeStorage(gomock.Any(), s.tenant, int64(100)).Return(errQuota)
		s.objects.EXPECT().Delete(gomock.Any(), "memory://a.png").Return(nil)

		_, err := s.service.Create(ctx, &models.CreateActivityRequest{
			ClientID: client.ID.String(), Date: "02-03-26", Files: []models.Upload{upload("a.png", 100)},
		})
		s.ErrorIs(err, errQuota)
	})

	s.Run("invalid assignee", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		owner := s.member(access.RoleOwner, s.tenant)
		s.members.EXPECT().FindByID(gomock.Any(), owner.ID).Return(owner, nil)

		_, err := s.service.Create(ctx, &models.CreateActivityRequest{
			ClientID: id.NewClientID().String(), Date: "02-03-26", AssignedTo: owner.ID.String(),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestList() {
	s.Run("staff only see their own activities", func() {
		ctx, p := s.as(access.RoleStaff, s.tenant)
		other := id.NewUserID()
		s.store.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, f models.ListFilter) ([]*models.Activity, int, error) {
			s.Equal(s.tenant, f.TenantID)
			s.Equal(p.ID, f.AssignedTo)
			s.Equal(models.TypeCall, f.Type)
			return []*models.Activity{}, 0, nil
		})
		_, _, err := s.service.List(ctx, models.ListActivitiesQuery{AssignedTo: other.String(), Type: "CALL"})
		s.Require().NoError(err)
	})

	s.Run("admin filters by client", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		clientID := id.NewClientID()
		s.store.EXPECT().List(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, f models.ListFilter) ([]*models.Activity, int, error) {
			s.Equal(clientID, f.ClientID)
			s.True(f.AssignedTo.IsNil())
			return []*models.Activity{s.activity(s.tenant, id.UserID{})}, 1, nil
		})
		activities, total, err := s.service.List(ctx, models.ListActivitiesQuery{ClientID: clientID.String(), Limit: 10})
		s.Require().NoError(err)
		s.Equal(1, total)
		s.Len(activities, 1)
	})

	s.Run("malformed filter", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		_, _, err := s.service.List(ctx, models.ListActivitiesQuery{ClientID: "nope"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestGet() {
	s.Run("staff get on someone else's activity", func() {
		ctx, _ := s.as(access.RoleStaff, s.tenant)
		a := s.activity(s.tenant, id.NewUserID())
		s.store.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
		_, err := s.service.Get(ctx, a.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("another tenant is forbidden", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		a := s.activity(id.NewTenantID(), id.UserID{})
		s.store.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
		_, err := s.service.Get(ctx, a.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("missing", func() {
		ctx, _ := s.as(access.RoleOwner, s.tenant)
		activityID := id.NewActivityID()
		s.store.EXPECT().FindByID(gomock.Any(), activityID).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Get(ctx, activityID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestUpdate() {
	s.Run("owner cannot update", func() {
		ctx, _ := s.as(access.RoleOwner, s.tenant)
		_, err := s.service.Update(ctx, id.NewActivityID(), &models.UpdateActivityRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("larger files charge the difference and drop old objects after commit", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		a := s.activity(s.tenant, id.UserID{}, 100)
		client := s.client(s.tenant)
		s.store.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
		s.expectLock(a)
		s.storage.EXPECT().CheckStorage(gomock.Any(), s.tenant, int64(150)).Return(nil)
		s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("memory://new.png", nil)
		gomock.InOrder(
			s.storage.EXPECT().ChargeStorage(gomock.Any(), s.tenant, int64(150)).Return(nil),
			s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil),
			s.objects.EXPECT().Delete(gomock.Any(), "memory://old/a.png").Return(nil),
		)
		s.clients.EXPECT().FindByID(gomock.Any(), a.ClientID).Return(client, nil)
		var to []string
		s.expectNotify(&to, 1)

		updated, err := s.service.Update(ctx, a.ID, &models.UpdateActivityRequest{
			Description: strPtr("moved"),
			Files:       []models.Upload{upload("new.png", 250)},
		})
		s.Require().NoError(err)
		s.Equal("moved", updated.Description)
		s.Equal(int64(250), updated.StorageBytes)
		s.Equal([]string{"memory://new.png"}, updated.URLs())
		s.Equal(s.now, updated.UpdatedAt)
	})

	s.Run("smaller files release the difference", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		a := s.activity(s.tenant, id.UserID{}, 300)
		s.store.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
		s.expectLock(a)
		s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("memory://new.png", nil)
		s.storage.EXPECT().ReleaseStorage(gomock.Any(), s.tenant, int64(200)).Return(nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		s.objects.EXPECT().Delete(gomock.Any(), "memory://old/a.png").Return(nil)
		s.clients.EXPECT().FindByID(gomock.Any(), a.ClientID).Return(nil, sentinel.ErrNotFound)

		updated, err := s.service.Update(ctx, a.ID, &models.UpdateActivityRequest{Files: []models.Upload{upload("new.png", 100)}})
		s.Require().NoError(err)
		s.Equal(int64(100), updated.StorageBytes)
	})

	s.Run("delta and replaced files come from the locked row", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		a := s.activity(s.tenant, id.UserID{}, 100)
		// Another writer replaced the files after the first read.
		current := s.activity(s.tenant, id.UserID{}, 300)
		current.ID, current.ClientID = a.ID, a.ClientID
		current.Attachments[0].URL = "memory://other.png"
		s.store.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
		s.storage.EXPECT().CheckStorage(gomock.Any(), s.tenant, int64(150)).Return(nil)
		s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("memory://new.png", nil)
		gomock.InOrder(
			s.store.EXPECT().LockByID(gomock.Any(), a.ID).Return(current, nil),
			s.storage.EXPECT().ReleaseStorage(gomock.Any(), s.tenant, int64(50)).Return(nil),
			s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil),
			s.objects.EXPECT().Delete(gomock.Any(), "memory://other.png").Return(nil),
		)
		s.clients.EXPECT().FindByID(gomock.Any(), a.ClientID).Return(nil, sentinel.ErrNotFound)

		updated, err := s.service.Update(ctx, a.ID, &models.UpdateActivityRequest{Files: []models.Upload{upload("new.png", 250)}})
		s.Require().NoError(err)
		s.Equal(int64(250), updated.StorageBytes)
	})

	s.Run("update without files keeps the locked row's attachments", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		a := s.activity(s.tenant, id.UserID{}, 100)
		current := s.activity(s.tenant, id.UserID{}, 300)
		current.ID, current.ClientID = a.ID, a.ClientID
		s.store.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
		s.store.EXPECT().LockByID(gomock.Any(), a.ID).Return(current, nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		s.clients.EXPECT().FindByID(gomock.Any(), a.ClientID).Return(nil, sentinel.ErrNotFound)

		updated, err := s.service.Update(ctx, a.ID, &models.UpdateActivityRequest{Description: strPtr("moved")})
		s.Require().NoError(err)
		s.Equal(int64(300), updated.StorageBytes)
		s.Equal("moved", updated.Description)
	})

	s.Run("failed write keeps old objects and removes new ones", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		a := s.activity(s.tenant, id.UserID{}, 100)
		s.store.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
		s.expectLock(a)
		s.objects.EXPECT().Upload(gomock.Any(), gomock.Any()).Return("memory://new.png", nil)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
		s.objects.EXPECT().Delete(gomock.Any(), "memory://new.png").Return(nil)

		_, err := s.service.Update(ctx, a.ID, &models.UpdateActivityRequest{Files: []models.Upload{upload("new.png", 100)}})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("moving to a client of another tenant", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		a := s.activity(s.tenant, id.UserID{})
		foreign := s.client(id.NewTenantID())
		s.store.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
		s.clients.EXPECT().FindByID(gomock.Any(), foreign.ID).Return(foreign, nil)

		_, err := s.service.Update(ctx, a.ID, &models.UpdateActivityRequest{ClientID: strPtr(foreign.ID.String())})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("empty assignee clears it", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		a := s.activity(s.tenant, id.NewUserID())
		client := s.client(s.tenant)
		s.store.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
		s.expectLock(a)
		s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		s.clients.EXPECT().FindByID(gomock.Any(), a.ClientID).Return(client, nil)
		var to []string
		s.expectNotify(&to, 1)

		updated, err := s.service.Update(ctx, a.ID, &models.UpdateActivityRequest{AssignedTo: strPtr("")})
		s.Require().NoError(err)
		s.True(updated.AssignedTo.IsNil())
	})
}

func (s *ServiceSuite) TestDelete() {
	s.Run("releases storage, deletes objects and notifies", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		staff := s.member(access.RoleStaff, s.tenant)
		staff.Email = "staff@acme.test"
		a := s.activity(s.tenant, staff.ID, 100, 50)
		client := s.client(s.tenant)
		s.store.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
		s.expectLock(a)
		gomock.InOrder(
			s.storage.EXPECT().ReleaseStorage(gomock.Any(), s.tenant, int64(150)).Return(nil),
			s.store.EXPECT().Delete(gomock.Any(), a.ID).Return(nil),
			s.objects.EXPECT().Delete(gomock.Any(), "memory://old/a.png").Return(nil),
			s.objects.EXPECT().Delete(gomock.Any(), "memory://old/b.png").Return(errors.New("gone")),
		)
		s.clients.EXPECT().FindByID(gomock.Any(), a.ClientID).Return(client, nil)
		s.members.EXPECT().FindByID(gomock.Any(), staff.ID).Return(staff, nil)
		var to []string
		s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Times(2).
			DoAndReturn(func(_ context.Context, msg notification.Message) bool {
				s.True(strings.HasPrefix(msg.Subject, "Meeting on"))
				to = append(to, msg.To)
				return true
			})

		s.Require().NoError(s.service.Delete(ctx, a.ID))
		s.Equal([]string{"ada@client.test", "staff@acme.test"}, to)
	})

	s.Run("releases the bytes of the locked row", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		a := s.activity(s.tenant, id.UserID{}, 100)
		current := s.activity(s.tenant, id.UserID{}, 40)
		current.ID, current.ClientID = a.ID, a.ClientID
		s.store.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
		s.store.EXPECT().LockByID(gomock.Any(), a.ID).Return(current, nil)
		s.storage.EXPECT().ReleaseStorage(gomock.Any(), s.tenant, int64(40)).Return(nil)
		s.store.EXPECT().Delete(gomock.Any(), a.ID).Return(nil)
		s.objects.EXPECT().Delete(gomock.Any(), "memory://old/a.png").Return(nil)
		s.clients.EXPECT().FindByID(gomock.Any(), a.ClientID).Return(nil, sentinel.ErrNotFound)

		s.Require().NoError(s.service.Delete(ctx, a.ID))
	})

	s.Run("failed delete keeps objects", func() {
		ctx, _ := s.as(access.RoleAdmin, s.tenant)
		a := s.activity(s.tenant, id.UserID{}, 100)
		s.store.EXPECT().FindByID(gomock.Any(), a.ID).Return(a, nil)
		s.expectLock(a)
		s.storage.EXPECT().ReleaseStorage(gomock.Any(), s.tenant, int64(100)).Return(nil)
		s.store.EXPECT().Delete(gomock.Any(), a.ID).Return(sentinel.ErrNotFound)

		err := s.service.Delete(ctx, a.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("staff cannot delete", func() {
		ctx, _ := s.as(access.RoleStaff, s.tenant)
		s.True(dErrors.HasCode(s.service.Delete(ctx, id.NewActivityID()), dErrors.CodeForbidden))
	})
}
