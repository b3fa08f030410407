package service

import (
	"context"
	"errors"

	"orbit/internal/access"
	"orbit/internal/activity/models"
	clientModels "orbit/internal/client/models"
	"orbit/internal/notification"
	"orbit/internal/objectstore"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
)

var errInvalidAssignee = dErrors.New(dErrors.CodeValidation, "assignedTo must be an active admin or staff member of the organization")

// Create logs an activity against a client of the caller's tenant.
// Attachments are uploaded before the transaction; if the charge or the
// insert fails they are deleted again and usage is left unchanged.
func (s *Service) Create(ctx context.Context, req *models.CreateActivityRequest) (*models.Activity, error) {
	p, scope, err := s.gate.Resolve(ctx, access.OpActivityCreate, id.TenantID{})
	if err != nil {
		return nil, err
	}
	clientID, err := id.ParseClientID(req.ClientID)
	if err != nil {
		return nil, err
	}
	kind, err := models.ParseType(req.Type)
	if err != nil {
		return nil, err
	}
	date, err := models.ParseDate(req.Date, s.loc)
	if err != nil {
		return nil, err
	}
	var assignee *userModels.User
	var assigneeID id.UserID
	if req.AssignedTo != "" {
		assignee, err = s.resolveAssignee(ctx, scope.TenantID, req.AssignedTo)
		if err != nil {
			return nil, err
		}
		assigneeID = assignee.ID
	}
	client, err := s.loadClient(ctx, scope.TenantID, clientID)
	if err != nil {
		return nil, err
	}

	activity, err := models.NewActivity(id.NewActivityID(), scope.TenantID, client.ID, kind, req.Description, date,
		assigneeID, p.ID, s.now())
	if err != nil {
		return nil, err
	}
	if total := uploadSize(req.Files); total > 0 {
		if err := s.storage.CheckStorage(ctx, scope.TenantID, total); err != nil {
			return nil, err
		}
	}
	files, err := s.upload(ctx, scope.TenantID, req.Files)
	if err != nil {
		return nil, err
	}
	activity.SetAttachments(files)

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if activity.StorageBytes > 0 {
			if err := s.storage.ChargeStorage(ctx, scope.TenantID, activity.StorageBytes); err != nil {
				return err
			}
		}
		if err := s.store.Create(ctx, activity); err != nil {
			return wrapActivityErr(err, "failed to create activity")
		}
		return nil
	})
	if err != nil {
		s.discard(ctx, activity.URLs())
		return nil, err
	}

	s.auditor.emit(ctx, "activity_created",
		"activity_id", activity.ID.String(),
		"tenant_id", activity.TenantID.String(),
		"client_id", activity.ClientID.String(),
		"files", len(activity.Attachments),
		"actor_id", p.ID.String(),
	)
	s.notifier.Notify(ctx, notification.ActivityScheduled(client.Name, client.Email, string(activity.Type), activity.Description, activity.Date))
	if assignee != nil && assignee.ID != p.ID {
		s.notifier.Notify(ctx, notification.ActivityScheduled(assignee.Name, assignee.Email, string(activity.Type), activity.Description, activity.Date))
	}
	return activity, nil
}

// List returns a page of the caller's activities, latest date first. Staff
// only see activities assigned to them.
func (s *Service) List(ctx context.Context, q models.ListActivitiesQuery) ([]*models.Activity, int, error) {
	_, scope, err := s.gate.Resolve(ctx, access.OpActivityList, id.TenantID{})
	if err != nil {
		return nil, 0, err
	}
	filter := models.ListFilter{
		TenantID: scope.TenantID,
		Search:   q.Search,
		Offset:   q.Offset,
		Limit:    q.Limit,
	}
	if q.ClientID != "" {
		if filter.ClientID, err = id.ParseClientID(q.ClientID); err != nil {
			return nil, 0, err
		}
	}
	if q.Type != "" {
		if filter.Type, err = models.ParseType(q.Type); err != nil {
			return nil, 0, err
		}
	}
	switch {
	case scope.SelfFiltered():
		filter.AssignedTo = scope.AssignedTo
	case q.AssignedTo != "":
		if filter.AssignedTo, err = id.ParseUserID(q.AssignedTo); err != nil {
			return nil, 0, err
		}
	}
	activities, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list activities")
	}
	return activities, total, nil
}

func (s *Service) Get(ctx context.Context, activityID id.ActivityID) (*models.Activity, error) {
	p, err := s.gate.Check(ctx, access.OpActivityGet)
	if err != nil {
		return nil, err
	}
	return s.loadTarget(ctx, p, access.OpActivityGet, activityID)
}

// Update applies a partial change. New files replace every attachment; only
// the size difference is charged or released, in the same transaction as
// the write. Replaced objects are deleted once the change is committed.
func (s *Service) Update(ctx context.Context, activityID id.ActivityID, req *models.UpdateActivityRequest) (*models.Activity, error) {
	p, err := s.gate.Check(ctx, access.OpActivityUpdate)
	if err != nil {
		return nil, err
	}
	activity, err := s.loadTarget(ctx, p, access.OpActivityUpdate, activityID)
	if err != nil {
		return nil, err
	}

	var client *clientModels.Client
	if req.ClientID != nil {
		clientID, err := id.ParseClientID(*req.ClientID)
		if err != nil {
			return nil, err
		}
		if client, err = s.loadClient(ctx, activity.TenantID, clientID); err != nil {
			return nil, err
		}
		activity.ClientID = client.ID
	}
	if req.Type != nil {
		if activity.Type, err = models.ParseType(*req.Type); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		activity.Description = *req.Description
	}
	if req.Date != nil {
		if activity.Date, err = models.ParseDate(*req.Date, s.loc); err != nil {
			return nil, err
		}
	}
	if req.AssignedTo != nil {
		if *req.AssignedTo == "" {
			activity.AssignedTo = id.UserID{}
		} else {
			assignee, err := s.resolveAssignee(ctx, activity.TenantID, *req.AssignedTo)
			if err != nil {
				return nil, err
			}
			activity.AssignedTo = assignee.ID
		}
	}

	var uploaded []models.Attachment
	if len(req.Files) > 0 {
		if grow := uploadSize(req.Files) - activity.StorageBytes; grow > 0 {
			if err := s.storage.CheckStorage(ctx, activity.TenantID, grow); err != nil {
				return nil, err
			}
		}
		if uploaded, err = s.upload(ctx, activity.TenantID, req.Files); err != nil {
			return nil, err
		}
	}
	activity.UpdatedAt = s.now()

	// The charged bytes and the files being replaced come from the row as
	// locked inside the transaction, never from the read above.
	var replaced []string
	var delta int64
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.store.LockByID(ctx, activity.ID)
		if err != nil {
			return wrapActivityErr(err, "failed to load activity")
		}
		if uploaded == nil {
			activity.SetAttachments(current.Attachments)
		} else {
			activity.SetAttachments(uploaded)
			delta = activity.StorageBytes - current.StorageBytes
			replaced = current.URLs()
		}
		switch {
		case delta > 0:
			if err := s.storage.ChargeStorage(ctx, activity.TenantID, delta); err != nil {
				return err
			}
		case delta < 0:
			if err := s.storage.ReleaseStorage(ctx, activity.TenantID, -delta); err != nil {
				return err
			}
		}
		if err := s.store.Update(ctx, activity); err != nil {
			return wrapActivityErr(err, "failed to update activity")
		}
		return nil
	})
	if err != nil {
		s.discard(ctx, urlsOf(uploaded))
		return nil, err
	}
	s.discard(ctx, replaced)

	s.auditor.emit(ctx, "activity_updated",
		"activity_id", activity.ID.String(),
		"tenant_id", activity.TenantID.String(),
		"storage_delta", delta,
		"actor_id", p.ID.String(),
	)
	if client == nil {
		client = s.lookupClient(ctx, activity.ClientID)
	}
	if client != nil {
		s.notifier.Notify(ctx, notification.ActivityScheduled(client.Name, client.Email, string(activity.Type), activity.Description, activity.Date))
	}
	return activity, nil
}

// Delete releases the activity's storage and removes the row in one
// transaction, then deletes its objects and tells the client and assignee.
func (s *Service) Delete(ctx context.Context, activityID id.ActivityID) error {
	p, err := s.gate.Check(ctx, access.OpActivityDelete)
	if err != nil {
		return err
	}
	activity, err := s.loadTarget(ctx, p, access.OpActivityDelete, activityID)
	if err != nil {
		return err
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.store.LockByID(ctx, activity.ID)
		if err != nil {
			return wrapActivityErr(err, "failed to load activity")
		}
		activity = current
		if activity.StorageBytes > 0 {
			if err := s.storage.ReleaseStorage(ctx, activity.TenantID, activity.StorageBytes); err != nil {
				return err
			}
		}
		if err := s.store.Delete(ctx, activity.ID); err != nil {
			return wrapActivityErr(err, "failed to delete activity")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.discard(ctx, activity.URLs())

	s.auditor.emit(ctx, "activity_deleted",
		"activity_id", activity.ID.String(),
		"tenant_id", activity.TenantID.String(),
		"released_bytes", activity.StorageBytes,
		"actor_id", p.ID.String(),
	)
	if client := s.lookupClient(ctx, activity.ClientID); client != nil {
		s.notifier.Notify(ctx, notification.ActivityCancelled(client.Name, client.Email, string(activity.Type), activity.Date))
	}
	if !activity.AssignedTo.IsNil() && activity.AssignedTo != p.ID {
		if assignee, err := s.members.FindByID(ctx, activity.AssignedTo); err == nil {
			s.notifier.Notify(ctx, notification.ActivityCancelled(assignee.Name, assignee.Email, string(activity.Type), activity.Date))
		}
	}
	return nil
}

// loadTarget reads an activity and checks it is inside the caller's scope.
// Another tenant's row is forbidden; for Staff a row assigned to someone
// else reads as not found.
func (s *Service) loadTarget(ctx context.Context, p access.Principal, op access.Operation, activityID id.ActivityID) (*models.Activity, error) {
	activity, err := s.store.FindByID(ctx, activityID)
	if err != nil {
		return nil, wrapActivityErr(err, "failed to load activity")
	}
	scope, err := s.gate.Scope(ctx, p, op, activity.TenantID)
	if err != nil {
		return nil, err
	}
	if !scope.Owns(activity.TenantID, activity.AssignedTo) {
		return nil, dErrors.New(dErrors.CodeNotFound, "activity not found")
	}
	return activity, nil
}

// loadClient reads a client of tenantID. Clients of other tenants read as
// not found.
func (s *Service) loadClient(ctx context.Context, tenantID id.TenantID, clientID id.ClientID) (*clientModels.Client, error) {
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
	}
	if client.TenantID != tenantID {
		return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
	}
	return client, nil
}

// lookupClient is the best-effort read used for notifications.
func (s *Service) lookupClient(ctx context.Context, clientID id.ClientID) *clientModels.Client {
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to load client for notification", "client_id", clientID.String(), "error", err)
		}
		return nil
	}
	return client
}

func (s *Service) resolveAssignee(ctx context.Context, tenantID id.TenantID, raw string) (*userModels.User, error) {
	userID, err := id.ParseUserID(raw)
	if err != nil {
		return nil, err
	}
	member, err := s.members.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errInvalidAssignee
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assignee")
	}
	if member.TenantID != tenantID || !member.Active ||
		(member.Role != access.RoleAdmin && member.Role != access.RoleStaff) {
		return nil, errInvalidAssignee
	}
	return member, nil
}

// upload stores files under the tenant's attachment folder. A failed upload
// removes the ones already stored.
func (s *Service) upload(ctx context.Context, tenantID id.TenantID, files []models.Upload) ([]models.Attachment, error) {
	folder := "org/activity_" + tenantID.String()
	out := make([]models.Attachment, 0, len(files))
	for _, f := range files {
		url, err := s.objects.Upload(ctx, objectstore.Object{
			Folder:      folder,
			Name:        f.Name,
			ContentType: f.ContentType,
			Body:        f.Body,
		})
		if err != nil {
			s.discard(ctx, urlsOf(out))
			return nil, dErrors.Wrap(err, dErrors.CodeUpstream, "failed to upload attachment")
		}
		out = append(out, models.Attachment{
			URL:         url,
			Label:       f.Name,
			ContentType: f.ContentType,
			Size:        f.Size,
			UploadedAt:  s.now(),
		})
	}
	return out, nil
}

// discard deletes objects best-effort; failures are only logged.
func (s *Service) discard(ctx context.Context, urls []string) {
	for _, url := range urls {
		if err := s.objects.Delete(ctx, url); err != nil {
			s.logger.WarnContext(ctx, "failed to delete object", "url", url, "error", err)
		}
	}
}

func uploadSize(files []models.Upload) int64 {
	var n int64
	for _, f := range files {
		n += f.Size
	}
	return n
}

func urlsOf(files []models.Attachment) []string {
	urls := make([]string, 0, len(files))
	for _, f := range files {
		urls = append(urls, f.URL)
	}
	return urls
}
