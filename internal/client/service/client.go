package service

import (
	"context"
	"errors"

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

var errInvalidAssignee = dErrors.New(dErrors.CodeValidation, "assignedTo must be an active admin or staff member of the organization")

// Create adds a client to the caller's tenant. On the Free plan a client
// without an explicit assignee goes to the tenant's first active Admin.
func (s *Service) Create(ctx context.Context, req *models.CreateClientRequest) (*models.Client, error) {
	requested, err := parseOptionalTenant(req.TenantID)
	if err != nil {
		return nil, err
	}
	p, scope, err := s.gate.Resolve(ctx, access.OpClientCreate, requested)
	if err != nil {
		return nil, err
	}
	tenant, err := s.tenants.FindByID(ctx, scope.TenantID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization")
	}

	var assignee *userModels.User
	if req.AssignedTo != "" {
		assignee, err = s.resolveAssignee(ctx, scope.TenantID, req.AssignedTo)
		if err != nil {
			return nil, err
		}
	} else if tenant.Plan == plan.Free {
		assignee, err = s.members.FirstActive(ctx, scope.TenantID, access.RoleAdmin)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve default assignee")
		}
	}
	var assigneeID id.UserID
	if assignee != nil {
		assigneeID = assignee.ID
	}

	client, err := models.NewClient(id.NewClientID(), scope.TenantID, req.Name, req.Email, req.Phone, req.Company,
		req.Tags, assigneeID, p.ID, s.now())
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.quota.Admit(ctx, scope.TenantID, quota.KindClients, 1); err != nil {
			return err
		}
		if err := s.store.Create(ctx, client); err != nil {
			return wrapClientErr(err, "failed to create client")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.emit(ctx, "client_created",
		"client_id", client.ID.String(),
		"tenant_id", client.TenantID.String(),
		"assigned_to", client.AssignedTo.String(),
		"actor_id", p.ID.String(),
	)
	s.notifier.Notify(ctx, notification.ClientWelcome(client.Name, client.Email, tenant.Name))
	if assignee != nil && assignee.ID != p.ID {
		s.notifier.Notify(ctx, notification.ClientAssigned(assignee.Name, assignee.Email, client.Name, client.Email))
	}
	return client, nil
}

// List returns a page of the caller's clients. Staff only see clients
// assigned to them whatever assignee filter they ask for.
func (s *Service) List(ctx context.Context, q models.ListClientsQuery) ([]*models.Client, int, error) {
	requested, err := parseOptionalTenant(q.TenantID)
	if err != nil {
		return nil, 0, err
	}
	_, scope, err := s.gate.Resolve(ctx, access.OpClientList, requested)
	if err != nil {
		return nil, 0, err
	}
	filter := models.ListFilter{
		TenantID: scope.TenantID,
		Search:   q.Search,
		Tags:     q.Tags,
		Offset:   q.Offset,
		Limit:    q.Limit,
	}
	switch {
	case scope.SelfFiltered():
		filter.AssignedTo = scope.AssignedTo
	case q.AssignedTo != "":
		assignee, err := id.ParseUserID(q.AssignedTo)
		if err != nil {
			return nil, 0, err
		}
		filter.AssignedTo = assignee
	}
	clients, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list clients")
	}
	return clients, total, nil
}

func (s *Service) Get(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	p, err := s.gate.Check(ctx, access.OpClientGet)
	if err != nil {
		return nil, err
	}
	return s.loadTarget(ctx, p, access.OpClientGet, clientID)
}

// Update applies a partial change. An empty assignedTo clears the
// assignment; a new assignee is notified after the write.
func (s *Service) Update(ctx context.Context, clientID id.ClientID, req *models.UpdateClientRequest) (*models.Client, error) {
	p, err := s.gate.Check(ctx, access.OpClientUpdate)
	if err != nil {
		return nil, err
	}
	client, err := s.loadTarget(ctx, p, access.OpClientUpdate, clientID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.Email != nil {
		client.SetEmail(*req.Email)
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.Company != nil {
		client.Company = *req.Company
	}
	if req.Tags != nil {
		client.Tags = append([]string{}, (*req.Tags)...)
	}
	var newAssignee *userModels.User
	if req.AssignedTo != nil {
		if *req.AssignedTo == "" {
			client.AssignedTo = id.UserID{}
		} else {
			assignee, err := s.resolveAssignee(ctx, client.TenantID, *req.AssignedTo)
			if err != nil {
				return nil, err
			}
			if assignee.ID != client.AssignedTo {
				newAssignee = assignee
			}
			client.AssignedTo = assignee.ID
		}
	}
	client.UpdatedAt = s.now()

	if err := s.store.Update(ctx, client); err != nil {
		return nil, wrapClientErr(err, "failed to update client")
	}
	s.auditor.emit(ctx, "client_updated",
		"client_id", client.ID.String(),
		"tenant_id", client.TenantID.String(),
		"actor_id", p.ID.String(),
	)
	if newAssignee != nil && newAssignee.ID != p.ID {
		s.notifier.Notify(ctx, notification.ClientAssigned(newAssignee.Name, newAssignee.Email, client.Name, client.Email))
	}
	return client, nil
}

// Delete removes a client. Its activities are kept and still reference it.
func (s *Service) Delete(ctx context.Context, clientID id.ClientID) error {
	p, err := s.gate.Check(ctx, access.OpClientDelete)
	if err != nil {
		return err
	}
	client, err := s.loadTarget(ctx, p, access.OpClientDelete, clientID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, client.ID); err != nil {
		return wrapClientErr(err, "failed to delete client")
	}
	s.auditor.emit(ctx, "client_deleted",
		"client_id", client.ID.String(),
		"tenant_id", client.TenantID.String(),
		"actor_id", p.ID.String(),
	)
	return nil
}

// loadTarget reads a client and checks it is inside the caller's scope.
// Another tenant's row is forbidden; for Staff a row assigned to someone
// else reads as not found.
func (s *Service) loadTarget(ctx context.Context, p access.Principal, op access.Operation, clientID id.ClientID) (*models.Client, error) {
	client, err := s.store.FindByID(ctx, clientID)
	if err != nil {
		return nil, wrapClientErr(err, "failed to load client")
	}
	scope, err := s.gate.Scope(ctx, p, op, client.TenantID)
	if err != nil {
		return nil, err
	}
	if !scope.Owns(client.TenantID, client.AssignedTo) {
		return nil, dErrors.New(dErrors.CodeNotFound, "client not found")
	}
	return client, nil
}

// resolveAssignee checks raw names an active Admin or Staff of the tenant.
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

func parseOptionalTenant(raw string) (id.TenantID, error) {
	if raw == "" {
		return id.TenantID{}, nil
	}
	return id.ParseTenantID(raw)
}
