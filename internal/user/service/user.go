package service

import (
	"context"

	"orbit/internal/access"
	"orbit/internal/quota"
	"orbit/internal/user/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
)

// Create adds an Admin or Staff member to the caller's tenant. SuperAdmin
// callers name the tenant. The users quota is admitted in the same unit of
// work as the insert.
func (s *Service) Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	requested, err := parseOptionalTenant(req.TenantID)
	if err != nil {
		return nil, err
	}
	_, scope, err := s.gate.Resolve(ctx, access.OpUserCreate, requested)
	if err != nil {
		return nil, err
	}
	role := access.Role(req.Role)
	if !models.AssignableRole(role) {
		return nil, dErrors.New(dErrors.CodeForbidden, "owner and super admin accounts are created through registration")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	user, err := models.NewUser(id.NewUserID(), scope.TenantID, req.Name, req.Email, hash, role, s.now())
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.quota.Admit(ctx, scope.TenantID, quota.KindUsers, 1); err != nil {
			return err
		}
		if err := s.store.Create(ctx, user); err != nil {
			return wrapUserErr(err, "failed to create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.emit(ctx, "user_created",
		"user_id", user.ID.String(),
		"tenant_id", user.TenantID.String(),
		"role", string(user.Role),
	)
	return user, nil
}

// List returns a page of the caller's tenant members.
func (s *Service) List(ctx context.Context, q models.ListUsersQuery) ([]*models.User, int, error) {
	_, scope, err := s.gate.Resolve(ctx, access.OpUserList, id.TenantID{})
	if err != nil {
		return nil, 0, err
	}
	filter := models.ListFilter{TenantID: scope.TenantID, Search: q.Search, Offset: q.Offset, Limit: q.Limit}
	if q.Role != "" {
		role, err := access.ParseRole(q.Role)
		if err != nil {
			return nil, 0, err
		}
		filter.Role = role
	}
	users, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, total, nil
}

func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.User, error) {
	p, err := s.gate.Check(ctx, access.OpUserGet)
	if err != nil {
		return nil, err
	}
	return s.loadTarget(ctx, p, access.OpUserGet, userID)
}

// Update applies a partial change. Roles can never be raised to Owner or
// SuperAdmin here, and an Owner can only be modified by the SuperAdmin.
func (s *Service) Update(ctx context.Context, userID id.UserID, req *models.UpdateUserRequest) (*models.User, error) {
	p, err := s.gate.Check(ctx, access.OpUserUpdate)
	if err != nil {
		return nil, err
	}
	user, err := s.loadTarget(ctx, p, access.OpUserUpdate, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == access.RoleOwner && p.Role != access.RoleSuperAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the super admin can modify an owner")
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.SetEmail(*req.Email)
	}
	if req.Role != nil && access.Role(*req.Role) != user.Role {
		role, err := access.ParseRole(*req.Role)
		if err != nil {
			return nil, err
		}
		if !models.AssignableRole(role) || user.Role == access.RoleSuperAdmin {
			return nil, dErrors.New(dErrors.CodeForbidden, "cannot assign the owner or super admin role")
		}
		user.Role = role
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if req.Active != nil {
		if !*req.Active && user.ID == p.ID {
			return nil, dErrors.New(dErrors.CodeValidation, "you cannot deactivate your own account")
		}
		user.Active = *req.Active
	}
	user.UpdatedAt = s.now()

	if err := s.store.Update(ctx, user); err != nil {
		return nil, wrapUserErr(err, "failed to update user")
	}
	s.auditor.emit(ctx, "user_updated",
		"user_id", user.ID.String(),
		"tenant_id", user.TenantID.String(),
		"actor_id", p.ID.String(),
	)
	return user, nil
}

// Delete removes a member. Activities and clients keep their weak reference
// to the removed user. An Owner can only be removed by the SuperAdmin or by
// themselves.
func (s *Service) Delete(ctx context.Context, userID id.UserID) error {
	p, err := s.gate.Check(ctx, access.OpUserDelete)
	if err != nil {
		return err
	}
	user, err := s.loadTarget(ctx, p, access.OpUserDelete, userID)
	if err != nil {
		return err
	}
	// Only Owners reach this point, so an Owner account can only go by its own hand.
	if user.Role == access.RoleOwner && p.ID != user.ID {
		return dErrors.New(dErrors.CodeForbidden, "an owner can only be deleted by itself")
	}
	if err := s.store.Delete(ctx, user.ID); err != nil {
		return wrapUserErr(err, "failed to delete user")
	}
	s.auditor.emit(ctx, "user_deleted",
		"user_id", user.ID.String(),
		"tenant_id", user.TenantID.String(),
		"actor_id", p.ID.String(),
	)
	return nil
}

// loadTarget reads a user and checks it is inside the caller's scope. The
// SuperAdmin account is only visible to itself.
func (s *Service) loadTarget(ctx context.Context, p access.Principal, op access.Operation, userID id.UserID) (*models.User, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, wrapUserErr(err, "failed to load user")
	}
	if user.Role == access.RoleSuperAdmin {
		if p.ID != user.ID {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return user, nil
	}
	if _, err := s.gate.Scope(ctx, p, op, user.TenantID); err != nil {
		return nil, err
	}
	return user, nil
}

func parseOptionalTenant(raw string) (id.TenantID, error) {
	if raw == "" {
		return id.TenantID{}, nil
	}
	return id.ParseTenantID(raw)
}
