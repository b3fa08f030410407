package service

import (
	"context"
	"errors"

	"orbit/internal/access"
	"orbit/internal/auth/models"
	"orbit/internal/quota"
	userModels "orbit/internal/user/models"
	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
)

// RegisterSuperAdmin creates the platform operator. Only one may ever exist.
func (s *Service) RegisterSuperAdmin(ctx context.Context, req *models.RegisterSuperAdminRequest) (*userModels.User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	user, err := userModels.NewUser(id.NewUserID(), id.TenantID{}, req.Name, req.Email, hash, access.RoleSuperAdmin, s.now())
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		count, err := s.users.CountByRole(ctx, access.RoleSuperAdmin)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count super admins")
		}
		if count > 0 {
			return dErrors.New(dErrors.CodeConflict, "a super admin already exists")
		}
		if err := s.users.Create(ctx, user); err != nil {
			return wrapUserErr(err, "failed to create super admin")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.registered(ctx, user)
	return user, nil
}

// RegisterOwner creates the Owner of an existing organization. The users
// quota is admitted in the same unit of work as the insert.
func (s *Service) RegisterOwner(ctx context.Context, req *models.RegisterOwnerRequest) (*userModels.User, error) {
	if _, err := s.gate.Check(ctx, access.OpRegisterOwner); err != nil {
		return nil, err
	}
	tenantID, err := id.ParseTenantID(req.TenantID)
	if err != nil {
		return nil, err
	}
	if _, err := s.tenants.FindByID(ctx, tenantID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	user, err := userModels.NewUser(id.NewUserID(), tenantID, req.Name, req.Email, hash, access.RoleOwner, s.now())
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.quota.Admit(ctx, tenantID, quota.KindUsers, 1); err != nil {
			return err
		}
		if err := s.users.Create(ctx, user); err != nil {
			return wrapUserErr(err, "failed to create owner")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.registered(ctx, user)
	return user, nil
}

func (s *Service) registered(ctx context.Context, user *userModels.User) {
	if s.metrics != nil {
		s.metrics.IncrementRegistrations(string(user.Role))
	}
	s.auditor.emit(ctx, "user_registered",
		"user_id", user.ID.String(),
		"tenant_id", user.TenantID.String(),
		"role", string(user.Role),
	)
}
