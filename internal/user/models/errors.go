package models

import (
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
)

// ConflictFromDuplicate turns a store uniqueness violation into a conflict
// naming what collided. It returns nil for any other error.
func ConflictFromDuplicate(err error) error {
	field, ok := sentinel.DuplicateField(err)
	if !ok {
		return nil
	}
	switch field {
	case "owner":
		return dErrors.New(dErrors.CodeConflict, "an owner already exists for this organization")
	case "superadmin":
		return dErrors.New(dErrors.CodeConflict, "a super admin already exists")
	case "email":
		return dErrors.New(dErrors.CodeConflict, "email already in use in this organization")
	default:
		return dErrors.New(dErrors.CodeConflict, field+" already in use")
	}
}
