package models

import (
	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/sentinel"
)

// ConflictFromDuplicate names the colliding field of a store uniqueness
// violation. It returns nil for any other error.
func ConflictFromDuplicate(err error) error {
	field, ok := sentinel.DuplicateField(err)
	if !ok {
		return nil
	}
	if field == "email" {
		return dErrors.New(dErrors.CodeConflict, "a client with this email already exists")
	}
	return dErrors.New(dErrors.CodeConflict, field+" already in use")
}
