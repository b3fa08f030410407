// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "orbit/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing UserID where TenantID is expected.
type (
	TenantID   uuid.UUID
	UserID     uuid.UUID
	ClientID   uuid.UUID
	ActivityID uuid.UUID
	DraftID    uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseTenantID(s string) (TenantID, error) {
	id, err := parseUUID(s, "tenant ID")
	return TenantID(id), err
}

func ParseUserID(s string) (UserID, error) {
	id, err := parseUUID(s, "user ID")
	return UserID(id), err
}

func ParseClientID(s string) (ClientID, error) {
	id, err := parseUUID(s, "client ID")
	return ClientID(id), err
}

func ParseActivityID(s string) (ActivityID, error) {
	id, err := parseUUID(s, "activity ID")
	return ActivityID(id), err
}

func ParseDraftID(s string) (DraftID, error) {
	id, err := parseUUID(s, "draft ID")
	return DraftID(id), err
}

// String methods - for logging and debugging.

func (id TenantID) String() string   { return uuid.UUID(id).String() }
func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id ClientID) String() string   { return uuid.UUID(id).String() }
func (id ActivityID) String() string { return uuid.UUID(id).String() }
func (id DraftID) String() string    { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id TenantID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ClientID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ActivityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DraftID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Constructors for fresh identifiers.

func NewTenantID() TenantID     { return TenantID(uuid.New()) }
func NewUserID() UserID         { return UserID(uuid.New()) }
func NewClientID() ClientID     { return ClientID(uuid.New()) }
func NewActivityID() ActivityID { return ActivityID(uuid.New()) }
func NewDraftID() DraftID       { return DraftID(uuid.New()) }

// parseUUID is the shared validation logic. The nil UUID is rejected so that
// an all-zero path parameter never reaches a store lookup.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
