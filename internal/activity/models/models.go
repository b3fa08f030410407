package models

import (
	"strings"
	"time"

	id "orbit/pkg/domain"
	dErrors "orbit/pkg/domain-errors"
)

// Type is the kind of interaction logged.
type Type string

const (
	TypeMeeting Type = "Meeting"
	TypeCall    Type = "Call"
	TypeEmail   Type = "Email"
	TypeNote    Type = "Note"
)

// ParseType accepts any casing. An empty value defaults to Meeting.
func ParseType(raw string) (Type, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TypeMeeting, nil
	}
	for _, t := range []Type{TypeMeeting, TypeCall, TypeEmail, TypeNote} {
		if strings.EqualFold(raw, string(t)) {
			return t, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "type must be one of Meeting, Call, Email, Note")
}

// Attachment is an uploaded file. Size is charged to the tenant's storage.
type Attachment struct {
	URL         string    `json:"url"`
	Label       string    `json:"label"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Activity is a logged interaction with exactly one client. ClientID,
// AssignedTo and CreatedBy are weak references.
type Activity struct {
	ID           id.ActivityID
	TenantID     id.TenantID
	ClientID     id.ClientID
	AssignedTo   id.UserID
	CreatedBy    id.UserID
	Type         Type
	Description  string
	Date         time.Time
	Attachments  []Attachment
	StorageBytes int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewActivity(activityID id.ActivityID, tenantID id.TenantID, clientID id.ClientID, t Type, description string, date time.Time, assignedTo, createdBy id.UserID, now time.Time) (*Activity, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization is required")
	}
	if clientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client is required")
	}
	if date.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "date is required")
	}
	return &Activity{
		ID:          activityID,
		TenantID:    tenantID,
		ClientID:    clientID,
		AssignedTo:  assignedTo,
		CreatedBy:   createdBy,
		Type:        t,
		Description: strings.TrimSpace(description),
		Date:        date,
		Attachments: []Attachment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetAttachments replaces the files and recomputes the charged bytes.
func (a *Activity) SetAttachments(files []Attachment) {
	a.Attachments = append([]Attachment{}, files...)
	a.StorageBytes = TotalSize(files)
}

// URLs lists the object URLs of the attachments.
func (a *Activity) URLs() []string {
	urls := make([]string, 0, len(a.Attachments))
	for _, f := range a.Attachments {
		urls = append(urls, f.URL)
	}
	return urls
}

func TotalSize(files []Attachment) int64 {
	var n int64
	for _, f := range files {
		n += f.Size
	}
	return n
}

// ListFilter selects a page of a tenant's activities. Zero values do not filter.
type ListFilter struct {
	TenantID   id.TenantID
	ClientID   id.ClientID
	Type       Type
	AssignedTo id.UserID
	Search     string
	Offset     int
	Limit      int
}

// AssigneeCount is the number of activities assigned to one user.
type AssigneeCount struct {
	UserID id.UserID
	Count  int
}
