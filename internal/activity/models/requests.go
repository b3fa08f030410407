package models

import (
	"io"
	"path"
	"strings"
	"time"

	dErrors "orbit/pkg/domain-errors"
	"orbit/pkg/platform/validation"
	pkgstrings "orbit/pkg/platform/strings"
	pkgvalidation "orbit/pkg/validation"
)

// Upload is one file of a multipart request.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CreateActivityRequest is read from a multipart form.
type CreateActivityRequest struct {
	ClientID    string   `validate:"required,uuid"`
	Type        string   `validate:"omitempty,max=20"`
	Description string   `validate:"max=5000"`
	Date        string   `validate:"required"`
	AssignedTo  string   `validate:"omitempty,uuid"`
	Files       []Upload `validate:"-"`
}

func (r *CreateActivityRequest) Normalize() {
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.Type = strings.TrimSpace(r.Type)
	r.Description = strings.TrimSpace(r.Description)
	r.Date = strings.TrimSpace(r.Date)
	r.AssignedTo = strings.TrimSpace(r.AssignedTo)
}

func (r *CreateActivityRequest) Validate() error {
	if err := pkgvalidation.Validate(r); err != nil {
		return err
	}
	return ValidateUploads(r.Files)
}

// UpdateActivityRequest changes any subset of an activity. Non-empty Files
// replace every existing attachment.
type UpdateActivityRequest struct {
	ClientID    *string
	Type        *string
	Description *string
	Date        *string
	AssignedTo  *string
	Files       []Upload
}

func (r *UpdateActivityRequest) Normalize() {
	r.ClientID = pkgstrings.TrimSpacePtr(r.ClientID)
	r.Type = pkgstrings.TrimSpacePtr(r.Type)
	r.Description = pkgstrings.TrimSpacePtr(r.Description)
	r.Date = pkgstrings.TrimSpacePtr(r.Date)
	r.AssignedTo = pkgstrings.TrimSpacePtr(r.AssignedTo)
}

func (r *UpdateActivityRequest) Validate() error {
	if r.Description != nil {
		if err := validation.CheckStringLength("description", *r.Description, validation.MaxDescriptionLength); err != nil {
			return err
		}
	}
	return ValidateUploads(r.Files)
}

var allowedImageExt = map[string]struct{}{".jpeg": {}, ".jpg": {}, ".png": {}, ".gif": {}}

// ValidateUploads enforces the file count, per-file size and image type rules.
func ValidateUploads(files []Upload) error {
	if err := validation.CheckSliceCount("files", len(files), validation.MaxFiles); err != nil {
		return err
	}
	for _, f := range files {
		if f.Size > validation.MaxFileSize {
			return dErrors.New(dErrors.CodeValidation, "file "+f.Name+" exceeds the 10 MB limit")
		}
		if _, ok := allowedImageExt[strings.ToLower(path.Ext(f.Name))]; !ok || !isImageType(f.ContentType) {
			return dErrors.New(dErrors.CodeValidation, "only image files are allowed (jpeg, jpg, png, gif)")
		}
	}
	return nil
}

func isImageType(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif":
		return true
	}
	return false
}

var dateLayouts = []string{"02-01-06", "2006-01-02", time.RFC3339}

// ParseDate accepts DD-MM-YY, YYYY-MM-DD or RFC 3339. Dates without a time
// are midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, dErrors.New(dErrors.CodeValidation, "invalid date format, use DD-MM-YY or YYYY-MM-DD")
}

// ListActivitiesQuery is parsed from the query string.
type ListActivitiesQuery struct {
	ClientID   string
	Type       string
	AssignedTo string
	Search     string
	Offset     int
	Limit      int
}
