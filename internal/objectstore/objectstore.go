// Package objectstore uploads and deletes binary objects such as logos and
// activity attachments. Objects are addressed by the public URL returned from
// Upload.
package objectstore

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Object is a single upload.
type Object struct {
	Folder      string
	Name        string
	ContentType string
	Body        io.Reader
}

// Store is the object storage collaborator.
type Store interface {
	Upload(ctx context.Context, obj Object) (string, error)
	Delete(ctx context.Context, url string) error
}

// objectKey places obj under its folder with a random name, keeping the
// original extension.
func objectKey(obj Object) string {
	ext := strings.ToLower(path.Ext(obj.Name))
	folder := strings.Trim(obj.Folder, "/")
	name := uuid.NewString() + ext
	if folder == "" {
		return name
	}
	return folder + "/" + name
}
