package httputil

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	dErrors "orbit/pkg/domain-errors"
)

// FormFile is an opened file part of a multipart request.
type FormFile struct {
	Name        string
	ContentType string
	Size        int64
	File        multipart.File
}

// ParseMultipart reads a multipart body of at most maxBytes, buffering up
// to maxMemory in memory and the rest in temporary files.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes, maxMemory int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dErrors.New(dErrors.CodeValidation, "request body too large")
		}
		return dErrors.New(dErrors.CodeBadRequest, "invalid multipart form")
	}
	return nil
}

// FormValue returns the trimmed value of a multipart field, or nil when the
// field was not sent.
func FormValue(r *http.Request, field string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[field]
	if !ok || len(values) == 0 {
		return nil
	}
	v := strings.TrimSpace(values[0])
	return &v
}

// OpenFiles opens every file sent under field. The caller closes them with
// CloseFiles.
func OpenFiles(r *http.Request, field string) ([]FormFile, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	files := make([]FormFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			CloseFiles(files)
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read uploaded file")
		}
		files = append(files, FormFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			File:        f,
		})
	}
	return files, nil
}

func CloseFiles(files []FormFile) {
	for _, f := range files {
		_ = f.File.Close()
	}
}
