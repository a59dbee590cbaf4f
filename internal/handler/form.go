package handler

import (
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/forgo/fete/api/internal/service"
)

const (
	// maxMultipartMemory is held in memory before parts spill to temp files
	maxMultipartMemory = 8 << 20
	// maxUploadBody caps multipart bodies: five images at the largest class limit plus fields
	maxUploadBody = 30 << 20
)

// isMultipart reports whether the request carries multipart/form-data
func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// uploadForm is a parsed multipart body. Files opened through it stay open
// until Close.
type uploadForm struct {
	form   *multipart.Form
	opened []multipart.File
}

func parseUploadForm(w http.ResponseWriter, r *http.Request) (*uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, err
	}
	return &uploadForm{form: r.MultipartForm}, nil
}

// Value returns the first value of a text field, or nil when absent
func (f *uploadForm) Value(name string) *string {
	values := f.form.Value[name]
	if len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

// Files opens every file sent under name
func (f *uploadForm) Files(name string) ([]*service.Upload, error) {
	headers := f.form.File[name]
	uploads := make([]*service.Upload, 0, len(headers))
	for _, fh := range headers {
		file, err := fh.Open()
		if err != nil {
			return nil, err
		}
		f.opened = append(f.opened, file)
		uploads = append(uploads, &service.Upload{Filename: fh.Filename, Content: file})
	}
	return uploads, nil
}

// File opens the first file sent under name, or returns nil when absent
func (f *uploadForm) File(name string) (*service.Upload, error) {
	if len(f.form.File[name]) == 0 {
		return nil, nil
	}
	uploads, err := f.Files(name)
	if err != nil {
		return nil, err
	}
	return uploads[0], nil
}

// Close releases opened files and any temp files of the form
func (f *uploadForm) Close() {
	for _, file := range f.opened {
		_ = file.Close()
	}
	_ = f.form.RemoveAll()
}

// optionalValue turns an optional text field into an untyped value, keeping
// absence as a nil interface
func optionalValue(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
