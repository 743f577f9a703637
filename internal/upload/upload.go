// Package upload validates client files before anything is written to
// object storage.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"govbid/internal/errors"
)

const MaxSize = 20 * 1024 * 1024

var AllowedTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"text/plain",
}

var extPattern = regexp.MustCompile(`\.([^./]+)$`)

// File is an uploaded file as declared by the client.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

func FromMultipart(fh *multipart.FileHeader) *File {
	return &File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// Validate checks the declared media type and size.
func (f *File) Validate() error {
	if !slices.Contains(AllowedTypes, baseType(f.ContentType)) {
		return errors.BadRequest("Unsupported file type. Upload a PDF, Word document, or plain text file.", nil)
	}
	if f.Size > MaxSize {
		return errors.BadRequest("File exceeds the 20 MB size limit.", nil)
	}
	return nil
}

// Ext is the lower-cased extension of the file name, "bin" when there is none.
func (f *File) Ext() string {
	m := extPattern.FindStringSubmatch(path.Base(f.Name))
	if m == nil {
		return "bin"
	}
	return strings.ToLower(m[1])
}

// Read loads the content, enforcing MaxSize on the actual bytes as well.
func (f *File) Read() ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxSize {
		return nil, errors.BadRequest("File exceeds the 20 MB size limit.", nil)
	}
	return data, nil
}

// StoredContentType prefers the sniffed type when it is one of the allowed
// types, falling back to what the client declared.
func (f *File) StoredContentType(data []byte) string {
	detected := mimetype.Detect(data)
	for _, allowed := range AllowedTypes {
		if detected.Is(allowed) {
			return allowed
		}
	}
	return baseType(f.ContentType)
}

func baseType(contentType string) string {
	t, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(t))
}
