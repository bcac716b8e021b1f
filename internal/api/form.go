package api

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"sort"
)

// Form is a multipart/form-data request body, used for profile images
type Form struct {
	Fields map[string]string
	Files  []FormFile
}

// FormFile is a single file part
type FormFile struct {
	Field    string
	Filename string
	Content  []byte
}

// NewForm creates a Form with the given fields
func NewForm(fields map[string]string) *Form {
	f := &Form{Fields: make(map[string]string, len(fields))}
	for k, v := range fields {
		f.Fields[k] = v
	}
	return f
}

// AddFile attaches a file part under field
func (f *Form) AddFile(field, filename string, content []byte) {
	f.Files = append(f.Files, FormFile{Field: field, Filename: filename, Content: content})
}

// Encode renders the form and returns the body with its Content-Type, boundary included.
// Fields are written in key order.
func (f *Form) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(f.Fields))
	for k := range f.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := w.WriteField(k, f.Fields[k]); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}

	for _, file := range f.Files {
		part, err := w.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file part %s: %w", file.Field, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, "", fmt.Errorf("failed to write file part %s: %w", file.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
