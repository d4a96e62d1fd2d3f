// Package multipart reads multipart/form-data requests into closed command
// inputs: text fields plus the file parts a handler declares interest in.
// Every part of the body is consumed even when it is not wanted, otherwise
// the connection stalls behind the unread remainder.
package multipart

import (
	"io"
	"mime"
	"net/http"

	"github.com/trackhouse/service/internal/apperr"
)

// File is one uploaded file part, fully buffered.
type File struct {
	Fieldname   string
	Filename    string
	ContentType string
	Data        []byte
}

// Form holds the parsed text fields and the declared file parts of a request.
type Form struct {
	values map[string]string
	files  map[string][]*File
}

// Parse streams the request body, buffering file parts for the declared
// fieldnames and draining everything else. It fails with a validation error
// when the request is not multipart.
func Parse(r *http.Request, fileFields ...string) (*Form, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return nil, apperr.Validationf("request must be multipart/form-data")
	}

	reader, err := r.MultipartReader()
	if err != nil {
		return nil, apperr.Validationf("malformed multipart body").WithCause(err)
	}

	wanted := map[string]bool{}
	for _, name := range fileFields {
		wanted[name] = true
	}

	form := &Form{
		values: map[string]string{},
		files:  map[string][]*File{},
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.Validationf("malformed multipart body").WithCause(err)
		}

		if part.FileName() == "" {
			value, err := io.ReadAll(part)
			if err != nil {
				return nil, apperr.Validationf("malformed multipart body").WithCause(err)
			}
			form.values[part.FormName()] = string(value)
			continue
		}

		if !wanted[part.FormName()] {
			// must drain undeclared file parts too
			if _, err := io.Copy(io.Discard, part); err != nil {
				return nil, apperr.Validationf("malformed multipart body").WithCause(err)
			}
			continue
		}

		data, err := io.ReadAll(part)
		if err != nil {
			return nil, apperr.Validationf("malformed multipart body").WithCause(err)
		}
		form.files[part.FormName()] = append(form.files[part.FormName()], &File{
			Fieldname:   part.FormName(),
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	return form, nil
}

// Value returns the text field value for name, or "".
func (f *Form) Value(name string) string {
	return f.values[name]
}

// HasValue reports whether a text field named name was supplied.
func (f *Form) HasValue(name string) bool {
	_, ok := f.values[name]
	return ok
}

// File returns the single file supplied for name, nil when absent, and a
// validation error when more than one part used the fieldname.
func (f *Form) File(name string) (*File, error) {
	files := f.files[name]
	switch len(files) {
	case 0:
		return nil, nil
	case 1:
		return files[0], nil
	default:
		return nil, apperr.Validationf("%d files provided for field %q, expected at most 1", len(files), name)
	}
}

// RequireFile returns the single file supplied for name, failing with a
// validation error on zero or more than one matching part.
func (f *Form) RequireFile(name string) (*File, error) {
	files := f.files[name]
	if len(files) != 1 {
		return nil, apperr.Validationf("%d/1 files provided for field %q", len(files), name)
	}
	return files[0], nil
}
