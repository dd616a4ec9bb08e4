package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"myfeedsave/media"
	"myfeedsave/models"
	"myfeedsave/services"
)

// maxJSONBody bounds non-multipart request bodies
const maxJSONBody = 1 << 20

// form is a request body flattened to string fields, whatever encoding
// the client used
type form struct {
	values map[string]string
	files  map[string][]*multipart.FileHeader
}

func (f *form) get(key string) string {
	return f.values[key]
}

func (f *form) has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// flag reads a boolean field. Only "true" counts as true.
func (f *form) flag(key string) *bool {
	if !f.has(key) {
		return nil
	}
	b := f.values[key] == "true"
	return &b
}

func (f *form) file(key string) *multipart.FileHeader {
	if fhs := f.files[key]; len(fhs) > 0 {
		return fhs[0]
	}
	return nil
}

// cleanup removes the temporary files of a multipart body
func (f *form) cleanup(r *http.Request) {
	if r.MultipartForm != nil {
		r.MultipartForm.RemoveAll()
	}
}

// parseForm accepts JSON, urlencoded and multipart bodies. maxUpload
// bounds multipart bodies; zero means uploads are not expected.
func parseForm(w http.ResponseWriter, r *http.Request, maxUpload int64) (*form, error) {
	f := &form{values: map[string]string{}, files: map[string][]*multipart.FileHeader{}}
	if r.Body == nil || r.ContentLength == 0 && r.Header.Get("Content-Type") == "" {
		return f, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		limit := maxUpload
		if limit == 0 {
			limit = maxJSONBody
		}
		// Room for the other fields on top of the file
		r.Body = http.MaxBytesReader(w, r.Body, limit+maxJSONBody)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, formError(err)
		}
		for k, vs := range r.MultipartForm.Value {
			if len(vs) > 0 {
				f.values[k] = vs[0]
			}
		}
		f.files = r.MultipartForm.File

	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := r.ParseForm(); err != nil {
			return nil, formError(err)
		}
		for k, vs := range r.PostForm {
			if len(vs) > 0 {
				f.values[k] = vs[0]
			}
		}

	default:
		var body map[string]any
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return nil, formError(err)
		}
		for k, v := range body {
			switch v := v.(type) {
			case nil:
			case string:
				f.values[k] = v
			case bool:
				f.values[k] = strconv.FormatBool(v)
			case float64:
				f.values[k] = strconv.FormatFloat(v, 'f', -1, 64)
			default:
				f.values[k] = fmt.Sprint(v)
			}
		}
	}
	return f, nil
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &services.Error{Kind: services.ValidationError, Message: "Request body too large", Err: err}
	}
	return &services.Error{Kind: services.ValidationError, Message: "Invalid request body", Err: err}
}

// upload is a file saved for the duration of a request. discard removes it
// again when the request did not end up referencing it.
type upload struct {
	store *media.Store
	name  string
	kind  models.MediaKind
}

// saveUpload stores the file in field, if any
func saveUpload(store *media.Store, f *form, field string) (*upload, error) {
	fh := f.file(field)
	if fh == nil {
		return nil, nil
	}
	name, kind, err := store.Save(fh)
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return nil, &services.Error{Kind: services.ValidationError, Message: fmt.Sprintf("File too large (max %dMB)", store.MaxSize()>>20), Err: err}
	case errors.Is(err, media.ErrUnsupportedType):
		return nil, &services.Error{Kind: services.ValidationError, Message: "Unsupported file type", Err: err}
	case err != nil:
		return nil, &services.Error{Kind: services.ServerError, Message: "Failed to store upload", Err: err}
	}
	return &upload{store: store, name: name, kind: kind}, nil
}

func (u *upload) fileName() string {
	if u == nil {
		return ""
	}
	return u.name
}

func (u *upload) mediaKind() models.MediaKind {
	if u == nil {
		return ""
	}
	return u.kind
}

func (u *upload) discard(log logrus.FieldLogger) {
	if u == nil {
		return
	}
	if err := u.store.Remove(u.name); err != nil {
		log.WithError(err).WithField("file", u.name).Warn("Failed to remove unused upload")
	}
}
