package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/sofiene-feki/skands-server/internal/catalog"
	"github.com/sofiene-feki/skands-server/internal/domain"
	"github.com/sofiene-feki/skands-server/internal/storage"

	"github.com/google/uuid"
)

const multipartMemory = 8 << 20

// form is a write body read once, whether it came as multipart, urlencoded or
// JSON. Field accessors distinguish "not sent" (nil) from "sent".
type form struct {
	values  map[string]json.RawMessage
	files   map[string][]*multipart.FileHeader
	closers []multipart.File
}

// readForm parses the request body, capped at maxBytes
func readForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (*form, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	f := &form{values: map[string]json.RawMessage{}, files: map[string][]*multipart.FileHeader{}}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, formError(err)
		}
		for key, vals := range r.MultipartForm.Value {
			if len(vals) > 0 {
				f.values[key] = quote(vals[0])
			}
		}
		f.files = r.MultipartForm.File
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, formError(err)
		}
		for key := range r.PostForm {
			f.values[key] = quote(r.PostForm.Get(key))
		}
	default:
		if err := decodeJSON(r, &f.values); err != nil {
			return nil, err
		}
		if f.values == nil {
			f.values = map[string]json.RawMessage{}
		}
	}
	return f, nil
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return badRequest("invalid form body")
}

func quote(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// close releases every upload opened through the form
func (f *form) close() {
	for _, c := range f.closers {
		c.Close()
	}
}

// raw returns the value of key with a string wrapper removed, so "[1,2]" and
// [1,2] read the same. ok is false when the key was not sent.
func (f *form) raw(key string) (json.RawMessage, bool) {
	v, ok := f.values[key]
	if !ok {
		return nil, false
	}
	v = bytes.TrimSpace(v)
	if len(v) > 0 && v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return json.RawMessage(strings.TrimSpace(s)), true
		}
	}
	return v, true
}

// text returns the string value of key, or nil when it was not sent
func (f *form) text(key string) *string {
	v, ok := f.values[key]
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return &s
	}
	if string(v) == "null" {
		return nil
	}
	s = string(bytes.TrimSpace(v))
	return &s
}

// number reads a numeric field. An empty value reads as 0.
func (f *form) number(key string) (*float64, error) {
	v, ok := f.raw(key)
	if !ok || string(v) == "null" {
		return nil, nil
	}
	if len(v) == 0 {
		zero := 0.0
		return &zero, nil
	}
	n, err := strconv.ParseFloat(string(v), 64)
	if err != nil {
		return nil, badRequest(fmt.Sprintf("%s must be a number", key))
	}
	return &n, nil
}

// integer reads a whole-number field; fractional input is truncated
func (f *form) integer(key string) (*int, error) {
	n, err := f.number(key)
	if err != nil || n == nil {
		return nil, err
	}
	i := int(*n)
	return &i, nil
}

// decode unmarshals a JSON field, sent either as JSON or as a string holding
// JSON. It reports whether the key was sent with a value.
func (f *form) decode(key string, dst interface{}) (bool, error) {
	v, ok := f.raw(key)
	if !ok || len(v) == 0 || string(v) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return false, badRequest(fmt.Sprintf("Invalid %s format", key))
	}
	return true, nil
}

// uuids decodes a list of identifiers. Entries that are not uuids are rejected.
func (f *form) uuids(key string) ([]uuid.UUID, error) {
	var raw []string
	sent, err := f.decode(key, &raw)
	if err != nil || !sent {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, badRequest(fmt.Sprintf("Invalid %s format", key))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// uploads opens every file sent under key
func (f *form) uploads(key string) ([]storage.Upload, error) {
	headers := f.files[key]
	out := make([]storage.Upload, 0, len(headers))
	for _, h := range headers {
		file, err := h.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open upload: %w", err)
		}
		f.closers = append(f.closers, file)
		out = append(out, storage.Upload{
			Filename:    h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Size:        h.Size,
			Body:        file,
		})
	}
	return out, nil
}

// upload opens the first file sent under key, or returns nil
func (f *form) upload(key string) (*storage.Upload, error) {
	all, err := f.uploads(key)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return &all[0], nil
}

// sizeInput accepts prices sent as numbers or numeric strings
type sizeInput struct {
	Size  string             `json:"size"`
	Price catalog.LooseFloat `json:"price"`
}

// colorInput carries the identifier of an existing colour as a string; a
// missing or foreign identifier makes the colour new.
type colorInput struct {
	ID    string `json:"_id"`
	Value string `json:"value"`
}

func (f *form) sizes(key string) ([]domain.SizeVariant, error) {
	var in []sizeInput
	sent, err := f.decode(key, &in)
	if err != nil || !sent {
		return nil, err
	}
	out := make([]domain.SizeVariant, 0, len(in))
	for _, s := range in {
		out = append(out, domain.SizeVariant{Size: strings.TrimSpace(s.Size), Price: s.Price.Value})
	}
	return out, nil
}

func (f *form) colors(key string) ([]domain.ColorVariant, error) {
	var in []colorInput
	sent, err := f.decode(key, &in)
	if err != nil || !sent {
		return nil, err
	}
	out := make([]domain.ColorVariant, 0, len(in))
	for _, c := range in {
		id, err := uuid.Parse(strings.TrimSpace(c.ID))
		if err != nil {
			id = uuid.Nil
		}
		out = append(out, domain.ColorVariant{ID: id, Value: c.Value})
	}
	return out, nil
}
