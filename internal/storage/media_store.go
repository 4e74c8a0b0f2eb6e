package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/sofiene-feki/skands-server/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrMediaNotFound = errors.New("media file not found")
	ErrEmptyUpload   = errors.New("upload has no file name")
)

// Upload is one file received from a client
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// StoredFile is an entry of the media listing
type StoredFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// MediaStore persists uploaded media and hands back the public location
type MediaStore interface {
	Save(ctx context.Context, upload Upload) (domain.Media, error)
	// Delete accepts either a stored file name or a URL returned by Save
	Delete(ctx context.Context, src string) error
	List(ctx context.Context) ([]StoredFile, error)
	Exists(ctx context.Context, name string) (bool, error)
}

var (
	now = time.Now
	// token separates uploads of the same name stored within one millisecond
	token = func() string { return uuid.NewString()[:8] }
)

// baseName keeps only the last element of a client file name so it cannot
// climb out of the media root
func baseName(filename string) string {
	return strings.TrimSpace(path.Base(strings.ReplaceAll(filename, "\\", "/")))
}

// objectName builds the stored name "<unix millis>-<token>-<original name>"
func objectName(filename string) (string, error) {
	base := baseName(filename)
	if base == "" || base == "." || base == "/" || base == ".." {
		return "", ErrEmptyUpload
	}
	return fmt.Sprintf("%d-%s-%s", now().UnixMilli(), token(), base), nil
}

// nameFromSrc strips any URL or path prefix from src
func nameFromSrc(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	return path.Base(strings.ReplaceAll(src, "\\", "/"))
}

func newMedia(src string, upload Upload) domain.Media {
	return domain.Media{
		ID:   uuid.New(),
		Src:  src,
		Type: domain.MediaTypeFromMIME(upload.ContentType),
		Alt:  baseName(upload.Filename),
	}
}
