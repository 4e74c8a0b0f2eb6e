package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sofiene-feki/skands-server/internal/domain"
)

// LocalStore keeps media on the server's disk; the router serves Root under URLPrefix
type LocalStore struct {
	root      string
	urlPrefix string
}

// NewLocalStore creates the media root if needed
func NewLocalStore(root, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &LocalStore{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Root is the directory files are written to
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) url(name string) string {
	return s.urlPrefix + "/" + name
}

func (s *LocalStore) Save(ctx context.Context, upload Upload) (domain.Media, error) {
	name, err := objectName(upload.Filename)
	if err != nil {
		return domain.Media{}, err
	}

	f, err := os.OpenFile(filepath.Join(s.root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return domain.Media{}, fmt.Errorf("failed to create media file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, upload.Body); err != nil {
		os.Remove(f.Name())
		return domain.Media{}, fmt.Errorf("failed to write media file: %w", err)
	}

	return newMedia(s.url(name), upload), nil
}

func (s *LocalStore) Delete(ctx context.Context, src string) error {
	name := nameFromSrc(src)
	if name == "" || name == "." || name == ".." {
		return ErrMediaNotFound
	}
	if err := os.Remove(filepath.Join(s.root, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrMediaNotFound
		}
		return fmt.Errorf("failed to delete media file: %w", err)
	}
	return nil
}

func (s *LocalStore) List(ctx context.Context) ([]StoredFile, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}

	files := make([]StoredFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, StoredFile{Name: e.Name(), URL: s.url(e.Name())})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *LocalStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.root, nameFromSrc(name)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat media file: %w", err)
}
