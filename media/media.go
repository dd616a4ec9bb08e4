// Package media stores uploaded files on disk and removes them again.
package media

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"myfeedsave/models"
)

var (
	ErrTooLarge        = errors.New("media: file too large")
	ErrUnsupportedType = errors.New("media: unsupported file type")
)

// Store writes uploads into a single directory
type Store struct {
	root    string
	maxSize int64
	kinds   []models.MediaKind
}

// NewStore creates root if needed. kinds lists the media kinds Save
// accepts.
func NewStore(root string, maxSize int64, kinds ...models.MediaKind) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{root: root, maxSize: maxSize, kinds: kinds}, nil
}

// NewPictureStore accepts images up to 5MB
func NewPictureStore(root string) (*Store, error) {
	return NewStore(root, 5<<20, models.MediaImage)
}

// NewPostStore accepts images and videos up to 50MB
func NewPostStore(root string) (*Store, error) {
	return NewStore(root, 50<<20, models.MediaImage, models.MediaVideo)
}

// Root is the directory files are written to
func (s *Store) Root() string {
	return s.root
}

// MaxSize is the largest accepted file in bytes
func (s *Store) MaxSize() int64 {
	return s.maxSize
}

// Save copies the uploaded file into the store under a fresh name and
// returns that name together with the media kind
func (s *Store) Save(fh *multipart.FileHeader) (string, models.MediaKind, error) {
	if fh.Size > s.maxSize {
		return "", "", ErrTooLarge
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	kind, ok := s.kindOf(fh.Header.Get("Content-Type"), ext)
	if !ok {
		return "", "", ErrUnsupportedType
	}

	src, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := uuid.NewString() + ext
	dst, err := os.OpenFile(filepath.Join(s.root, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", "", fmt.Errorf("create media file: %w", err)
	}

	// One byte past the limit tells an oversized body from an exact fit.
	n, err := io.Copy(dst, io.LimitReader(src, s.maxSize+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(filepath.Join(s.root, name))
		if errors.Is(err, ErrTooLarge) {
			return "", "", err
		}
		return "", "", fmt.Errorf("write media file: %w", err)
	}
	return name, kind, nil
}

// Remove deletes the named file. Only the base name is used.
func (s *Store) Remove(name string) error {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("media: invalid file name %q", name)
	}
	return os.Remove(filepath.Join(s.root, name))
}

// kindOf derives the media kind from the file extension. Only known media
// extensions are stored, since static serving picks the content type from
// the extension. A declared content type must agree with it.
func (s *Store) kindOf(contentType, ext string) (models.MediaKind, bool) {
	kind, ok := kindOfType(getContentType(ext))
	if !ok {
		return "", false
	}
	if contentType != "" && contentType != "application/octet-stream" {
		if declared, ok := kindOfType(contentType); !ok || declared != kind {
			return "", false
		}
	}
	return kind, slices.Contains(s.kinds, kind)
}

func kindOfType(contentType string) (models.MediaKind, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MediaImage, true
	case strings.HasPrefix(contentType, "video/"):
		return models.MediaVideo, true
	}
	return "", false
}

func getContentType(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}
