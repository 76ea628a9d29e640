package marketplace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageSize bounds a single uploaded image.
const MaxImageSize = 5 << 20

var ErrInvalidImage = errors.New("upload is not a supported image")

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageStore keeps uploaded images on disk and hands out the URL path they
// are served under.
type ImageStore struct {
	dir       string
	urlPrefix string
}

func NewImageStore(dir, urlPrefix string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}
	return &ImageStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Dir is where images are written.
func (s *ImageStore) Dir() string {
	return s.dir
}

// Save sniffs r, rejects anything that is not an allowed image and stores
// it under a random name.
func (s *ImageStore) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > MaxImageSize {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidImage, MaxImageSize)
	}

	mtype := mimetype.Detect(data)
	if !allowedImageTypes[mtype.String()] {
		return "", fmt.Errorf("%w: %s", ErrInvalidImage, mtype.String())
	}

	name := uuid.New().String() + mtype.Extension()
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return s.urlPrefix + "/" + name, nil
}

// SaveAll stores every upload, or none: on failure the ones already
// written are removed.
func (s *ImageStore) SaveAll(uploads []Upload) ([]string, error) {
	urls := make([]string, 0, len(uploads))
	for _, o := range uploads {
		url, err := s.saveOne(o)
		if err != nil {
			s.remove(urls)
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *ImageStore) saveOne(open Upload) (string, error) {
	f, err := open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return s.Save(f)
}

func (s *ImageStore) remove(urls []string) {
	for _, u := range urls {
		_ = os.Remove(filepath.Join(s.dir, filepath.Base(u)))
	}
}
