package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"reclaim/internal/inbox"
)

var (
	ErrImageTooLarge    = errors.New("image too large")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore persists chat image attachments.
type ImageStore interface {
	Save(file *multipart.FileHeader) (string, error)
	Remove(path string) error
}

// LocalImageStore writes attachments under a media directory. Returned paths
// are relative to that directory.
type LocalImageStore struct {
	root     string
	maxBytes int64
}

func NewLocalImageStore(root string, maxBytes int64) *LocalImageStore {
	return &LocalImageStore{root: root, maxBytes: maxBytes}
}

func (s *LocalImageStore) Save(file *multipart.FileHeader) (string, error) {
	if file.Size > s.maxBytes {
		return "", ErrImageTooLarge
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	ext, ok := imageExtensions[http.DetectContentType(head[:n])]
	if !ok {
		return "", ErrUnsupportedImage
	}

	rel := filepath.Join(inbox.ImageDir, uuid.NewString()+ext)
	dst := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, io.MultiReader(bytes.NewReader(head[:n]), io.LimitReader(src, s.maxBytes-int64(n)+1)))
	if err == nil && written > s.maxBytes {
		err = ErrImageTooLarge
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (s *LocalImageStore) Remove(path string) error {
	return os.Remove(filepath.Join(s.root, filepath.FromSlash(path)))
}
