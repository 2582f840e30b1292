package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"storefront/domain"

	"github.com/google/uuid"
)

var (
	// ErrUnsupportedImage is a validation error so callers report it as bad input.
	ErrUnsupportedImage = &domain.ValidationError{Fields: []string{"image"}, Message: "unsupported image type"}
	ErrForeignURL       = errors.New("url does not belong to this store")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

type LocalConfig struct {
	UploadDir string
	PublicURL string
}

// LocalImageRepository writes images under UploadDir with random names and
// hands back URLs under PublicURL, which the echo server serves statically.
type LocalImageRepository struct {
	cfg LocalConfig
}

func NewLocalImageRepository(cfg LocalConfig) (*LocalImageRepository, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	return &LocalImageRepository{cfg: cfg}, nil
}

func (r *LocalImageRepository) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, ext)
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(r.cfg.UploadDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	return r.cfg.PublicURL + "/" + name, nil
}

// Delete removes a previously uploaded image. Deleting an image that is
// already gone is not an error.
func (r *LocalImageRepository) Delete(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefix := r.cfg.PublicURL + "/"
	if !strings.HasPrefix(url, prefix) {
		return ErrForeignURL
	}

	name := path.Base(strings.TrimPrefix(url, prefix))
	if name == "." || name == "/" || name == "" {
		return ErrForeignURL
	}

	err := os.Remove(filepath.Join(r.cfg.UploadDir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	return nil
}
