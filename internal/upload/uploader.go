package upload

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/gatepay/platform/internal/domain"
)

const (
	MaxProofFiles    = 3
	MaxProofFileSize = 5 << 20
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Uploader stores a proof image and returns its public URL.
type Uploader interface {
	Store(ctx context.Context, name string, data []byte) (url string, err error)
}

// ProofImage is one validated delivery-proof attachment.
type ProofImage struct {
	Name string
	Data []byte
}

// ValidateProofImages enforces the completion-proof constraints: between one
// and three files, each a real JPEG/PNG/WebP by content sniffing, each at
// most 5 MiB. File extensions are ignored; only content counts.
func ValidateProofImages(images []ProofImage) error {
	if len(images) == 0 {
		return domain.ErrValidation("at least one proof image is required")
	}
	if len(images) > MaxProofFiles {
		return domain.ErrValidation(fmt.Sprintf("at most %d proof images are allowed", MaxProofFiles))
	}
	for _, img := range images {
		if len(img.Data) == 0 {
			return domain.ErrValidation("empty proof image")
		}
		if len(img.Data) > MaxProofFileSize {
			return domain.ErrValidation("proof image exceeds 5MB limit")
		}
		contentType := http.DetectContentType(img.Data)
		if _, ok := allowedImageTypes[contentType]; !ok {
			return domain.ErrValidation("proof image must be JPEG, PNG or WebP")
		}
	}
	return nil
}

// LocalUploader writes files under a base directory and serves them from a
// base URL. Object storage replaces this in production deployments.
type LocalUploader struct {
	baseDir string
	baseURL string
}

// NewLocalUploader creates a filesystem-backed uploader.
func NewLocalUploader(baseDir, baseURL string) *LocalUploader {
	return &LocalUploader{baseDir: baseDir, baseURL: baseURL}
}

func (u *LocalUploader) Store(_ context.Context, name string, data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", domain.ErrValidation("unsupported file type")
	}

	fileName := uuid.New().String() + ext
	if err := os.MkdirAll(u.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(u.baseDir, fileName), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload %s: %w", name, err)
	}
	return u.baseURL + "/" + fileName, nil
}
