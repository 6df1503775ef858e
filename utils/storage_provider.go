package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	StorageProviderGCS   = "gcs"
	StorageProviderLocal = "local"
)

// ObjectStorage stores exported reports and benefit images.
type ObjectStorage interface {
	Put(ctx context.Context, objectKey, contentType string, data []byte) (string, error)
	SignedURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
}

func GetStorageProvider() string {
	provider := strings.TrimSpace(strings.ToLower(os.Getenv("STORAGE_PROVIDER")))
	if provider == "" {
		if os.Getenv("GCS_BUCKET") != "" {
			return StorageProviderGCS
		}
		return StorageProviderLocal
	}
	return provider
}

// NewObjectStorage picks GCS when a bucket is configured, else a local directory.
func NewObjectStorage(bucket string) (ObjectStorage, error) {
	switch GetStorageProvider() {
	case StorageProviderGCS:
		if bucket == "" {
			bucket = os.Getenv("GCS_BUCKET")
		}
		if bucket == "" {
			return nil, errors.New("GCS_BUCKET is required")
		}
		return &GCSStorage{Bucket: bucket}, nil
	case StorageProviderLocal:
		dir := os.Getenv("LOCAL_STORAGE_DIR")
		if dir == "" {
			dir = filepath.Join(os.TempDir(), "loyalty-storage")
		}
		return &LocalStorage{Dir: dir, BaseURL: os.Getenv("LOCAL_STORAGE_BASE_URL")}, nil
	default:
		return nil, fmt.Errorf("storage provider %q is not supported", GetStorageProvider())
	}
}

// LocalStorage writes objects below Dir. Used in development and tests.
type LocalStorage struct {
	Dir     string
	BaseURL string
}

func (s *LocalStorage) Put(ctx context.Context, objectKey, contentType string, data []byte) (string, error) {
	clean := filepath.Clean("/" + objectKey)
	path := filepath.Join(s.Dir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return s.url(clean), nil
}

func (s *LocalStorage) SignedURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	return s.url(filepath.Clean("/" + objectKey)), nil
}

func (s *LocalStorage) url(clean string) string {
	if s.BaseURL == "" {
		return "file://" + filepath.Join(s.Dir, clean)
	}
	return strings.TrimRight(s.BaseURL, "/") + filepath.ToSlash(clean)
}
