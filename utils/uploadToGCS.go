package utils

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// getGoogleClient initializes a Google Cloud Storage client
func getGoogleClient(ctx context.Context) (*storage.Client, error) {
	// Prefer ADC. Set GCS_CREDENTIALS_JSON to provide explicit JSON (e.g. locally).
	if credJSON := os.Getenv("GCS_CREDENTIALS_JSON"); strings.TrimSpace(credJSON) != "" {
		return storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
	}
	return storage.NewClient(ctx)
}

type GCSStorage struct {
	Bucket string
}

func (s *GCSStorage) Put(ctx context.Context, objectKey, contentType string, data []byte) (string, error) {
	client, err := getGoogleClient(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	wc := client.Bucket(s.Bucket).Object(objectKey).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("gcs upload %q: %w", objectKey, err)
	}
	return BuildObjectAccessURL(s.Bucket, objectKey), nil
}

// SignedURL returns a V4 GET url; the client's credentials sign it.
func (s *GCSStorage) SignedURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	client, err := getGoogleClient(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	return client.Bucket(s.Bucket).SignedURL(objectKey, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expires),
	})
}

func BuildObjectAccessURL(bucket, objectKey string) string {
	if base := strings.TrimSpace(os.Getenv("STORAGE_PUBLIC_BASE_URL")); base != "" {
		return strings.TrimRight(base, "/") + "/" + objectKey
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, objectKey)
}
