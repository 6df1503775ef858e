package utils

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/disintegration/imaging"
)

const (
	MaxImageBytes  = 5 << 20
	ThumbnailWidth = 256
)

// DetectImageType accepts jpeg and png only.
func DetectImageType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", NewValidationError("image", "file is empty")
	}
	if len(data) > MaxImageBytes {
		return "", NewValidationError("image", "file is larger than 5MB")
	}
	contentType := http.DetectContentType(data)
	switch contentType {
	case "image/jpeg", "image/png":
		return contentType, nil
	}
	return "", NewValidationError("image", fmt.Sprintf("unsupported content type %s", contentType))
}

// MakeThumbnail resizes to ThumbnailWidth keeping the aspect ratio, encoded as JPEG.
func MakeThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, NewValidationError("image", "cannot decode image")
	}
	thumbnail := imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumbnail, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
