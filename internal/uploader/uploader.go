// Package uploader turns inline image data into durable externally-fetchable
// URLs via a remote image host.
package uploader

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

// Uploader uploads one inline-encoded image and returns its stable URL.
// Failures are returned to the caller, which decides whether to keep the
// inline data as a fallback.
type Uploader interface {
	Upload(ctx context.Context, dataURI string) (string, error)
}

// Noop passes the input through unchanged, for deployments without an image
// host configured.
type Noop struct{}

func (Noop) Upload(ctx context.Context, dataURI string) (string, error) {
	return dataURI, nil
}

// decodeDataURI splits a data:image/...;base64,... value into its mime type
// and raw bytes.
func decodeDataURI(dataURI string) (mimeType string, raw []byte, err error) {
	head, payload, found := strings.Cut(dataURI, ";base64,")
	if !found {
		return "", nil, errors.New("not a base64 data uri")
	}
	mimeType = strings.TrimPrefix(head, "data:")
	raw, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Wrap(err, "decode image payload")
	}
	return mimeType, raw, nil
}

// extFromMime maps the common image mime types to a file extension.
func extFromMime(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
