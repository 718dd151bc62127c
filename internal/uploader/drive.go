package uploader

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/gommon/random"
	"github.com/vitrina/catalogd/internal/backend"
	"go.uber.org/zap"
)

// Drive uploads images into the configured Drive folder, marks them
// public-read and returns the passthrough URL.
type Drive struct {
	drive *backend.Drive
}

func NewDrive(d *backend.Drive) *Drive {
	return &Drive{drive: d}
}

func (u *Drive) Upload(ctx context.Context, dataURI string) (string, error) {
	mimeType, raw, err := decodeDataURI(dataURI)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("img_%d_%s%s", time.Now().UnixMilli(),
		random.String(6, random.Lowercase), extFromMime(mimeType))

	id, err := u.drive.UploadFile(ctx, name, mimeType, raw)
	if err != nil {
		return "", err
	}
	if err := u.drive.SetPublicRead(ctx, id); err != nil {
		return "", err
	}
	url := backend.PublicImageURL(id)
	zap.L().Info("image uploaded", zap.String("host", "drive"), zap.String("url", url))
	return url, nil
}
