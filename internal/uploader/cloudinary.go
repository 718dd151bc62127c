package uploader

import (
	"context"
	"net/http"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"
	"github.com/vitrina/catalogd/config"
	"go.uber.org/zap"
)

const defaultCloudinaryBase = "https://api.cloudinary.com/v1_1"

// Cloudinary uploads images through the unsigned upload endpoint and returns
// the secure URL. The data URI is sent as-is; Cloudinary decodes inline
// payloads itself.
type Cloudinary struct {
	cloudName string
	preset    string
	base      string
}

func NewCloudinary(cfg config.CloudinaryConfig) *Cloudinary {
	base := cfg.UploadBase
	if base == "" {
		base = defaultCloudinaryBase
	}
	return &Cloudinary{cloudName: cfg.CloudName, preset: cfg.UploadPreset, base: base}
}

func (c *Cloudinary) Upload(ctx context.Context, dataURI string) (string, error) {
	var resp struct {
		SecureURL string `json:"secure_url"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	var code int
	err := gout.POST(c.base + "/" + c.cloudName + "/image/upload").
		WithContext(ctx).
		SetForm(gout.H{
			"file":          dataURI,
			"upload_preset": c.preset,
		}).
		Code(&code).
		BindJSON(&resp).
		Do()
	if err != nil {
		return "", errors.Wrap(err, "cloudinary upload")
	}
	if code != http.StatusOK {
		if resp.Error.Message != "" {
			return "", errors.Errorf("cloudinary upload: %s", resp.Error.Message)
		}
		return "", errors.Errorf("cloudinary upload: status %d", code)
	}
	if resp.SecureURL == "" {
		return "", errors.New("cloudinary upload: empty secure_url")
	}
	zap.L().Info("image uploaded", zap.String("host", "cloudinary"), zap.String("url", resp.SecureURL))
	return resp.SecureURL, nil
}
