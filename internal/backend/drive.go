package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"regexp"
	"sync"

	"github.com/araddon/dateparse"
	"github.com/guonaihong/gout"
	"github.com/pkg/errors"
	"github.com/vitrina/catalogd/config"
	"github.com/vitrina/catalogd/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultDriveAPIBase    = "https://www.googleapis.com/drive/v3"
	defaultDriveUploadBase = "https://upload.googleapis.com/upload/drive/v3"

	folderMimeType = "application/vnd.google-apps.folder"
)

// lh3 passthrough URLs carry the Drive file id as the trailing path segment.
var driveImageURL = regexp.MustCompile(`googleusercontent\.com/.*/d/([A-Za-z0-9_-]+)`)

// Drive stores the catalog as a JSON file located by name+parent query in a
// remote Drive folder, creating it on first use. Reads fall back to an
// anonymous key-based request when no token is held; writes require a token
// and never fall back.
type Drive struct {
	cfg    config.DriveConfig
	tokens *TokenManager

	apiBase    string
	uploadBase string

	mu     sync.Mutex
	fileID string
}

func NewDrive(cfg config.DriveConfig, tokens *TokenManager) *Drive {
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = defaultDriveAPIBase
	}
	uploadBase := cfg.UploadBase
	if uploadBase == "" {
		uploadBase = defaultDriveUploadBase
	}
	return &Drive{cfg: cfg, tokens: tokens, apiBase: apiBase, uploadBase: uploadBase}
}

func (d *Drive) Name() string { return "drive" }

// Tokens exposes the token manager so the image uploader can share it.
func (d *Drive) Tokens() *TokenManager { return d.tokens }

func (d *Drive) Fetch(ctx context.Context) (*domain.Catalog, error) {
	id, modified, err := d.locateFile(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		// File absence is a valid empty state.
		return nil, nil
	}
	if modified != "" {
		if ts, err := dateparse.ParseAny(modified); err == nil {
			zap.L().Debug("remote catalog document located",
				zap.String("file_id", id), zap.Time("modified", ts))
		}
	}

	var body []byte
	err = d.doRead(ctx, func(auth gout.H, query gout.H) error {
		var code int
		query["alt"] = "media"
		err := gout.GET(d.apiBase+"/files/"+id).
			WithContext(ctx).
			SetHeader(auth).
			SetQuery(query).
			Code(&code).
			BindBody(&body).
			Do()
		if err != nil {
			return errors.Wrap(err, "read catalog file")
		}
		return statusErr(code, "read catalog file")
	})
	if err != nil {
		return nil, err
	}
	catalog, err := domain.UnmarshalCatalog(body)
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog file")
	}
	return catalog, nil
}

func (d *Drive) Persist(ctx context.Context, catalog *domain.Catalog) error {
	data, err := catalog.Marshal()
	if err != nil {
		return errors.Wrap(err, "encode catalog")
	}

	id, _, err := d.locateFile(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		newID, err := d.createFile(ctx, d.cfg.FileName, "application/json", data)
		if err != nil {
			return err
		}
		d.setFileID(newID)
		zap.L().Info("catalog file created", zap.String("file_id", newID))
		return nil
	}

	meta := map[string]string{"mimeType": "application/json"}
	body, contentType, err := multipartRelated(meta, data, "application/json")
	if err != nil {
		return err
	}
	return d.withToken(ctx, func(token string) (int, error) {
		var code int
		err := gout.PATCH(d.uploadBase+"/files/"+id).
			WithContext(ctx).
			SetQuery(gout.H{"uploadType": "multipart"}).
			SetHeader(gout.H{
				"Authorization": "Bearer " + token,
				"Content-Type":  contentType,
			}).
			SetBody(body).
			Code(&code).
			Do()
		return code, errors.Wrap(err, "update catalog file")
	})
}

// CreateFolder creates a category folder under the configured parent.
func (d *Drive) CreateFolder(ctx context.Context, name string) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	err := d.withToken(ctx, func(token string) (int, error) {
		var code int
		err := gout.POST(d.apiBase+"/files").
			WithContext(ctx).
			SetQuery(gout.H{"fields": "id"}).
			SetHeader(gout.H{"Authorization": "Bearer " + token}).
			SetJSON(gout.H{
				"name":     name,
				"mimeType": folderMimeType,
				"parents":  []string{d.cfg.FolderID},
			}).
			Code(&code).
			BindJSON(&result).
			Do()
		return code, errors.Wrap(err, "create folder")
	})
	if err != nil {
		return "", err
	}
	return result.ID, nil
}

// DeleteRef removes a file or folder by id.
func (d *Drive) DeleteRef(ctx context.Context, id string) error {
	return d.withToken(ctx, func(token string) (int, error) {
		var code int
		err := gout.DELETE(d.apiBase+"/files/"+id).
			WithContext(ctx).
			SetHeader(gout.H{"Authorization": "Bearer " + token}).
			Code(&code).
			Do()
		return code, errors.Wrap(err, "delete drive ref")
	})
}

// RemoveFileByURL deletes an uploaded image given its public passthrough URL.
func (d *Drive) RemoveFileByURL(ctx context.Context, url string) error {
	m := driveImageURL.FindStringSubmatch(url)
	if m == nil {
		return errors.Errorf("not a drive image url: %s", url)
	}
	return d.DeleteRef(ctx, m[1])
}

// UploadFile creates a binary file under the configured folder and returns
// its id.
func (d *Drive) UploadFile(ctx context.Context, name, mimeType string, content []byte) (string, error) {
	return d.createFile(ctx, name, mimeType, content)
}

// SetPublicRead grants anyone/reader on a file so its passthrough URL works
// without credentials.
func (d *Drive) SetPublicRead(ctx context.Context, id string) error {
	return d.withToken(ctx, func(token string) (int, error) {
		var code int
		err := gout.POST(d.apiBase+"/files/"+id+"/permissions").
			WithContext(ctx).
			SetHeader(gout.H{"Authorization": "Bearer " + token}).
			SetJSON(gout.H{"role": "reader", "type": "anyone"}).
			Code(&code).
			Do()
		return code, errors.Wrap(err, "set public permission")
	})
}

// PublicImageURL builds the durable passthrough URL for an uploaded file.
func PublicImageURL(fileID string) string {
	return "https://lh3.googleusercontent.com/u/0/d/" + fileID
}

func (d *Drive) createFile(ctx context.Context, name, mimeType string, content []byte) (string, error) {
	meta := map[string]interface{}{
		"name":     name,
		"parents":  []string{d.cfg.FolderID},
		"mimeType": mimeType,
	}
	body, contentType, err := multipartRelated(meta, content, mimeType)
	if err != nil {
		return "", err
	}
	var result struct {
		ID string `json:"id"`
	}
	err = d.withToken(ctx, func(token string) (int, error) {
		var code int
		err := gout.POST(d.uploadBase+"/files").
			WithContext(ctx).
			SetQuery(gout.H{"uploadType": "multipart", "fields": "id"}).
			SetHeader(gout.H{
				"Authorization": "Bearer " + token,
				"Content-Type":  contentType,
			}).
			SetBody(body).
			Code(&code).
			BindJSON(&result).
			Do()
		return code, errors.Wrap(err, "create file")
	})
	if err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("create file: empty id in response")
	}
	return result.ID, nil
}

// locateFile resolves the catalog file id by name+parent query, caching the
// result. Empty id with nil error means the file does not exist yet.
func (d *Drive) locateFile(ctx context.Context) (string, string, error) {
	d.mu.Lock()
	if d.fileID != "" {
		id := d.fileID
		d.mu.Unlock()
		return id, "", nil
	}
	d.mu.Unlock()

	q := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		d.cfg.FileName, d.cfg.FolderID)

	var result struct {
		Files []struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			ModifiedTime string `json:"modifiedTime"`
		} `json:"files"`
	}
	err := d.doRead(ctx, func(auth gout.H, query gout.H) error {
		var code int
		query["q"] = q
		query["fields"] = "files(id, name, modifiedTime)"
		query["spaces"] = "drive"
		err := gout.GET(d.apiBase+"/files").
			WithContext(ctx).
			SetHeader(auth).
			SetQuery(query).
			Code(&code).
			BindJSON(&result).
			Do()
		if err != nil {
			return errors.Wrap(err, "list catalog file")
		}
		return statusErr(code, "list catalog file")
	})
	if err != nil {
		return "", "", err
	}
	if len(result.Files) == 0 {
		return "", "", nil
	}
	d.setFileID(result.Files[0].ID)
	return result.Files[0].ID, result.Files[0].ModifiedTime, nil
}

func (d *Drive) setFileID(id string) {
	d.mu.Lock()
	d.fileID = id
	d.mu.Unlock()
}

// doRead runs a read request with the authenticated client when a token can
// be held, else anonymously with the API key, enabling read-only public
// access without an admin login.
func (d *Drive) doRead(ctx context.Context, fn func(auth gout.H, query gout.H) error) error {
	if d.tokens != nil && d.tokens.Available() {
		return d.withToken(ctx, func(token string) (int, error) {
			err := fn(gout.H{"Authorization": "Bearer " + token}, gout.H{})
			return statusOf(err), err
		})
	}
	if d.cfg.APIKey == "" {
		return ErrNoToken
	}
	return fn(gout.H{}, gout.H{"key": d.cfg.APIKey})
}

// withToken runs an authenticated operation, forcing exactly one
// re-authentication and one retry when the remote answers 401. A second
// rejection is surfaced to the caller.
func (d *Drive) withToken(ctx context.Context, fn func(token string) (int, error)) error {
	token, err := d.tokens.Token(ctx)
	if err != nil {
		return err
	}
	code, err := fn(token)
	if code != http.StatusUnauthorized {
		if err != nil {
			return err
		}
		return statusErr(code, "drive request")
	}

	d.tokens.Invalidate()
	token, err = d.tokens.Token(ctx)
	if err != nil {
		return err
	}
	code, err = fn(token)
	if code == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if err != nil {
		return err
	}
	return statusErr(code, "drive request")
}

// statusError ties an HTTP status to the auth retry loop in withToken.
type statusError struct {
	code int
	op   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: status %d", e.op, e.code)
}

func statusErr(code int, op string) error {
	if code >= 200 && code < 300 {
		return nil
	}
	return &statusError{code: code, op: op}
}

func statusOf(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.code
	}
	if err == nil {
		return http.StatusOK
	}
	return 0
}

// multipartRelated assembles the two-part body the Drive multipart upload
// endpoint expects: a JSON metadata part followed by the content part.
func multipartRelated(meta interface{}, content []byte, contentType string) ([]byte, string, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", errors.Wrap(err, "encode upload metadata")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	part, err := w.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(metaJSON); err != nil {
		return nil, "", err
	}

	bodyHeader := textproto.MIMEHeader{}
	bodyHeader.Set("Content-Type", contentType)
	part, err = w.CreatePart(bodyHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), "multipart/related; boundary=" + w.Boundary(), nil
}
