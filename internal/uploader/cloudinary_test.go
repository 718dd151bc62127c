package uploader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vitrina/catalogd/config"
)

const tinyPNG = "data:image/png;base64,aGVsbG8="

func TestCloudinaryUploadReturnsSecureURL(t *testing.T) {
	var gotFile, gotPreset string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/demo-cloud/image/upload") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart form: %v", err)
		}
		gotFile = r.PostFormValue("file")
		gotPreset = r.PostFormValue("upload_preset")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"secure_url":"https://res.cloudinary.com/demo-cloud/image/upload/v1/abc.png"}`)
	}))
	defer srv.Close()

	c := NewCloudinary(config.CloudinaryConfig{
		CloudName:    "demo-cloud",
		UploadPreset: "unsigned-1",
		UploadBase:   srv.URL,
	})
	url, err := c.Upload(context.Background(), tinyPNG)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if url != "https://res.cloudinary.com/demo-cloud/image/upload/v1/abc.png" {
		t.Fatalf("unexpected url %q", url)
	}
	if gotFile != tinyPNG {
		t.Fatalf("inline payload not sent as-is: %q", gotFile)
	}
	if gotPreset != "unsigned-1" {
		t.Fatalf("unexpected preset %q", gotPreset)
	}
}

func TestCloudinaryUploadSurfacesRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Upload preset not found"}}`)
	}))
	defer srv.Close()

	c := NewCloudinary(config.CloudinaryConfig{
		CloudName:    "demo-cloud",
		UploadPreset: "missing",
		UploadBase:   srv.URL,
	})
	_, err := c.Upload(context.Background(), tinyPNG)
	if err == nil {
		t.Fatal("expected error from rejected upload")
	}
	if !strings.Contains(err.Error(), "Upload preset not found") {
		t.Fatalf("remote message not surfaced: %v", err)
	}
}

func TestNoopUploaderPassesThrough(t *testing.T) {
	url, err := Noop{}.Upload(context.Background(), tinyPNG)
	if err != nil {
		t.Fatalf("noop upload failed: %v", err)
	}
	if url != tinyPNG {
		t.Fatalf("noop must return its input, got %q", url)
	}
}

func TestDecodeDataURI(t *testing.T) {
	mimeType, raw, err := decodeDataURI(tinyPNG)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if mimeType != "image/png" {
		t.Fatalf("unexpected mime type %q", mimeType)
	}
	if string(raw) != "hello" {
		t.Fatalf("unexpected payload %q", raw)
	}

	if _, _, err := decodeDataURI("https://example.com/x.png"); err == nil {
		t.Fatal("plain url should be rejected")
	}
	if _, _, err := decodeDataURI("data:image/png;base64,!!!"); err == nil {
		t.Fatal("invalid base64 should be rejected")
	}
}

func TestExtFromMime(t *testing.T) {
	cases := map[string]string{
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
		"image/jpeg": ".jpg",
		"image/tiff": ".jpg",
	}
	for mimeType, want := range cases {
		if got := extFromMime(mimeType); got != want {
			t.Fatalf("extFromMime(%q) = %q, want %q", mimeType, got, want)
		}
	}
}
