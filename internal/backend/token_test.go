package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vitrina/catalogd/config"
	"github.com/vitrina/catalogd/internal/localstate"
)

func driveTestConfig(tokenURL string) config.DriveConfig {
	return config.DriveConfig{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RefreshToken: "refresh-1",
		FolderID:     "folder-1",
		FileName:     "data.json",
		TokenURL:     tokenURL,
	}
}

func newTokenServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	issued := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostFormValue("grant_type") != "refresh_token" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		issued++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":3600}`, issued)
	}))
	t.Cleanup(srv.Close)
	return srv, &issued
}

func TestTokenRefreshAndReuse(t *testing.T) {
	srv, issued := newTokenServer(t)
	m := NewTokenManager(driveTestConfig(srv.URL), nil)

	tok, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("unexpected token %q", tok)
	}

	// Within the reuse window the cached token is returned without a refresh.
	tok, err = m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if tok != "tok-1" || *issued != 1 {
		t.Fatalf("expected token reuse, got %q after %d refreshes", tok, *issued)
	}
}

func TestTokenInvalidateForcesRefresh(t *testing.T) {
	srv, issued := newTokenServer(t)
	m := NewTokenManager(driveTestConfig(srv.URL), nil)

	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	m.Invalidate()

	tok, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if tok != "tok-2" || *issued != 2 {
		t.Fatalf("expected fresh token after invalidate, got %q (%d refreshes)", tok, *issued)
	}
}

func TestTokenSurvivesRestartViaLocalState(t *testing.T) {
	srv, issued := newTokenServer(t)
	local, err := localstate.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open local state: %v", err)
	}
	defer local.Close()

	m := NewTokenManager(driveTestConfig(srv.URL), local)
	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("Token returned error: %v", err)
	}

	// A new manager over the same state reuses the cached token.
	m2 := NewTokenManager(driveTestConfig(srv.URL), local)
	tok, err := m2.Token(context.Background())
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if tok != "tok-1" || *issued != 1 {
		t.Fatalf("cached token not reused across restart: %q (%d refreshes)", tok, *issued)
	}
}

func TestExpiredCachedTokenTriggersRefresh(t *testing.T) {
	srv, issued := newTokenServer(t)
	local, err := localstate.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open local state: %v", err)
	}
	defer local.Close()

	if err := local.SaveToken("stale", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	m := NewTokenManager(driveTestConfig(srv.URL), local)
	tok, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if tok != "tok-1" || *issued != 1 {
		t.Fatalf("expired token not refreshed: %q (%d refreshes)", tok, *issued)
	}
}

func TestNoRefreshConfigMeansNoToken(t *testing.T) {
	cfg := driveTestConfig("")
	cfg.RefreshToken = ""
	m := NewTokenManager(cfg, nil)

	if m.Available() {
		t.Fatal("manager without refresh credentials should not report available")
	}
	if _, err := m.Token(context.Background()); err != ErrNoToken {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}
