package backend

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"
	"github.com/vitrina/catalogd/config"
	"github.com/vitrina/catalogd/internal/localstate"
	"go.uber.org/zap"
)

const (
	defaultTokenURL = "https://oauth2.googleapis.com/token"

	// Tokens are reused for one hour from issuance regardless of what the
	// token endpoint reports, matching the stored-expiry convention the
	// catalog documents were written under.
	tokenReuseWindow = time.Hour
)

type tokenState int

const (
	stateNoToken tokenState = iota
	stateValid
	stateExpired
	stateRefreshing
)

func (s tokenState) String() string {
	switch s {
	case stateValid:
		return "valid"
	case stateExpired:
		return "expired"
	case stateRefreshing:
		return "refreshing"
	default:
		return "no-token"
	}
}

// TokenManager owns the Drive access token as an explicit state machine
// {no-token, valid, expired, refreshing}. The token is cached in the local
// state store with its expiry so it survives restarts; a 401 from the remote
// invalidates it and the caller gets exactly one forced re-authentication.
type TokenManager struct {
	cfg   config.DriveConfig
	local *localstate.Store

	mu     sync.Mutex
	state  tokenState
	token  string
	expiry time.Time
}

func NewTokenManager(cfg config.DriveConfig, local *localstate.Store) *TokenManager {
	m := &TokenManager{cfg: cfg, local: local, state: stateNoToken}
	if local != nil {
		if tok, exp, ok := local.Token(); ok {
			m.token = tok
			m.expiry = exp
			if time.Now().Before(exp) {
				m.state = stateValid
				zap.L().Info("reusing cached access token", zap.Time("expiry", exp))
			} else {
				m.state = stateExpired
			}
		}
	}
	return m
}

// Available reports whether a refresh flow is even configured. Read paths use
// this to decide between the authenticated client and the anonymous key
// fallback.
func (m *TokenManager) Available() bool {
	return m.cfg.RefreshToken != "" && m.cfg.ClientID != ""
}

// Token returns a usable access token, refreshing when the held one is
// absent or past its reuse window.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateValid && time.Now().Before(m.expiry) {
		return m.token, nil
	}
	if m.state == stateValid {
		m.state = stateExpired
	}
	return m.refreshLocked(ctx)
}

// Invalidate drops the held token after an unauthorized response.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	zap.L().Warn("access token rejected, invalidating", zap.String("state", m.state.String()))
	m.token = ""
	m.state = stateExpired
	if m.local != nil {
		if err := m.local.ClearToken(); err != nil {
			zap.L().Error("failed to clear cached token", zap.Error(err))
		}
	}
}

func (m *TokenManager) refreshLocked(ctx context.Context) (string, error) {
	if !m.Available() {
		m.state = stateNoToken
		return "", ErrNoToken
	}

	m.state = stateRefreshing

	tokenURL := m.cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	var code int
	err := gout.POST(tokenURL).
		WithContext(ctx).
		SetWWWForm(gout.H{
			"client_id":     m.cfg.ClientID,
			"client_secret": m.cfg.ClientSecret,
			"refresh_token": m.cfg.RefreshToken,
			"grant_type":    "refresh_token",
		}).
		Code(&code).
		BindJSON(&resp).
		Do()
	if err != nil {
		m.state = stateExpired
		return "", errors.Wrap(err, "token refresh request")
	}
	if code != http.StatusOK || resp.AccessToken == "" {
		m.state = stateExpired
		return "", errors.Errorf("token refresh rejected: status %d", code)
	}

	m.token = resp.AccessToken
	m.expiry = time.Now().Add(tokenReuseWindow)
	m.state = stateValid

	if m.local != nil {
		if err := m.local.SaveToken(m.token, m.expiry); err != nil {
			zap.L().Error("failed to cache access token", zap.Error(err))
		}
	}
	zap.L().Info("access token refreshed", zap.Time("expiry", m.expiry))
	return m.token, nil
}
