package adminapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type loginPayload struct {
	Password string `json:"password" form:"password"`
}

// login answers the password challenge. On success the admin flag is set in
// the session cookie and mirrored into local state, where the background
// sync loop checks it.
func (s *Server) login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login", err.Error())
	}
	if !s.verifyPassword(payload.Password) {
		zap.L().Warn("admin login rejected", zap.String("ip", c.RealIP()))
		return fail(c, http.StatusUnauthorized, "INVALID_PASSWORD", "Contraseña incorrecta", nil)
	}

	sess, _ := s.sessions.Get(c.Request(), sessionName)
	sess.Values["admin"] = true
	sess.Options.HttpOnly = true
	sess.Options.Path = "/"
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return fail(c, http.StatusInternalServerError, "SESSION_ERROR", "Failed to save session", err.Error())
	}
	if err := s.local.SetAdminActive(true); err != nil {
		zap.L().Error("failed to persist admin flag", zap.Error(err))
	}

	zap.L().Info("admin session opened", zap.String("ip", c.RealIP()))
	return ok(c, map[string]interface{}{"admin": true})
}

// logout clears both the session cookie and the persisted admin flag.
func (s *Server) logout(c echo.Context) error {
	sess, _ := s.sessions.Get(c.Request(), sessionName)
	delete(sess.Values, "admin")
	sess.Options.MaxAge = -1
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		zap.L().Error("failed to clear session", zap.Error(err))
	}
	if err := s.local.SetAdminActive(false); err != nil {
		zap.L().Error("failed to clear admin flag", zap.Error(err))
	}
	zap.L().Info("admin session closed")
	return ok(c, map[string]interface{}{"admin": false})
}

// verifyPassword accepts either a bcrypt hash or a plain configured value.
func (s *Server) verifyPassword(password string) bool {
	configured := s.cfg.Admin.Password
	if configured == "" {
		return false
	}
	if strings.HasPrefix(configured, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(password)) == 1
}
