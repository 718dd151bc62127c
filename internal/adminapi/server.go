// Package adminapi exposes the catalog over HTTP: public read endpoints for
// the storefront and session-guarded mutators for the admin edit mode.
package adminapi

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/vitrina/catalogd/config"
	"github.com/vitrina/catalogd/internal/localstate"
	"github.com/vitrina/catalogd/internal/store"
)

const sessionName = "catalog_admin"

type Server struct {
	cfg      *config.AppConfig
	catalog  *store.Store
	local    *localstate.Store
	sessions *sessions.CookieStore
	echo     *echo.Echo
}

func NewServer(cfg *config.AppConfig, catalog *store.Store, local *localstate.Store) *Server {
	s := &Server{
		cfg:      cfg,
		catalog:  catalog,
		local:    local,
		sessions: sessions.NewCookieStore([]byte(cfg.Web.Secret)),
	}
	s.echo = s.buildEcho()
	return s
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.GET("/", s.index)

	api := e.Group("/api")
	api.GET("/catalog", s.getCatalog)
	api.GET("/categories", s.listCategories)
	api.GET("/products", s.listProducts)

	api.POST("/admin/login", s.login)
	api.POST("/admin/logout", s.logout)

	admin := api.Group("", s.adminRequired)
	admin.POST("/products", s.createProduct)
	admin.PUT("/products/:id", s.updateProduct)
	admin.DELETE("/products/:id", s.deleteProduct)
	admin.POST("/categories", s.createCategory)
	admin.PUT("/categories/:name", s.updateCategory)
	admin.DELETE("/categories/:name", s.deleteCategory)
	admin.GET("/catalog/export", s.exportCatalog)

	return e
}

// Echo exposes the router, mostly for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Start runs the HTTP server on the configured listen address.
func (s *Server) Start() error {
	return s.echo.Start(s.cfg.Web.Listen)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// index answers the storefront root. The recognized ?admin query marker
// redirects into the password challenge instead of the catalog view.
func (s *Server) index(c echo.Context) error {
	if _, hasMarker := c.QueryParams()["admin"]; hasMarker && !s.isAdmin(c) {
		return fail(c, http.StatusUnauthorized, "ADMIN_LOGIN_REQUIRED",
			"Admin login required", nil)
	}
	return ok(c, map[string]interface{}{
		"service":    "catalogd",
		"categories": len(s.catalog.Categories()),
		"products":   len(s.catalog.Products()),
	})
}

func (s *Server) isAdmin(c echo.Context) bool {
	sess, err := s.sessions.Get(c.Request(), sessionName)
	if err != nil {
		return false
	}
	flag, _ := sess.Values["admin"].(bool)
	return flag
}

func (s *Server) adminRequired(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.isAdmin(c) {
			return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Admin session required", nil)
		}
		return next(c)
	}
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"code": "OK", "data": data})
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"code":  code,
		"error": apiError{Code: code, Message: message, Detail: detail},
	})
}

func paged(c echo.Context, rows interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"code":     "OK",
		"data":     rows,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}
