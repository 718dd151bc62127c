package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type categoryPayload struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

func (s *Server) getCatalog(c echo.Context) error {
	return ok(c, s.catalog.Catalog())
}

func (s *Server) listCategories(c echo.Context) error {
	if c.QueryParam("names") == "true" {
		return ok(c, s.catalog.Categories())
	}
	return ok(c, s.catalog.CategoryObjects())
}

func (s *Server) createCategory(c echo.Context) error {
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category", err.Error())
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name is required", nil)
	}

	if !s.catalog.AddCategory(c.Request().Context(), payload.Name, payload.Image) {
		return fail(c, http.StatusConflict, "DUPLICATE", "Category already exists", nil)
	}
	return ok(c, map[string]interface{}{"name": payload.Name})
}

func (s *Server) updateCategory(c echo.Context) error {
	oldName := c.Param("name")

	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category", err.Error())
	}
	newName := strings.TrimSpace(payload.Name)
	if newName == "" {
		newName = oldName
	}

	if !s.catalog.UpdateCategory(c.Request().Context(), oldName, newName, payload.Image) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Category not found", nil)
	}
	return ok(c, map[string]interface{}{"name": newName})
}

func (s *Server) deleteCategory(c echo.Context) error {
	name := c.Param("name")
	if !s.catalog.DeleteCategory(c.Request().Context(), name) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Category not found", nil)
	}
	return ok(c, map[string]interface{}{"name": name})
}
