package adminapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vitrina/catalogd/internal/domain"
)

type productPayload struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Image       string `json:"image"`
}

func (s *Server) listProducts(c echo.Context) error {
	var rows []domain.Product
	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		rows = s.catalog.ProductsByCategory(category)
	} else {
		rows = s.catalog.Products()
	}

	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		filtered := rows[:0]
		for _, p := range rows {
			if strings.Contains(strings.ToLower(p.Title), strings.ToLower(q)) {
				filtered = append(filtered, p)
			}
		}
		rows = filtered
	}

	page := 1
	if p, err := strconv.Atoi(c.QueryParam("page")); err == nil && p > 0 {
		page = p
	}
	pageSize := 20
	if ps, err := strconv.Atoi(c.QueryParam("perPage")); err == nil && ps > 0 && ps <= 500 {
		pageSize = ps
	}

	total := int64(len(rows))
	start := (page - 1) * pageSize
	if start > len(rows) {
		start = len(rows)
	}
	end := start + pageSize
	if end > len(rows) {
		end = len(rows)
	}
	return paged(c, rows[start:end], total, page, pageSize)
}

func (s *Server) createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	payload.Title = strings.TrimSpace(payload.Title)
	if payload.Title == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Title is required", nil)
	}
	if strings.TrimSpace(payload.Category) == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Category is required", nil)
	}

	created := s.catalog.AddProduct(c.Request().Context(), domain.Product{
		Title:       payload.Title,
		Category:    strings.TrimSpace(payload.Category),
		Description: payload.Description,
		Price:       payload.Price,
		Image:       payload.Image,
	})
	return ok(c, created)
}

func (s *Server) updateProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	patch := map[string]interface{}{}
	if err := c.Bind(&patch); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}

	updated, found := s.catalog.UpdateProduct(c.Request().Context(), id, patch)
	if !found {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, updated)
}

func (s *Server) deleteProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	if !s.catalog.DeleteProduct(c.Request().Context(), id) {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id})
}
