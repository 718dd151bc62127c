package adminapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
)

type productExportRow struct {
	ID          string `csv:"id"`
	Title       string `csv:"title"`
	Category    string `csv:"category"`
	Description string `csv:"description"`
	Price       string `csv:"price"`
	Image       string `csv:"image"`
}

// exportCatalog streams the current catalog as a spreadsheet for offline
// inventory work. Supported formats: csv (products only) and xlsx
// (products + categories sheets).
func (s *Server) exportCatalog(c echo.Context) error {
	switch c.QueryParam("format") {
	case "csv":
		return s.exportCSV(c)
	case "", "xlsx":
		return s.exportXLSX(c)
	default:
		return fail(c, http.StatusBadRequest, "INVALID_FORMAT", "Format must be csv or xlsx", nil)
	}
}

func (s *Server) exportCSV(c echo.Context) error {
	products := s.catalog.Products()
	rows := make([]productExportRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, productExportRow{
			ID:          strconv.FormatInt(p.ID, 10),
			Title:       p.Title,
			Category:    p.Category,
			Description: p.Description,
			Price:       p.Price,
			Image:       p.Image,
		})
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="catalog.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return gocsv.Marshal(&rows, c.Response())
}

func (s *Server) exportXLSX(c echo.Context) error {
	xlsx := excelize.NewFile()
	xlsx.SetSheetName("Sheet1", "Products")

	headers := []string{"ID", "Title", "Category", "Description", "Price", "Image"}
	for i, h := range headers {
		xlsx.SetCellValue("Products", fmt.Sprintf("%c1", 'A'+i), h)
	}
	for i, p := range s.catalog.Products() {
		row := i + 2
		xlsx.SetCellValue("Products", fmt.Sprintf("A%d", row), strconv.FormatInt(p.ID, 10))
		xlsx.SetCellValue("Products", fmt.Sprintf("B%d", row), p.Title)
		xlsx.SetCellValue("Products", fmt.Sprintf("C%d", row), p.Category)
		xlsx.SetCellValue("Products", fmt.Sprintf("D%d", row), p.Description)
		xlsx.SetCellValue("Products", fmt.Sprintf("E%d", row), p.Price)
		xlsx.SetCellValue("Products", fmt.Sprintf("F%d", row), p.Image)
	}

	xlsx.NewSheet("Categories")
	xlsx.SetCellValue("Categories", "A1", "Name")
	xlsx.SetCellValue("Categories", "B1", "FolderID")
	xlsx.SetCellValue("Categories", "C1", "Image")
	for i, cat := range s.catalog.CategoryObjects() {
		row := i + 2
		xlsx.SetCellValue("Categories", fmt.Sprintf("A%d", row), cat.Name)
		xlsx.SetCellValue("Categories", fmt.Sprintf("B%d", row), cat.ID)
		xlsx.SetCellValue("Categories", fmt.Sprintf("C%d", row), cat.Image)
	}

	c.Response().Header().Set(echo.HeaderContentType,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="catalog.xlsx"`)
	c.Response().WriteHeader(http.StatusOK)
	return xlsx.Write(c.Response())
}
