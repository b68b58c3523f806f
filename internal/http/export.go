package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
)

// exportProducts writes the catalog as an xlsx workbook.
func (h *Handler) exportProducts(c *gin.Context) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create sheet"})
		return
	}

	headerRow := sheet.AddRow()
	for _, title := range []string{"ID", "Name", "Price", "Barcode"} {
		headerRow.AddCell().SetValue(title)
	}

	for _, p := range h.store.Products() {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.Price.StringFixed(2))
		row.AddCell().SetValue(p.Barcode)
	}

	c.Header("Content-Disposition", "attachment; filename=products.xlsx")
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := file.Write(c.Writer); err != nil {
		h.logger.WithError(err).Error("write products workbook")
	}
}
