package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dept-records-api/internal/dto"
	"github.com/noah-isme/dept-records-api/internal/service"
	"github.com/noah-isme/dept-records-api/pkg/response"
)

// ExportHandler streams register and roster exports.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Register godoc
// @Summary Export the archive register as CSV or PDF
// @Tags exports
// @Produce octet-stream
// @Param category query string false "register category"
// @Param dateFrom query string false "inclusive lower bound"
// @Param dateTo query string false "inclusive upper bound"
// @Param format query string false "csv (default) or pdf"
// @Success 200
// @Router /exports/register [get]
func (h *ExportHandler) Register(c *gin.Context) {
	filter := dto.DocumentListFilter{
		Category: c.Query("category"),
		DateFrom: c.Query("dateFrom"),
		DateTo:   c.Query("dateTo"),
		Keyword:  c.Query("keyword"),
	}
	file, err := h.exports.ExportRegister(c.Request.Context(), filter, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// Roster godoc
// @Summary Export the postgraduate roster as CSV or PDF
// @Tags exports
// @Produce octet-stream
// @Param asOf query string false "reference day for alert flags"
// @Param format query string false "csv (default) or pdf"
// @Success 200
// @Router /exports/postgraduates [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	today, err := todayFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.ExportRoster(c.Request.Context(), today, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
