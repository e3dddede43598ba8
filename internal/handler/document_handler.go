package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dept-records-api/internal/dto"
	"github.com/noah-isme/dept-records-api/internal/models"
	"github.com/noah-isme/dept-records-api/internal/service"
	appErrors "github.com/noah-isme/dept-records-api/pkg/errors"
	"github.com/noah-isme/dept-records-api/pkg/response"
)

// DocumentHandler exposes the archive register over HTTP.
type DocumentHandler struct {
	registry  *service.RegistryService
	maxUpload int64
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(registry *service.RegistryService, maxUpload int64) *DocumentHandler {
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	return &DocumentHandler{registry: registry, maxUpload: maxUpload}
}

// Create godoc
// @Summary Register a new archive document
// @Tags documents
// @Accept json
// @Produce json
// @Param request body dto.CreateDocumentRequest true "document"
// @Success 201 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	doc, err := h.registry.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// List godoc
// @Summary List archive documents
// @Tags documents
// @Produce json
// @Param category query string false "register category"
// @Param dateFrom query string false "inclusive lower bound (YYYY-MM-DD)"
// @Param dateTo query string false "inclusive upper bound (YYYY-MM-DD)"
// @Param keyword query string false "case-insensitive keyword"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	filter := dto.DocumentListFilter{
		Category: c.Query("category"),
		DateFrom: c.Query("dateFrom"),
		DateTo:   c.Query("dateTo"),
		Keyword:  c.Query("keyword"),
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "pageSize", 50),
	}
	docs, total, err := h.registry.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	if docs == nil {
		docs = []models.ArchiveDocument{}
	}
	response.JSON(c, http.StatusOK, docs, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Fetch one archive document
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Update godoc
// @Summary Update the mutable fields of a document
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "document id"
// @Param request body dto.UpdateDocumentRequest true "changes"
// @Success 200 {object} response.Envelope
// @Router /documents/{id} [patch]
func (h *DocumentHandler) Update(c *gin.Context) {
	var req dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	doc, err := h.registry.Update(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Delete godoc
// @Summary Delete a document (admin only)
// @Tags documents
// @Param id path string true "document id"
// @Success 204
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.registry.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Upload godoc
// @Summary Attach a scanned file to a document
// @Tags documents
// @Accept mpfd
// @Produce json
// @Param id path string true "document id"
// @Param file formData file true "artifact"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/file [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file field required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unreadable upload"))
		return
	}
	defer file.Close() //nolint:errcheck

	doc, err := h.registry.AttachFile(c.Request.Context(), actorFrom(c), c.Param("id"), fileHeader.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// DownloadURL godoc
// @Summary Issue a signed download token for the attached file
// @Tags documents
// @Produce json
// @Param id path string true "document id"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) DownloadURL(c *gin.Context) {
	resp, err := h.registry.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Download streams the artifact referenced by a signed token.
func (h *DocumentHandler) Download(c *gin.Context) {
	file, name, err := h.registry.OpenFile(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "artifact no longer available"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}
