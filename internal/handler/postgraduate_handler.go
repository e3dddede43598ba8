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

// PostgraduateHandler exposes the researcher roster and portfolios.
type PostgraduateHandler struct {
	tracker   *service.TrackerService
	crossref  *service.CrossRefService
	maxUpload int64
}

// NewPostgraduateHandler constructs the handler.
func NewPostgraduateHandler(tracker *service.TrackerService, crossref *service.CrossRefService, maxUpload int64) *PostgraduateHandler {
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	return &PostgraduateHandler{tracker: tracker, crossref: crossref, maxUpload: maxUpload}
}

// Create godoc
// @Summary Register a postgraduate researcher
// @Tags students
// @Accept json
// @Produce json
// @Param request body dto.CreateStudentRequest true "student"
// @Success 201 {object} response.Envelope
// @Router /students [post]
func (h *PostgraduateHandler) Create(c *gin.Context) {
	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	student, err := h.tracker.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// List godoc
// @Summary List researchers with derived alert flags
// @Tags students
// @Produce json
// @Param degree query string false "MSC or PHD"
// @Param status query string false "lifecycle status"
// @Param search query string false "name/topic/supervisor search"
// @Param asOf query string false "reference day for alerts (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *PostgraduateHandler) List(c *gin.Context) {
	today, err := todayFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := dto.StudentListFilter{
		Degree:   c.Query("degree"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "pageSize", 20),
	}
	students, total, err := h.tracker.List(c.Request.Context(), filter, today)
	if err != nil {
		response.Error(c, err)
		return
	}
	if students == nil {
		students = []models.Postgraduate{}
	}
	response.JSON(c, http.StatusOK, students, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Fetch one researcher with derived alert flags
// @Tags students
// @Produce json
// @Param id path string true "student id"
// @Param asOf query string false "reference day for alerts (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *PostgraduateHandler) Get(c *gin.Context) {
	today, err := todayFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.tracker.Get(c.Request.Context(), c.Param("id"), today)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// UpdateDates godoc
// @Summary Set one lifecycle date (lastReport derives nextReportDue)
// @Tags students
// @Accept json
// @Produce json
// @Param id path string true "student id"
// @Param request body dto.UpdateDatesRequest true "field and value"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/dates [patch]
func (h *PostgraduateHandler) UpdateDates(c *gin.Context) {
	today, err := todayFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	student, err := h.tracker.UpdateDates(c.Request.Context(), actorFrom(c), c.Param("id"), req, today)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// UpdateStatus godoc
// @Summary Move a researcher through the lifecycle
// @Tags students
// @Accept json
// @Produce json
// @Param id path string true "student id"
// @Param request body dto.UpdateStatusRequest true "target status"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/status [patch]
func (h *PostgraduateHandler) UpdateStatus(c *gin.Context) {
	today, err := todayFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	student, err := h.tracker.UpdateStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req, today)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// GetPortfolio godoc
// @Summary Fetch a researcher's digital portfolio
// @Tags students
// @Produce json
// @Param id path string true "student id"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/portfolio [get]
func (h *PostgraduateHandler) GetPortfolio(c *gin.Context) {
	portfolio, err := h.tracker.GetPortfolio(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, portfolio, nil)
}

// UpdatePortfolio godoc
// @Summary Add or remove published papers
// @Tags students
// @Accept json
// @Produce json
// @Param id path string true "student id"
// @Param request body dto.UpdatePortfolioRequest true "changes"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/portfolio [patch]
func (h *PostgraduateHandler) UpdatePortfolio(c *gin.Context) {
	var req dto.UpdatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	portfolio, err := h.tracker.UpdatePortfolio(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, portfolio, nil)
}

// LinkArchive godoc
// @Summary Cite an archive document in the portfolio
// @Tags students
// @Accept json
// @Produce json
// @Param id path string true "student id"
// @Param request body dto.LinkArchiveRequest true "link"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/portfolio/archive-links [post]
func (h *PostgraduateHandler) LinkArchive(c *gin.Context) {
	var req dto.LinkArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	doc, err := h.tracker.LinkArchive(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// UploadPortfolioDoc godoc
// @Summary Upload a portfolio artifact
// @Tags students
// @Accept mpfd
// @Produce json
// @Param id path string true "student id"
// @Param title formData string true "document title"
// @Param file formData file true "artifact"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/portfolio/files [post]
func (h *PostgraduateHandler) UploadPortfolioDoc(c *gin.Context) {
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

	doc, err := h.tracker.UploadPortfolioDoc(c.Request.Context(), actorFrom(c), c.Param("id"), c.PostForm("title"), fileHeader.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// RemovePortfolioDoc godoc
// @Summary Detach a portfolio entry
// @Tags students
// @Param id path string true "student id"
// @Param docId path string true "portfolio entry id"
// @Success 204
// @Router /students/{id}/portfolio/entries/{docId} [delete]
func (h *PostgraduateHandler) RemovePortfolioDoc(c *gin.Context) {
	if err := h.tracker.RemovePortfolioDoc(c.Request.Context(), actorFrom(c), c.Param("id"), c.Param("docId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ResolvePortfolioDoc godoc
// @Summary Resolve a portfolio entry to its target
// @Description An archive citation resolves to the live register entry; an upload resolves to a signed download token.
// @Tags students
// @Produce json
// @Param id path string true "student id"
// @Param docId path string true "portfolio entry id"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/portfolio/entries/{docId}/resolve [get]
func (h *PostgraduateHandler) ResolvePortfolioDoc(c *gin.Context) {
	resolved, err := h.crossref.Resolve(c.Request.Context(), c.Param("id"), c.Param("docId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resolved, nil)
}

// UploadArtifact godoc
// @Summary Upload the seminar protocol or language certificate
// @Tags students
// @Accept mpfd
// @Produce json
// @Param id path string true "student id"
// @Param kind path string true "protocol or toefl"
// @Param file formData file true "artifact"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/artifacts/{kind} [post]
func (h *PostgraduateHandler) UploadArtifact(c *gin.Context) {
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

	student, err := h.tracker.UploadArtifact(c.Request.Context(), actorFrom(c), c.Param("id"), c.Param("kind"), fileHeader.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
