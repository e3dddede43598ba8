package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dept-records-api/internal/service"
	"github.com/noah-isme/dept-records-api/pkg/response"
)

// DashboardHandler exposes aggregated alert counts.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// AlertCounts godoc
// @Summary Count alert flags across the roster
// @Tags dashboard
// @Produce json
// @Param asOf query string false "reference day (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/alerts [get]
func (h *DashboardHandler) AlertCounts(c *gin.Context) {
	today, err := todayFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	counts, err := h.dashboard.AlertCounts(c.Request.Context(), today)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}
