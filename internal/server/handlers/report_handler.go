package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/stockroom/internal/domain/models"
	"github.com/mamadbah2/stockroom/internal/service/insights"
	"github.com/mamadbah2/stockroom/internal/service/inventory"
	"github.com/mamadbah2/stockroom/internal/service/reporting"
)

// ReportHandler exposes the dashboard, reports and insights.
type ReportHandler struct {
	reporting *reporting.Service
	insights  *insights.Service
	inventory *inventory.Service
	logger    *zap.Logger
}

// NewReportHandler constructs the HTTP handler adapter.
func NewReportHandler(rep *reporting.Service, ins *insights.Service, inv *inventory.Service, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reporting: rep, insights: ins, inventory: inv, logger: logger}
}

// Dashboard returns the home screen figures.
func (h *ReportHandler) Dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.reporting.Dashboard())
}

// Report returns category shares, valuation and trend.
func (h *ReportHandler) Report(c *gin.Context) {
	c.JSON(http.StatusOK, h.reporting.Report(c.Request.Context()))
}

// Insights returns three recommendations. It never fails.
func (h *ReportHandler) Insights(c *gin.Context) {
	products := h.inventory.Products(models.ProductFilter{})
	c.JSON(http.StatusOK, gin.H{"insights": h.insights.Insights(c.Request.Context(), products)})
}

// CaptureSnapshot records a snapshot now instead of waiting for the job.
func (h *ReportHandler) CaptureSnapshot(c *gin.Context) {
	snapshot, err := h.reporting.CaptureSnapshot(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if snapshot == nil {
		respondError(c, h.logger, inventory.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusCreated, snapshot)
}
