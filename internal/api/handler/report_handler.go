package handler

import (
	"github.com/gin-gonic/gin"

	"dance-house/internal/dto"
	"dance-house/internal/service"
	"dance-house/pkg/response"
)

// ReportHandler 报表模块 HTTP 处理器
type ReportHandler struct {
	reportSvc service.ReportService
}

// NewReportHandler 创建 ReportHandler
func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// ListExpiring 即将到期的会员卡
// GET /api/v1/reports/expiring-memberships?within_days=7
func (h *ReportHandler) ListExpiring(c *gin.Context) {
	var req dto.ExpiringListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.reportSvc.ListExpiring(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// MonthlyRevenue 月度收入
// GET /api/v1/reports/revenue?months=12
func (h *ReportHandler) MonthlyRevenue(c *gin.Context) {
	var req dto.RevenueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	report, err := h.reportSvc.MonthlyRevenue(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, report)
}
