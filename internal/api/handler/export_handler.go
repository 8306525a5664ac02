package handler

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"dance-house/internal/dto"
	"dance-house/internal/service"
	"dance-house/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportTransactions 导出交易流水
// GET /api/v1/export/transactions?from=2024-01-01&to=2024-01-31
func (h *ExportHandler) ExportTransactions(c *gin.Context) {
	var req dto.ExportRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportTransactions(c.Request.Context(), &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeXLSX(c, buf, filename)
}

// ExportAttendance 导出签到记录
// GET /api/v1/export/attendance?from=2024-01-01&to=2024-01-31
func (h *ExportHandler) ExportAttendance(c *gin.Context) {
	var req dto.ExportRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportAttendance(c.Request.Context(), &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeXLSX(c, buf, filename)
}

// ExportRevenue 导出月度收入
// GET /api/v1/export/revenue?months=12
func (h *ExportHandler) ExportRevenue(c *gin.Context) {
	var req dto.RevenueRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.exportSvc.ExportRevenue(c.Request.Context(), &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeXLSX(c, buf, filename)
}

func writeXLSX(c *gin.Context, buf *bytes.Buffer, filename string) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportInvalidRange):
		response.BadRequest(c, 27001, "结束日期不能早于开始日期")
	case errors.Is(err, service.ErrExportRangeTooLong):
		response.BadRequest(c, 27002, "导出区间不能超过 366 天")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 27003, "日期格式错误，应为 YYYY-MM-DD")
	default:
		response.InternalError(c)
	}
}
