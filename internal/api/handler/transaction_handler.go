package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dance-house/internal/dto"
	"dance-house/internal/service"
	"dance-house/pkg/payos"
	"dance-house/pkg/response"
)

// TransactionHandler 交易模块 HTTP 处理器（后台）
type TransactionHandler struct {
	transactionSvc service.TransactionService
	enrollmentSvc  service.EnrollmentService
}

// NewTransactionHandler 创建 TransactionHandler
func NewTransactionHandler(transactionSvc service.TransactionService, enrollmentSvc service.EnrollmentService) *TransactionHandler {
	return &TransactionHandler{transactionSvc: transactionSvc, enrollmentSvc: enrollmentSvc}
}

// List 交易列表
// GET /api/v1/transactions?status=pending
func (h *TransactionHandler) List(c *gin.Context) {
	var req dto.TransactionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.transactionSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleTransactionError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get 交易详情
// GET /api/v1/transactions/:id
func (h *TransactionHandler) Get(c *gin.Context) {
	txn, err := h.transactionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleTransactionError(c, err)
		return
	}

	response.OK(c, txn)
}

// Approve 审核通过：建档学员并签发会员卡
// POST /api/v1/transactions/:id/approve
func (h *TransactionHandler) Approve(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.enrollmentSvc.ApprovePayment(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		handleTransactionError(c, err)
		return
	}

	response.OK(c, result)
}

// Cancel 取消待处理交易
// POST /api/v1/transactions/:id/cancel
func (h *TransactionHandler) Cancel(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.enrollmentSvc.CancelPayment(c.Request.Context(), c.Param("id"), callerID); err != nil {
		handleTransactionError(c, err)
		return
	}

	response.OK(c, nil)
}

// ── 公开下单 ──

// CheckoutHandler 公开下单 HTTP 处理器
type CheckoutHandler struct {
	transactionSvc service.TransactionService
}

// NewCheckoutHandler 创建 CheckoutHandler
func NewCheckoutHandler(transactionSvc service.TransactionService) *CheckoutHandler {
	return &CheckoutHandler{transactionSvc: transactionSvc}
}

// Create 创建待支付订单
// POST /api/v1/public/checkout
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.transactionSvc.CreateCheckout(c.Request.Context(), &req)
	if err != nil {
		handleTransactionError(c, err)
		return
	}

	response.Created(c, result)
}

// Status 按订单号查询支付状态
// GET /api/v1/public/checkout/:order_code
func (h *CheckoutHandler) Status(c *gin.Context) {
	result, err := h.transactionSvc.GetCheckoutStatus(c.Request.Context(), c.Param("order_code"))
	if err != nil {
		handleTransactionError(c, err)
		return
	}

	response.OK(c, result)
}

// ── 支付网关回调 ──

// WebhookHandler 支付网关回调 HTTP 处理器
type WebhookHandler struct {
	enrollmentSvc service.EnrollmentService
}

// NewWebhookHandler 创建 WebhookHandler
func NewWebhookHandler(enrollmentSvc service.EnrollmentService) *WebhookHandler {
	return &WebhookHandler{enrollmentSvc: enrollmentSvc}
}

// PayOS 接收 PayOS 回调，签名按原始请求体校验
// POST /api/v1/webhooks/payos
func (h *WebhookHandler) PayOS(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		response.BadRequest(c, 10001, "读取请求体失败")
		return
	}

	ack, err := h.enrollmentSvc.HandleGatewayWebhook(c.Request.Context(), body)
	if err != nil {
		handleTransactionError(c, err)
		return
	}

	response.OK(c, ack)
}

// handleTransactionError 交易、下单、审核与回调共用的错误映射
func handleTransactionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTransactionNotFound):
		response.NotFound(c, 25001, "交易不存在")
	case errors.Is(err, service.ErrAlreadyProcessed):
		response.Conflict(c, 25002, "交易已处理，不能重复操作")
	case errors.Is(err, service.ErrPackageInactive):
		response.Unprocessable(c, 25003, "套餐已停售")
	case errors.Is(err, service.ErrGatewayNotConfigured):
		response.Error(c, http.StatusServiceUnavailable, 25004, "未配置支付网关")
	case errors.Is(err, service.ErrAmountMismatch):
		response.BadRequest(c, 25005, "回调金额与订单金额不一致")
	case errors.Is(err, payos.ErrInvalidSignature):
		response.Unauthorized(c, 25006, "回调签名无效")
	case errors.Is(err, payos.ErrInvalidPayload):
		response.BadRequest(c, 25007, "回调数据格式错误")
	case errors.Is(err, service.ErrPackageNotFound):
		response.NotFound(c, 22001, "套餐不存在")
	case errors.Is(err, service.ErrPackageUnresolved):
		response.Unprocessable(c, 22004, "无法确定套餐")
	case errors.Is(err, service.ErrPhoneRequired), errors.Is(err, service.ErrNameRequired):
		response.BadRequest(c, 21005, err.Error())
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 21001, "交易关联的学员不存在")
	default:
		response.InternalError(c)
	}
}
