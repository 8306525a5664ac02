package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"dance-house/internal/dto"
	"dance-house/internal/service"
	"dance-house/pkg/response"
)

// MembershipHandler 会员卡模块 HTTP 处理器
type MembershipHandler struct {
	membershipSvc service.MembershipService
}

// NewMembershipHandler 创建 MembershipHandler
func NewMembershipHandler(membershipSvc service.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipSvc: membershipSvc}
}

// Create 后台手动开卡
// POST /api/v1/memberships
func (h *MembershipHandler) Create(c *gin.Context) {
	var req dto.CreateMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	ms, err := h.membershipSvc.CreateManual(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleMembershipError(c, err)
		return
	}

	response.Created(c, ms)
}

// Get 会员卡详情
// GET /api/v1/memberships/:id
func (h *MembershipHandler) Get(c *gin.Context) {
	ms, err := h.membershipSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleMembershipError(c, err)
		return
	}

	response.OK(c, ms)
}

// List 会员卡列表
// GET /api/v1/memberships?student_id=xxx&status=Active
func (h *MembershipHandler) List(c *gin.Context) {
	var req dto.MembershipListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.membershipSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleMembershipError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Update 调整状态或到期日
// PUT /api/v1/memberships/:id
func (h *MembershipHandler) Update(c *gin.Context) {
	var req dto.UpdateMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	ms, err := h.membershipSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleMembershipError(c, err)
		return
	}

	response.OK(c, ms)
}

// Deduct 手动扣减一节课时
// POST /api/v1/memberships/:id/deduct
func (h *MembershipHandler) Deduct(c *gin.Context) {
	result, err := h.membershipSvc.Deduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleMembershipError(c, err)
		return
	}

	response.OK(c, result)
}

// Credit 手动返还一节课时
// POST /api/v1/memberships/:id/credit
func (h *MembershipHandler) Credit(c *gin.Context) {
	result, err := h.membershipSvc.Credit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleMembershipError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *MembershipHandler) handleMembershipError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMembershipNotFound):
		response.NotFound(c, 24001, "会员卡不存在")
	case errors.Is(err, service.ErrInsufficientSessions):
		response.Unprocessable(c, 24002, "剩余课时不足")
	case errors.Is(err, service.ErrSessionsAtCapacity):
		response.Unprocessable(c, 24003, "剩余课时已达总课时，无法返还")
	case errors.Is(err, service.ErrPackageRequired):
		response.BadRequest(c, 24004, "请指定套餐")
	case errors.Is(err, service.ErrInvalidEndDate):
		response.BadRequest(c, 24005, "到期日不能早于开始日期")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 24006, "日期格式错误，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 21001, "学员不存在")
	case errors.Is(err, service.ErrPackageNotFound):
		response.NotFound(c, 22001, "套餐不存在")
	case errors.Is(err, service.ErrPackageUnresolved):
		response.Unprocessable(c, 22004, "无法确定套餐")
	default:
		response.InternalError(c)
	}
}
