package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"dance-house/internal/dto"
	"dance-house/internal/service"
	"dance-house/pkg/response"
)

// AttendanceHandler 签到模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc}
}

// CheckIn 签到并扣减一节课时
// POST /api/v1/attendance/check-in
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.attendanceSvc.CheckIn(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.Created(c, result)
}

// Cancel 撤销签到并返还课时
// POST /api/v1/attendance/:id/cancel
func (h *AttendanceHandler) Cancel(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.attendanceSvc.CancelCheckIn(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, nil)
}

// List 某课程某天的签到记录
// GET /api/v1/attendance?class_id=1&date=2024-01-02
func (h *AttendanceHandler) List(c *gin.Context) {
	var req dto.AttendanceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, err := h.attendanceSvc.ListByClassAndDate(c.Request.Context(), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Roster 点名表
// GET /api/v1/attendance/roster?class_id=1&date=2024-01-02
func (h *AttendanceHandler) Roster(c *gin.Context) {
	var req dto.AttendanceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	roster, err := h.attendanceSvc.Roster(c.Request.Context(), &req)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OK(c, roster)
}

// ListByStudent 学员签到历史
// GET /api/v1/students/:id/attendance
func (h *AttendanceHandler) ListByStudent(c *gin.Context) {
	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.attendanceSvc.ListByStudent(c.Request.Context(), c.Param("id"), &page)
	if err != nil {
		h.handleAttendanceError(c, err)
		return
	}

	response.OKPage(c, list, total, page.GetPage(), page.GetPageSize())
}

func (h *AttendanceHandler) handleAttendanceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicateAttendance):
		response.Conflict(c, 26001, "该学员今天已签到此课程")
	case errors.Is(err, service.ErrAttendanceNotFound):
		response.NotFound(c, 26002, "签到记录不存在")
	case errors.Is(err, service.ErrAttendanceNotPresent):
		response.Conflict(c, 26003, "签到记录已取消")
	case errors.Is(err, service.ErrMembershipInactive):
		response.Unprocessable(c, 26004, "会员卡未激活或已过期")
	case errors.Is(err, service.ErrMembershipNotOwned):
		response.Unprocessable(c, 26005, "会员卡不属于该学员")
	case errors.Is(err, service.ErrNoUsableMembership):
		response.Unprocessable(c, 26006, "学员没有可用的会员卡")
	case errors.Is(err, service.ErrInsufficientSessions):
		response.Unprocessable(c, 24002, "剩余课时不足")
	case errors.Is(err, service.ErrSessionsAtCapacity):
		response.Unprocessable(c, 24003, "剩余课时已达总课时，无法返还")
	case errors.Is(err, service.ErrMembershipNotFound):
		response.NotFound(c, 24001, "会员卡不存在")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 21001, "学员不存在")
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 23001, "课程不存在")
	case errors.Is(err, service.ErrClassInactive):
		response.Unprocessable(c, 23003, "课程已停开")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 26007, "日期格式错误，应为 YYYY-MM-DD")
	default:
		response.InternalError(c)
	}
}
