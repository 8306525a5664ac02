package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"dance-house/internal/dto"
	"dance-house/internal/service"
	pkgerrors "dance-house/pkg/errors"
	"dance-house/pkg/response"
)

// ════════════════════════════════════════════════════════════
// PackageHandler 套餐
// ════════════════════════════════════════════════════════════

// PackageHandler 套餐模块 HTTP 处理器
type PackageHandler struct {
	packageSvc service.PackageService
}

// NewPackageHandler 创建 PackageHandler
func NewPackageHandler(packageSvc service.PackageService) *PackageHandler {
	return &PackageHandler{packageSvc: packageSvc}
}

// Create 新建套餐
// POST /api/v1/packages
func (h *PackageHandler) Create(c *gin.Context) {
	var req dto.CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	pkg, err := h.packageSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handlePackageError(c, err)
		return
	}

	response.Created(c, pkg)
}

// Get 套餐详情
// GET /api/v1/packages/:id
func (h *PackageHandler) Get(c *gin.Context) {
	pkg, err := h.packageSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handlePackageError(c, err)
		return
	}

	response.OK(c, pkg)
}

// List 套餐列表，公开接口只返回在售套餐
// GET /api/v1/packages?include_inactive=true
func (h *PackageHandler) List(c *gin.Context) {
	var req dto.PackageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	if _, authed := c.Get("user_id"); !authed {
		req.IncludeInactive = false
	}

	list, err := h.packageSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handlePackageError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Update 更新套餐（乐观锁）
// PUT /api/v1/packages/:id
func (h *PackageHandler) Update(c *gin.Context) {
	var req dto.UpdatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	pkg, err := h.packageSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handlePackageError(c, err)
		return
	}

	response.OK(c, pkg)
}

// Delete 删除套餐（软删除）
// DELETE /api/v1/packages/:id
func (h *PackageHandler) Delete(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.packageSvc.Delete(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handlePackageError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *PackageHandler) handlePackageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPackageNotFound):
		response.NotFound(c, 22001, "套餐不存在")
	case errors.Is(err, service.ErrNegativePrice):
		response.BadRequest(c, 22002, "价格不能为负数")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 22003, "数据已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}

// ════════════════════════════════════════════════════════════
// ClassHandler 课程
// ════════════════════════════════════════════════════════════

// ClassHandler 课程模块 HTTP 处理器
type ClassHandler struct {
	classSvc service.ClassService
}

// NewClassHandler 创建 ClassHandler
func NewClassHandler(classSvc service.ClassService) *ClassHandler {
	return &ClassHandler{classSvc: classSvc}
}

// Create 新建课程
// POST /api/v1/classes
func (h *ClassHandler) Create(c *gin.Context) {
	var req dto.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	class, err := h.classSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.Created(c, class)
}

// Get 课程详情
// GET /api/v1/classes/:id
func (h *ClassHandler) Get(c *gin.Context) {
	id, ok := parseClassID(c)
	if !ok {
		return
	}

	class, err := h.classSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, class)
}

// List 课程列表，公开接口只返回开课中的课程
// GET /api/v1/classes?include_inactive=true
func (h *ClassHandler) List(c *gin.Context) {
	var req dto.ClassListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	if _, authed := c.Get("user_id"); !authed {
		req.IncludeInactive = false
	}

	list, err := h.classSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// Update 更新课程
// PUT /api/v1/classes/:id
func (h *ClassHandler) Update(c *gin.Context) {
	id, ok := parseClassID(c)
	if !ok {
		return
	}

	var req dto.UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	class, err := h.classSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, class)
}

// Delete 删除课程
// DELETE /api/v1/classes/:id
func (h *ClassHandler) Delete(c *gin.Context) {
	id, ok := parseClassID(c)
	if !ok {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.classSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		h.handleClassError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *ClassHandler) handleClassError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClassNotFound):
		response.NotFound(c, 23001, "课程不存在")
	case errors.Is(err, service.ErrInvalidClassTime):
		response.BadRequest(c, 23002, "结束时间必须晚于开始时间")
	default:
		response.InternalError(c)
	}
}

// parseClassID 课程主键为自增整数
func parseClassID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, "课程ID无效")
		return 0, false
	}
	return id, true
}
