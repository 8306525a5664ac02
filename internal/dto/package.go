package dto

import "github.com/shopspring/decimal"

// ── 课程套餐模块 DTO ──

// CreatePackageRequest 创建套餐请求
type CreatePackageRequest struct {
	Name          string          `json:"name"           binding:"required,max=100"`
	Description   *string         `json:"description"`
	TotalSessions int             `json:"total_sessions" binding:"required,min=1"`
	DurationDays  *int            `json:"duration_days"  binding:"omitempty,min=1"` // 不传表示不限期
	Price         decimal.Decimal `json:"price"`
	IsActive      *bool           `json:"is_active"`
}

// UpdatePackageRequest 更新套餐请求（乐观锁）
// ClearDuration=true 时改为不限期
type UpdatePackageRequest struct {
	Name          *string          `json:"name"           binding:"omitempty,max=100"`
	Description   *string          `json:"description"`
	TotalSessions *int             `json:"total_sessions" binding:"omitempty,min=1"`
	DurationDays  *int             `json:"duration_days"  binding:"omitempty,min=1"`
	ClearDuration bool             `json:"clear_duration"`
	Price         *decimal.Decimal `json:"price"`
	IsActive      *bool            `json:"is_active"`
	Version       int              `json:"version"        binding:"required,min=1"`
}

// PackageListRequest 套餐列表查询参数
type PackageListRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}

// PackageResponse 套餐信息
type PackageResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   *string         `json:"description,omitempty"`
	TotalSessions int             `json:"total_sessions"`
	DurationDays  *int            `json:"duration_days"`
	Price         decimal.Decimal `json:"price"`
	IsActive      bool            `json:"is_active"`
	Version       int             `json:"version"`
}
