package dto

// ── 舞蹈课程模块 DTO ──

// CreateClassRequest 创建课程请求
type CreateClassRequest struct {
	Name       string  `json:"name"        binding:"required,max=100"`
	Instructor *string `json:"instructor"  binding:"omitempty,max=100"`
	Level      *string `json:"level"       binding:"omitempty,max=50"`
	DayOfWeek  *int    `json:"day_of_week" binding:"required,min=0,max=6"`
	StartTime  string  `json:"start_time"  binding:"required,datetime=15:04"`
	EndTime    string  `json:"end_time"    binding:"required,datetime=15:04"`
	Capacity   int     `json:"capacity"    binding:"omitempty,min=1,max=500"`
}

// UpdateClassRequest 更新课程请求
type UpdateClassRequest struct {
	Name       *string `json:"name"        binding:"omitempty,max=100"`
	Instructor *string `json:"instructor"  binding:"omitempty,max=100"`
	Level      *string `json:"level"       binding:"omitempty,max=50"`
	DayOfWeek  *int    `json:"day_of_week" binding:"omitempty,min=0,max=6"`
	StartTime  *string `json:"start_time"  binding:"omitempty,datetime=15:04"`
	EndTime    *string `json:"end_time"    binding:"omitempty,datetime=15:04"`
	Capacity   *int    `json:"capacity"    binding:"omitempty,min=1,max=500"`
	IsActive   *bool   `json:"is_active"`
}

// ClassListRequest 课程列表查询参数
type ClassListRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}

// ClassResponse 课程信息
type ClassResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Instructor *string `json:"instructor,omitempty"`
	Level      *string `json:"level,omitempty"`
	DayOfWeek  int     `json:"day_of_week"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	Capacity   int     `json:"capacity"`
	IsActive   bool    `json:"is_active"`
}
