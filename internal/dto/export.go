package dto

// ── 导出模块 DTO ──

// ExportRangeRequest 导出时间区间（含首尾日期）
type ExportRangeRequest struct {
	From   string `form:"from"   binding:"required,datetime=2006-01-02"`
	To     string `form:"to"     binding:"required,datetime=2006-01-02"`
	Status string `form:"status" binding:"omitempty,oneof=pending completed cancelled"`
}
