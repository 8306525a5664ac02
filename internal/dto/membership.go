package dto

// ── 会员卡模块 DTO ──

// CreateMembershipRequest 后台手动开卡
// PackageID 与 PackageName 二选一；StartDate 缺省为今天
type CreateMembershipRequest struct {
	StudentID   string `json:"student_id"   binding:"required,uuid"`
	PackageID   string `json:"package_id"   binding:"omitempty,uuid"`
	PackageName string `json:"package_name" binding:"omitempty,max=100"`
	StartDate   string `json:"start_date"   binding:"omitempty,datetime=2006-01-02"`
}

// UpdateMembershipRequest 调整会员卡状态或到期日
type UpdateMembershipRequest struct {
	Status  *string `json:"status"   binding:"omitempty,oneof=Active Expired Suspended"`
	EndDate *string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

// MembershipListRequest 会员卡列表查询参数
type MembershipListRequest struct {
	PaginationRequest
	StudentID string `form:"student_id" binding:"omitempty,uuid"`
	Status    string `form:"status"     binding:"omitempty,oneof=Active Expired Suspended"`
	Keyword   string `form:"keyword"    binding:"omitempty,max=50"`
}

// MembershipResponse 会员卡信息
// Status 为读取时计算的有效状态，StoredStatus 为数据库中记录的状态
type MembershipResponse struct {
	ID                string  `json:"id"`
	StudentID         string  `json:"student_id"`
	StudentName       string  `json:"student_name,omitempty"`
	TransactionID     *string `json:"transaction_id,omitempty"`
	PackageName       string  `json:"package_name"`
	TotalSessions     int     `json:"total_sessions"`
	RemainingSessions int     `json:"remaining_sessions"`
	StartDate         string  `json:"start_date"`
	EndDate           string  `json:"end_date"`
	Status            string  `json:"status"`
	StoredStatus      string  `json:"stored_status"`
	CreatedAt         string  `json:"created_at"`
}

// LedgerResponse 扣课 / 返还课时结果
type LedgerResponse struct {
	MembershipID      string `json:"membership_id"`
	RemainingSessions int    `json:"remaining_sessions"`
	TotalSessions     int    `json:"total_sessions"`
}
