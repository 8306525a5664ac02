package dto

import "github.com/shopspring/decimal"

// ── 报表模块 DTO ──

// ExpiringListRequest 即将到期会员卡查询；WithinDays 缺省为 7
type ExpiringListRequest struct {
	WithinDays int `form:"within_days" binding:"omitempty,min=1,max=90"`
}

// ExpiringMembershipResponse 即将到期的会员卡及续费提醒链接
type ExpiringMembershipResponse struct {
	MembershipID      string `json:"membership_id"`
	StudentID         string `json:"student_id"`
	StudentName       string `json:"student_name"`
	Phone             string `json:"phone"`
	PackageName       string `json:"package_name"`
	EndDate           string `json:"end_date"`
	DaysLeft          int    `json:"days_left"`
	RemainingSessions int    `json:"remaining_sessions"`
	ReminderLink      string `json:"reminder_link"`
}

// RevenueRequest 月度收入查询；Months 缺省为 12，含当月
type RevenueRequest struct {
	Months int `form:"months" binding:"omitempty,min=1,max=36"`
}

// MonthlyRevenueItem 单月收入
type MonthlyRevenueItem struct {
	Year             int             `json:"year"`
	Month            int             `json:"month"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TransactionCount int64           `json:"transaction_count"`
}

// RevenueReportResponse 月度收入报表，Months 按时间正序
type RevenueReportResponse struct {
	Months           []MonthlyRevenueItem `json:"months"`
	TotalRevenue     decimal.Decimal      `json:"total_revenue"`
	TransactionCount int64                `json:"transaction_count"`
}
