package model

import "time"

// Membership 会员卡（可消耗课时 + 有效期），对应 memberships
// 不变量：0 <= RemainingSessions <= TotalSessions，由数据库 CHECK 约束兜底
type Membership struct {
	MembershipID      string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"membership_id"`
	StudentID         string    `gorm:"type:uuid;not null"                             json:"student_id"`
	TransactionID     *string   `gorm:"type:uuid"                                      json:"transaction_id,omitempty"`
	PackageName       string    `gorm:"type:varchar(100);not null"                     json:"package_name"`
	TotalSessions     int       `gorm:"not null"                                       json:"total_sessions"`
	RemainingSessions int       `gorm:"not null"                                       json:"remaining_sessions"`
	StartDate         time.Time `gorm:"not null"                                       json:"start_date"`
	EndDate           time.Time `gorm:"not null"                                       json:"end_date"`
	Status            string    `gorm:"type:varchar(20);not null;default:'Active'"     json:"status"`
	BaseModel

	// 关联
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
}

// TableName 指定表名
func (Membership) TableName() string { return "memberships" }

// EffectiveStatus 读取时计算的状态：Active 但已过期或课时用尽视为 Expired
func (m *Membership) EffectiveStatus(now time.Time) string {
	if m.Status != MembershipStatusActive {
		return m.Status
	}
	if m.Lapsed(now) || m.RemainingSessions <= 0 {
		return MembershipStatusExpired
	}
	return MembershipStatusActive
}

// Usable 是否可用于签到扣课
func (m *Membership) Usable(now time.Time) bool {
	return m.EffectiveStatus(now) == MembershipStatusActive
}

// Lapsed 到期日当天仍可使用，次日零点起过期
func (m *Membership) Lapsed(now time.Time) bool {
	return !now.Before(m.EndDate.AddDate(0, 0, 1))
}

// EndDateCutoff 查询条件 end_date > cutoff 等价于 !Lapsed(now)
func EndDateCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -1)
}
