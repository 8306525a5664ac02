package dto

// ── 签到模块 DTO ──

// CheckInRequest 签到请求；MembershipID 缺省时自动选择最早到期的可用会员卡
type CheckInRequest struct {
	StudentID    string `json:"student_id"    binding:"required,uuid"`
	ClassID      int64  `json:"class_id"      binding:"required,min=1"`
	MembershipID string `json:"membership_id" binding:"omitempty,uuid"`
}

// CheckInResponse 签到结果
type CheckInResponse struct {
	AttendanceID      string `json:"attendance_id"`
	StudentID         string `json:"student_id"`
	ClassID           int64  `json:"class_id"`
	MembershipID      string `json:"membership_id"`
	Date              string `json:"date"`
	RemainingSessions int    `json:"remaining_sessions"`
}

// AttendanceListRequest 按课程与日期查询签到
type AttendanceListRequest struct {
	ClassID int64  `form:"class_id" binding:"required,min=1"`
	Date    string `form:"date"     binding:"omitempty,datetime=2006-01-02"` // 缺省为今天
}

// AttendanceResponse 签到记录
type AttendanceResponse struct {
	ID           string  `json:"id"`
	StudentID    string  `json:"student_id"`
	StudentName  string  `json:"student_name,omitempty"`
	ClassID      int64   `json:"class_id"`
	ClassName    string  `json:"class_name,omitempty"`
	MembershipID *string `json:"membership_id,omitempty"`
	Date         string  `json:"date"`
	Status       string  `json:"status"`
	CheckInTime  string  `json:"check_in_time"`
}

// RosterEntry 点名表中的一行：可签到的学员
type RosterEntry struct {
	StudentID         string  `json:"student_id"`
	FullName          string  `json:"full_name"`
	Phone             string  `json:"phone"`
	MembershipID      string  `json:"membership_id"`
	PackageName       string  `json:"package_name"`
	RemainingSessions int     `json:"remaining_sessions"`
	EndDate           string  `json:"end_date"`
	Attended          bool    `json:"attended"`
	AttendanceID      *string `json:"attendance_id,omitempty"`
}

// RosterResponse 某课程某天的点名表
type RosterResponse struct {
	Class   ClassResponse `json:"class"`
	Date    string        `json:"date"`
	Entries []RosterEntry `json:"entries"`
}
