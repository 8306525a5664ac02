package model

import "time"

// Attendance 签到记录，对应 attendance
// (student_id, class_id, date) 至多一条 Present，由部分唯一索引保证
type Attendance struct {
	AttendanceID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_id"`
	StudentID    string    `gorm:"type:uuid;not null"                             json:"student_id"`
	ClassID      int64     `gorm:"not null"                                       json:"class_id"`
	MembershipID *string   `gorm:"type:uuid"                                      json:"membership_id,omitempty"`
	Date         time.Time `gorm:"type:date;not null"                             json:"date"`
	Status       string    `gorm:"type:varchar(20);not null;default:'Present'"    json:"status"`
	CheckInTime  time.Time `gorm:"not null"                                       json:"check_in_time"`
	BaseModel

	// 关联
	Student *Student    `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
	Class   *DanceClass `gorm:"foreignKey:ClassID;references:ClassID"     json:"class,omitempty"`
}

// TableName 指定表名（单数，与历史库保持一致）
func (Attendance) TableName() string { return "attendance" }
