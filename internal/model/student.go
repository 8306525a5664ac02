package model

import "time"

// Student 学员，对应 students
// Phone 是查找学员的业务主键（未删除记录中唯一）
type Student struct {
	StudentID        string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	FullName         string     `gorm:"type:varchar(100);not null"                     json:"full_name"`
	Phone            string     `gorm:"type:varchar(20);not null"                      json:"phone"`
	Email            *string    `gorm:"type:varchar(255)"                              json:"email,omitempty"`
	Status           string     `gorm:"type:varchar(20);not null;default:'Active'"     json:"status"`
	JoinDate         time.Time  `gorm:"not null"                                       json:"join_date"`
	Birthdate        *time.Time `gorm:"type:date"                                      json:"birthdate,omitempty"`
	Gender           *string    `gorm:"type:varchar(20)"                               json:"gender,omitempty"`
	Level            *string    `gorm:"type:varchar(50)"                               json:"level,omitempty"`
	ParentName       *string    `gorm:"type:varchar(100)"                              json:"parent_name,omitempty"`
	EmergencyContact *string    `gorm:"type:varchar(50)"                               json:"emergency_contact,omitempty"`
	MedicalNote      *string    `gorm:"type:text"                                      json:"medical_note,omitempty"`
	VersionedModel

	// 关联
	Memberships []Membership `gorm:"foreignKey:StudentID;references:StudentID" json:"memberships,omitempty"`
}

// TableName 指定表名
func (Student) TableName() string { return "students" }
