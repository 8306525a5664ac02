package model

// DanceClass 舞蹈课程（每周固定时段），对应 dance_classes
type DanceClass struct {
	ClassID    int64   `gorm:"primaryKey;autoIncrement"  json:"class_id"`
	Name       string  `gorm:"type:varchar(100);not null" json:"name"`
	Instructor *string `gorm:"type:varchar(100)"          json:"instructor,omitempty"`
	Level      *string `gorm:"type:varchar(50)"           json:"level,omitempty"`
	DayOfWeek  int     `gorm:"type:smallint;not null"     json:"day_of_week"` // 0=周日
	StartTime  string  `gorm:"type:varchar(5);not null"   json:"start_time"`  // "18:30"
	EndTime    string  `gorm:"type:varchar(5);not null"   json:"end_time"`
	Capacity   int     `gorm:"not null;default:20"        json:"capacity"`
	IsActive   bool    `gorm:"not null;default:true"      json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (DanceClass) TableName() string { return "dance_classes" }
