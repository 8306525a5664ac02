package model

import "github.com/shopspring/decimal"

// Package 课程套餐（目录定义），对应 packages
// 已签发的会员卡保存套餐快照，修改套餐不会影响已有会员卡
type Package struct {
	PackageID     string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"package_id"`
	Name          string          `gorm:"type:varchar(100);not null"                     json:"name"`
	Description   *string         `gorm:"type:text"                                      json:"description,omitempty"`
	TotalSessions int             `gorm:"not null"                                       json:"total_sessions"`
	DurationDays  *int            `json:"duration_days,omitempty"` // nil 表示不限期
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"          json:"price"`
	IsActive      bool            `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Package) TableName() string { return "packages" }
