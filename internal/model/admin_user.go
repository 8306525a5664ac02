package model

// AdminUser 后台操作员，对应 admin_users
type AdminUser struct {
	AdminUserID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"admin_user_id"`
	Username     string `gorm:"type:varchar(50);not null"                      json:"username"`
	FullName     string `gorm:"type:varchar(100);not null"                     json:"full_name"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'staff'"      json:"role"`
	SoftDeleteModel
}

// TableName 指定表名
func (AdminUser) TableName() string { return "admin_users" }
