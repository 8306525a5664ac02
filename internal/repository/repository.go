package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	AdminUser   AdminUserRepository
	Student     StudentRepository
	Package     PackageRepository
	Membership  MembershipRepository
	Transaction TransactionRepository
	Attendance  AttendanceRepository
	DanceClass  DanceClassRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:          db,
		AdminUser:   NewAdminUserRepo(db),
		Student:     NewStudentRepo(db),
		Package:     NewPackageRepo(db),
		Membership:  NewMembershipRepo(db),
		Transaction: NewTransactionRepo(db),
		Attendance:  NewAttendanceRepo(db),
		DanceClass:  NewDanceClassRepo(db),
	}
}

// BeginTx 开启数据库事务
// 未注入 *gorm.DB（单元测试中使用 mock 仓储）时返回 nil，调用方按无事务处理
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// ListFilters 通用列表筛选条件
type ListFilters struct {
	Keyword   string
	Status    string
	StudentID string
}
