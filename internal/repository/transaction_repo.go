package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"dance-house/internal/model"
	pkgerrors "dance-house/pkg/errors"
)

// TransactionRepository 支付交易数据访问接口
type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) error
	GetByID(ctx context.Context, id string) (*model.Transaction, error)
	GetByOrderCode(ctx context.Context, orderCode string) (*model.Transaction, error)
	List(ctx context.Context, filters *ListFilters, offset, limit int) ([]model.Transaction, int64, error)
	// ListForExport 按创建时间区间导出，to 为开区间
	ListForExport(ctx context.Context, from, to time.Time, status string) ([]model.Transaction, error)
	// TransitionStatus 条件状态迁移：仅当当前状态为 from 时更新为 to
	// 未命中（已被处理或不存在）返回 ErrConditionNotMet
	TransitionStatus(ctx context.Context, id, from, to, processedBy string, at time.Time) error
	// SetStudent 回写交易关联的学员
	SetStudent(ctx context.Context, id, studentID string) error
	// MonthlyRevenue 按 loc 时区的自然月汇总 [from, to) 内完成的交易，按年月升序
	// 完成时间取 processed_at，缺失时退回 created_at
	MonthlyRevenue(ctx context.Context, from, to time.Time, loc *time.Location) ([]MonthlyRevenueRow, error)
}

// MonthlyRevenueRow 单个自然月的收入汇总
type MonthlyRevenueRow struct {
	Year             int
	Month            int
	TotalRevenue     decimal.Decimal
	TransactionCount int64
}

type transactionRepo struct {
	db *gorm.DB
}

// NewTransactionRepo 创建 TransactionRepository 实例
func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Create(ctx context.Context, txn *model.Transaction) error {
	err := r.db.WithContext(ctx).Create(txn).Error
	if pkgerrors.IsUniqueViolation(err) {
		return pkgerrors.ErrDuplicateKey
	}
	return err
}

func (r *transactionRepo) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", id).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepo) GetByOrderCode(ctx context.Context, orderCode string) (*model.Transaction, error) {
	var txn model.Transaction
	err := r.db.WithContext(ctx).
		Where("order_code = ?", orderCode).
		First(&txn).Error
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *transactionRepo) List(ctx context.Context, filters *ListFilters, offset, limit int) ([]model.Transaction, int64, error) {
	var list []model.Transaction
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Transaction{})
	if filters != nil {
		if filters.Status != "" {
			db = db.Where("status = ?", filters.Status)
		}
		if filters.StudentID != "" {
			db = db.Where("student_id = ?", filters.StudentID)
		}
		if filters.Keyword != "" {
			kw := "%" + filters.Keyword + "%"
			db = db.Where("customer_name ILIKE ? OR customer_phone LIKE ? OR order_code LIKE ?", kw, kw, kw)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *transactionRepo) ListForExport(ctx context.Context, from, to time.Time, status string) ([]model.Transaction, error) {
	var list []model.Transaction
	db := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Order("created_at ASC").Find(&list).Error
	return list, err
}

func (r *transactionRepo) TransitionStatus(ctx context.Context, id, from, to, processedBy string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("transaction_id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":       to,
			"processed_at": at,
			"processed_by": processedBy,
			"updated_at":   at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrConditionNotMet
	}
	return nil
}

func (r *transactionRepo) SetStudent(ctx context.Context, id, studentID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("transaction_id = ?", id).
		Updates(map[string]interface{}{
			"student_id": studentID,
			"updated_at": time.Now(),
		}).Error
}

func (r *transactionRepo) MonthlyRevenue(ctx context.Context, from, to time.Time, loc *time.Location) ([]MonthlyRevenueRow, error) {
	const completedAt = "COALESCE(processed_at, created_at)"
	tz := loc.String()

	var rows []MonthlyRevenueRow
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("EXTRACT(YEAR FROM "+completedAt+" AT TIME ZONE ?)::int AS year, "+
			"EXTRACT(MONTH FROM "+completedAt+" AT TIME ZONE ?)::int AS month, "+
			"COALESCE(SUM(amount), 0) AS total_revenue, "+
			"COUNT(*) AS transaction_count", tz, tz).
		Where("status = ? AND "+completedAt+" >= ? AND "+completedAt+" < ?",
			model.TransactionStatusCompleted, from, to).
		Group("year, month").
		Order("year, month").
		Scan(&rows).Error
	return rows, err
}
