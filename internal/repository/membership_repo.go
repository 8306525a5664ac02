package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"dance-house/internal/model"
	pkgerrors "dance-house/pkg/errors"
)

// MembershipRepository 会员卡数据访问接口
type MembershipRepository interface {
	Create(ctx context.Context, m *model.Membership) error
	GetByID(ctx context.Context, id string) (*model.Membership, error)
	List(ctx context.Context, filters *ListFilters, offset, limit int) ([]model.Membership, int64, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.Membership, error)
	// ListUsable 返回所有可签到的会员卡（Active、未过期、剩余课时 > 0），预加载学员
	ListUsable(ctx context.Context, now time.Time) ([]model.Membership, error)
	// FindUsableForStudent 返回学员最早到期的可用会员卡
	FindUsableForStudent(ctx context.Context, studentID string, now time.Time) (*model.Membership, error)
	// ListExpiring 返回尚可使用且到期日早于 until 的 Active 会员卡，按到期日升序，预加载学员
	ListExpiring(ctx context.Context, now, until time.Time) ([]model.Membership, error)
	CountByStudent(ctx context.Context, studentID string) (int64, error)
	// UpdateTerms 仅更新状态与到期日，剩余课时只能通过 Deduct/Credit 修改
	UpdateTerms(ctx context.Context, m *model.Membership) error
	// Deduct 原子扣减一节课时；剩余课时为 0 或记录不存在时返回 ErrConditionNotMet
	Deduct(ctx context.Context, id string) error
	// Credit 原子返还一节课时；已达总课时或记录不存在时返回 ErrConditionNotMet
	Credit(ctx context.Context, id string) error
	// ExpireLapsed 将已过到期日的 Active 会员卡置为 Expired，返回影响行数
	// 课时用尽不落库：撤销签到返还课时后会员卡需恢复可用，由读取时状态判定
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

type membershipRepo struct {
	db *gorm.DB
}

// NewMembershipRepo 创建 MembershipRepository 实例
func NewMembershipRepo(db *gorm.DB) MembershipRepository {
	return &membershipRepo{db: db}
}

func (r *membershipRepo) Create(ctx context.Context, m *model.Membership) error {
	err := r.db.WithContext(ctx).Create(m).Error
	if pkgerrors.IsUniqueViolation(err) {
		return pkgerrors.ErrDuplicateKey
	}
	return err
}

func (r *membershipRepo) GetByID(ctx context.Context, id string) (*model.Membership, error) {
	var m model.Membership
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("membership_id = ?", id).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *membershipRepo) List(ctx context.Context, filters *ListFilters, offset, limit int) ([]model.Membership, int64, error) {
	var list []model.Membership
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Membership{})
	if filters != nil {
		if filters.StudentID != "" {
			db = db.Where("memberships.student_id = ?", filters.StudentID)
		}
		if filters.Status != "" {
			db = db.Where("memberships.status = ?", filters.Status)
		}
		if filters.Keyword != "" {
			kw := "%" + filters.Keyword + "%"
			db = db.Joins("JOIN students ON students.student_id = memberships.student_id").
				Where("memberships.package_name ILIKE ? OR students.full_name ILIKE ? OR students.phone LIKE ?", kw, kw, kw)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Student").
		Offset(offset).Limit(limit).
		Order("memberships.created_at DESC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *membershipRepo) ListByStudent(ctx context.Context, studentID string) ([]model.Membership, error) {
	var list []model.Membership
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *membershipRepo) ListUsable(ctx context.Context, now time.Time) ([]model.Membership, error) {
	var list []model.Membership
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("status = ? AND remaining_sessions > 0 AND end_date > ?", model.MembershipStatusActive, model.EndDateCutoff(now)).
		Order("end_date ASC").
		Find(&list).Error
	return list, err
}

func (r *membershipRepo) FindUsableForStudent(ctx context.Context, studentID string, now time.Time) (*model.Membership, error) {
	var m model.Membership
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND status = ? AND remaining_sessions > 0 AND end_date > ?",
			studentID, model.MembershipStatusActive, model.EndDateCutoff(now)).
		Order("end_date ASC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *membershipRepo) CountByStudent(ctx context.Context, studentID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("student_id = ?", studentID).
		Count(&n).Error
	return n, err
}

func (r *membershipRepo) ListExpiring(ctx context.Context, now, until time.Time) ([]model.Membership, error) {
	var list []model.Membership
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("status = ? AND remaining_sessions > 0 AND end_date > ? AND end_date < ?",
			model.MembershipStatusActive, model.EndDateCutoff(now), until).
		Order("end_date ASC").
		Find(&list).Error
	return list, err
}

func (r *membershipRepo) UpdateTerms(ctx context.Context, m *model.Membership) error {
	result := r.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("membership_id = ?", m.MembershipID).
		Updates(map[string]interface{}{
			"status":     m.Status,
			"end_date":   m.EndDate,
			"updated_by": m.UpdatedBy,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *membershipRepo) Deduct(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("membership_id = ? AND remaining_sessions > 0", id).
		Updates(map[string]interface{}{
			"remaining_sessions": gorm.Expr("remaining_sessions - 1"),
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrConditionNotMet
	}
	return nil
}

func (r *membershipRepo) Credit(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("membership_id = ? AND remaining_sessions < total_sessions", id).
		Updates(map[string]interface{}{
			"remaining_sessions": gorm.Expr("remaining_sessions + 1"),
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrConditionNotMet
	}
	return nil
}

func (r *membershipRepo) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Membership{}).
		Where("status = ? AND end_date <= ?", model.MembershipStatusActive, model.EndDateCutoff(now)).
		Updates(map[string]interface{}{
			"status":     model.MembershipStatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}
