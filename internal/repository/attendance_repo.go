package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dance-house/internal/model"
	pkgerrors "dance-house/pkg/errors"
)

// AttendanceRepository 签到记录数据访问接口
type AttendanceRepository interface {
	// CreateIfAbsent 插入 Present 记录；同一学员/课程/日期已存在 Present 时返回 false
	CreateIfAbsent(ctx context.Context, a *model.Attendance) (bool, error)
	GetByID(ctx context.Context, id string) (*model.Attendance, error)
	// Cancel 将 Present 记录置为 Cancelled；非 Present 或不存在返回 ErrConditionNotMet
	Cancel(ctx context.Context, id, updatedBy string) error
	ListByClassAndDate(ctx context.Context, classID int64, date time.Time) ([]model.Attendance, error)
	ListByStudent(ctx context.Context, studentID string, offset, limit int) ([]model.Attendance, int64, error)
	// ListForExport 按上课日期区间导出，to 为开区间
	ListForExport(ctx context.Context, from, to time.Time) ([]model.Attendance, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) CreateIfAbsent(ctx context.Context, a *model.Attendance) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}, {Name: "class_id"}, {Name: "date"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "status = ?", Vars: []interface{}{model.AttendanceStatusPresent}},
			}},
			DoNothing: true,
		}).
		Create(a)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *attendanceRepo) GetByID(ctx context.Context, id string) (*model.Attendance, error) {
	var a model.Attendance
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Class").
		Where("attendance_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *attendanceRepo) Cancel(ctx context.Context, id, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Attendance{}).
		Where("attendance_id = ? AND status = ?", id, model.AttendanceStatusPresent).
		Updates(map[string]interface{}{
			"status":     model.AttendanceStatusCancelled,
			"updated_by": updatedBy,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrConditionNotMet
	}
	return nil
}

func (r *attendanceRepo) ListByClassAndDate(ctx context.Context, classID int64, date time.Time) ([]model.Attendance, error) {
	var list []model.Attendance
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("class_id = ? AND date = ?", classID, date).
		Order("check_in_time ASC").
		Find(&list).Error
	return list, err
}

func (r *attendanceRepo) ListByStudent(ctx context.Context, studentID string, offset, limit int) ([]model.Attendance, int64, error) {
	var list []model.Attendance
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Attendance{}).Where("student_id = ?", studentID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Class").
		Offset(offset).Limit(limit).
		Order("date DESC, check_in_time DESC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *attendanceRepo) ListForExport(ctx context.Context, from, to time.Time) ([]model.Attendance, error) {
	var list []model.Attendance
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Class").
		Where("date >= ? AND date < ?", from, to).
		Order("date ASC, class_id ASC, check_in_time ASC").
		Find(&list).Error
	return list, err
}
