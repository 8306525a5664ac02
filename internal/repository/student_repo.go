package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dance-house/internal/model"
	pkgerrors "dance-house/pkg/errors"
)

// StudentRepository 学员数据访问接口
type StudentRepository interface {
	Create(ctx context.Context, student *model.Student) error
	// CreateIfPhoneAbsent 手机号不存在时插入，返回是否实际插入
	// 依赖 uq_students_phone 部分唯一索引，并发调用只会有一个插入成功
	CreateIfPhoneAbsent(ctx context.Context, student *model.Student) (bool, error)
	GetByID(ctx context.Context, id string) (*model.Student, error)
	GetByPhone(ctx context.Context, phone string) (*model.Student, error)
	Update(ctx context.Context, student *model.Student) error
	Delete(ctx context.Context, id, deletedBy string) error
	List(ctx context.Context, filters *ListFilters, offset, limit int) ([]model.Student, int64, error)
}

type studentRepo struct {
	db *gorm.DB
}

// NewStudentRepo 创建 StudentRepository 实例
func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) Create(ctx context.Context, student *model.Student) error {
	err := r.db.WithContext(ctx).Create(student).Error
	if pkgerrors.IsUniqueViolation(err) {
		return pkgerrors.ErrDuplicateKey
	}
	return err
}

func (r *studentRepo) CreateIfPhoneAbsent(ctx context.Context, student *model.Student) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "phone"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "deleted_at IS NULL"}}},
			DoNothing:   true,
		}).
		Create(student)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *studentRepo) GetByID(ctx context.Context, id string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Preload("Memberships", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("student_id = ?", id).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) GetByPhone(ctx context.Context, phone string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("phone = ?", phone).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *studentRepo) Update(ctx context.Context, student *model.Student) error {
	oldVersion := student.Version
	result := r.db.WithContext(ctx).
		Model(&model.Student{}).
		Where("student_id = ? AND version = ?", student.StudentID, oldVersion).
		Updates(map[string]interface{}{
			"full_name":         student.FullName,
			"phone":             student.Phone,
			"email":             student.Email,
			"status":            student.Status,
			"birthdate":         student.Birthdate,
			"gender":            student.Gender,
			"level":             student.Level,
			"parent_name":       student.ParentName,
			"emergency_contact": student.EmergencyContact,
			"medical_note":      student.MedicalNote,
			"updated_by":        student.UpdatedBy,
			"updated_at":        time.Now(),
			"version":           oldVersion + 1,
		})
	if result.Error != nil {
		if pkgerrors.IsUniqueViolation(result.Error) {
			return pkgerrors.ErrDuplicateKey
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	student.Version = oldVersion + 1
	return nil
}

func (r *studentRepo) Delete(ctx context.Context, id, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Student{}).
			Where("student_id = ?", id).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		return tx.Where("student_id = ?", id).Delete(&model.Student{}).Error
	})
}

func (r *studentRepo) List(ctx context.Context, filters *ListFilters, offset, limit int) ([]model.Student, int64, error) {
	var students []model.Student
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Student{})
	if filters != nil {
		if filters.Status != "" {
			db = db.Where("status = ?", filters.Status)
		}
		if filters.Keyword != "" {
			kw := "%" + filters.Keyword + "%"
			db = db.Where("full_name ILIKE ? OR phone LIKE ? OR email ILIKE ?", kw, kw, kw)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&students).Error; err != nil {
		return nil, 0, err
	}

	return students, total, nil
}
