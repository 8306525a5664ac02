package repository

import (
	"context"

	"gorm.io/gorm"

	"dance-house/internal/model"
)

// DanceClassRepository 舞蹈课程数据访问接口
type DanceClassRepository interface {
	Create(ctx context.Context, class *model.DanceClass) error
	GetByID(ctx context.Context, id int64) (*model.DanceClass, error)
	Update(ctx context.Context, class *model.DanceClass) error
	Delete(ctx context.Context, id int64, deletedBy string) error
	List(ctx context.Context, activeOnly bool) ([]model.DanceClass, error)
}

type danceClassRepo struct {
	db *gorm.DB
}

// NewDanceClassRepo 创建 DanceClassRepository 实例
func NewDanceClassRepo(db *gorm.DB) DanceClassRepository {
	return &danceClassRepo{db: db}
}

func (r *danceClassRepo) Create(ctx context.Context, class *model.DanceClass) error {
	return r.db.WithContext(ctx).Create(class).Error
}

func (r *danceClassRepo) GetByID(ctx context.Context, id int64) (*model.DanceClass, error) {
	var class model.DanceClass
	err := r.db.WithContext(ctx).
		Where("class_id = ?", id).
		First(&class).Error
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func (r *danceClassRepo) Update(ctx context.Context, class *model.DanceClass) error {
	return r.db.WithContext(ctx).
		Model(class).
		Select("name", "instructor", "level", "day_of_week", "start_time", "end_time", "capacity", "is_active", "updated_by", "updated_at").
		Updates(class).Error
}

func (r *danceClassRepo) Delete(ctx context.Context, id int64, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.DanceClass{}).
			Where("class_id = ?", id).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		return tx.Where("class_id = ?", id).Delete(&model.DanceClass{}).Error
	})
}

func (r *danceClassRepo) List(ctx context.Context, activeOnly bool) ([]model.DanceClass, error) {
	var list []model.DanceClass
	db := r.db.WithContext(ctx)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("day_of_week ASC, start_time ASC").Find(&list).Error
	return list, err
}
