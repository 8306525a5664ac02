package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"dance-house/internal/model"
	pkgerrors "dance-house/pkg/errors"
)

// PackageRepository 课程套餐数据访问接口
type PackageRepository interface {
	Create(ctx context.Context, pkg *model.Package) error
	GetByID(ctx context.Context, id string) (*model.Package, error)
	// GetActiveByName 按名称（不区分大小写）查找启用中的套餐
	GetActiveByName(ctx context.Context, name string) (*model.Package, error)
	Update(ctx context.Context, pkg *model.Package) error
	Delete(ctx context.Context, id, deletedBy string) error
	List(ctx context.Context, activeOnly bool) ([]model.Package, error)
}

type packageRepo struct {
	db *gorm.DB
}

// NewPackageRepo 创建 PackageRepository 实例
func NewPackageRepo(db *gorm.DB) PackageRepository {
	return &packageRepo{db: db}
}

func (r *packageRepo) Create(ctx context.Context, pkg *model.Package) error {
	return r.db.WithContext(ctx).Create(pkg).Error
}

func (r *packageRepo) GetByID(ctx context.Context, id string) (*model.Package, error) {
	var pkg model.Package
	err := r.db.WithContext(ctx).
		Where("package_id = ?", id).
		First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *packageRepo) GetActiveByName(ctx context.Context, name string) (*model.Package, error) {
	var pkg model.Package
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?) AND is_active = ?", name, true).
		Order("created_at DESC").
		First(&pkg).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *packageRepo) Update(ctx context.Context, pkg *model.Package) error {
	oldVersion := pkg.Version
	result := r.db.WithContext(ctx).
		Model(&model.Package{}).
		Where("package_id = ? AND version = ?", pkg.PackageID, oldVersion).
		Updates(map[string]interface{}{
			"name":           pkg.Name,
			"description":    pkg.Description,
			"total_sessions": pkg.TotalSessions,
			"duration_days":  pkg.DurationDays,
			"price":          pkg.Price,
			"is_active":      pkg.IsActive,
			"updated_by":     pkg.UpdatedBy,
			"updated_at":     time.Now(),
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	pkg.Version = oldVersion + 1
	return nil
}

func (r *packageRepo) Delete(ctx context.Context, id, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Package{}).
			Where("package_id = ?", id).
			Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		return tx.Where("package_id = ?", id).Delete(&model.Package{}).Error
	})
}

func (r *packageRepo) List(ctx context.Context, activeOnly bool) ([]model.Package, error) {
	var pkgs []model.Package
	db := r.db.WithContext(ctx)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("price ASC, name ASC").Find(&pkgs).Error
	return pkgs, err
}
