package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dance-house/internal/dto"
	"dance-house/internal/model"
	"dance-house/internal/repository"
	pkgerrors "dance-house/pkg/errors"
)

var ErrNegativePrice = errors.New("价格不能为负数")

// PackageService 套餐目录业务接口
type PackageService interface {
	Create(ctx context.Context, req *dto.CreatePackageRequest, callerID string) (*dto.PackageResponse, error)
	GetByID(ctx context.Context, id string) (*dto.PackageResponse, error)
	List(ctx context.Context, req *dto.PackageListRequest) ([]dto.PackageResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdatePackageRequest, callerID string) (*dto.PackageResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type packageService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPackageService 创建 PackageService 实例
func NewPackageService(repo *repository.Repository, logger *zap.Logger) PackageService {
	return &packageService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *packageService) Create(ctx context.Context, req *dto.CreatePackageRequest, callerID string) (*dto.PackageResponse, error) {
	if req.Price.IsNegative() {
		return nil, ErrNegativePrice
	}

	pkg := &model.Package{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		TotalSessions: req.TotalSessions,
		DurationDays:  req.DurationDays,
		Price:         req.Price,
		IsActive:      true,
	}
	if req.IsActive != nil {
		pkg.IsActive = *req.IsActive
	}
	pkg.CreatedBy = &callerID
	pkg.UpdatedBy = &callerID

	if err := s.repo.Package.Create(ctx, pkg); err != nil {
		s.logger.Error("创建套餐失败", zap.Error(err))
		return nil, pkgerrors.Store("package.create", err)
	}

	return toPackageResponse(pkg), nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *packageService) GetByID(ctx context.Context, id string) (*dto.PackageResponse, error) {
	pkg, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toPackageResponse(pkg), nil
}

func (s *packageService) List(ctx context.Context, req *dto.PackageListRequest) ([]dto.PackageResponse, error) {
	pkgs, err := s.repo.Package.List(ctx, !req.IncludeInactive)
	if err != nil {
		s.logger.Error("列出套餐失败", zap.Error(err))
		return nil, pkgerrors.Store("package.list", err)
	}

	result := make([]dto.PackageResponse, 0, len(pkgs))
	for i := range pkgs {
		result = append(result, *toPackageResponse(&pkgs[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

// Update 修改套餐目录；已签发的会员卡保存的是快照，不受影响
func (s *packageService) Update(ctx context.Context, id string, req *dto.UpdatePackageRequest, callerID string) (*dto.PackageResponse, error) {
	pkg, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		pkg.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		pkg.Description = req.Description
	}
	if req.TotalSessions != nil {
		pkg.TotalSessions = *req.TotalSessions
	}
	if req.ClearDuration {
		pkg.DurationDays = nil
	} else if req.DurationDays != nil {
		pkg.DurationDays = req.DurationDays
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, ErrNegativePrice
		}
		pkg.Price = *req.Price
	}
	if req.IsActive != nil {
		pkg.IsActive = *req.IsActive
	}

	pkg.Version = req.Version
	pkg.UpdatedBy = &callerID

	if err := s.repo.Package.Update(ctx, pkg); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("更新套餐失败", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.Store("package.update", err)
	}

	return toPackageResponse(pkg), nil
}

// ────────────────────── Delete ──────────────────────

func (s *packageService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Package.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除套餐失败", zap.String("id", id), zap.Error(err))
		return pkgerrors.Store("package.delete", err)
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *packageService) get(ctx context.Context, id string) (*model.Package, error) {
	pkg, err := s.repo.Package.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		s.logger.Error("查询套餐失败", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.Store("package.get", err)
	}
	return pkg, nil
}

func toPackageResponse(p *model.Package) *dto.PackageResponse {
	price := p.Price
	if price.IsZero() {
		price = decimal.Zero
	}
	return &dto.PackageResponse{
		ID:            p.PackageID,
		Name:          p.Name,
		Description:   p.Description,
		TotalSessions: p.TotalSessions,
		DurationDays:  p.DurationDays,
		Price:         price,
		IsActive:      p.IsActive,
		Version:       p.Version,
	}
}
