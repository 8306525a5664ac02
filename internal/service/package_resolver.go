package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dance-house/config"
	"dance-house/internal/repository"
	pkgerrors "dance-house/pkg/errors"
)

var (
	ErrPackageNotFound   = errors.New("套餐不存在")
	ErrPackageUnresolved = errors.New("无法确定套餐：未找到匹配的套餐且未启用默认套餐")
)

// 默认套餐：交易未携带可解析的套餐信息时使用
const (
	DefaultPackageName     = "Gói học phí"
	defaultPackageSessions = 8
	defaultPackageDays     = 30
)

// PackageRef 交易或后台请求中的套餐引用
type PackageRef struct {
	PackageID   string
	PackageName string
}

// ResolvedPackage 解析后的套餐条款，签发会员卡时作为快照
type ResolvedPackage struct {
	PackageID     *string
	PackageName   string
	TotalSessions int
	DurationDays  *int // nil 表示不限期
	Price         decimal.Decimal
	Defaulted     bool
}

// legacyPackage 历史手工开卡使用的固定套餐
type legacyPackage struct {
	name         string
	sessions     int
	durationDays *int
}

var legacyCatalog = []legacyPackage{
	{name: "Tháng (8 buổi)", sessions: 8, durationDays: intPtr(30)},
	{name: "Quý (24 buổi)", sessions: 24, durationDays: intPtr(90)},
	{name: "Năm (96 buổi)", sessions: 96, durationDays: intPtr(365)},
	{name: "10 buổi", sessions: 10},
	{name: "20 buổi", sessions: 20},
}

// PackageResolver 套餐解析：将套餐引用映射为课时数与有效期
type PackageResolver interface {
	Resolve(ctx context.Context, ref PackageRef) (*ResolvedPackage, error)
}

type packageResolver struct {
	repo         *repository.Repository
	allowDefault bool
	logger       *zap.Logger
}

// NewPackageResolver 创建 PackageResolver 实例
func NewPackageResolver(repo *repository.Repository, cfg *config.EnrollmentConfig, logger *zap.Logger) PackageResolver {
	return newPackageResolver(repo, cfg, logger)
}

func newPackageResolver(repo *repository.Repository, cfg *config.EnrollmentConfig, logger *zap.Logger) *packageResolver {
	return &packageResolver{repo: repo, allowDefault: cfg.AllowDefaultPackage, logger: logger}
}

// bind 返回绑定到指定仓储（通常为事务仓储）的副本
func (r *packageResolver) bind(repo *repository.Repository) *packageResolver {
	c := *r
	c.repo = repo
	return &c
}

// Resolve 解析顺序：package_id → 启用套餐同名匹配 → 历史固定套餐 → 默认套餐
// package_id 存在但查不到时直接报错，不再回退
func (r *packageResolver) Resolve(ctx context.Context, ref PackageRef) (*ResolvedPackage, error) {
	// 1. 按 ID 查套餐目录
	if ref.PackageID != "" {
		pkg, err := r.repo.Package.GetByID(ctx, ref.PackageID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				r.logger.Warn("交易引用的套餐不存在", zap.String("package_id", ref.PackageID))
				return nil, ErrPackageNotFound
			}
			return nil, pkgerrors.Store("package.get", err)
		}
		return &ResolvedPackage{
			PackageID:     &pkg.PackageID,
			PackageName:   pkg.Name,
			TotalSessions: pkg.TotalSessions,
			DurationDays:  pkg.DurationDays,
			Price:         pkg.Price,
		}, nil
	}

	name := strings.TrimSpace(ref.PackageName)
	if name != "" {
		// 2. 启用中的同名套餐
		pkg, err := r.repo.Package.GetActiveByName(ctx, name)
		switch {
		case err == nil:
			return &ResolvedPackage{
				PackageID:     &pkg.PackageID,
				PackageName:   pkg.Name,
				TotalSessions: pkg.TotalSessions,
				DurationDays:  pkg.DurationDays,
				Price:         pkg.Price,
			}, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, pkgerrors.Store("package.get_by_name", err)
		}

		// 3. 历史固定套餐
		if lp, ok := lookupLegacy(name); ok {
			return &ResolvedPackage{
				PackageName:   lp.name,
				TotalSessions: lp.sessions,
				DurationDays:  lp.durationDays,
			}, nil
		}
	}

	// 4. 默认套餐
	if !r.allowDefault {
		return nil, ErrPackageUnresolved
	}
	r.logger.Warn("未能解析套餐，使用默认套餐",
		zap.String("package_name", ref.PackageName),
		zap.Int("total_sessions", defaultPackageSessions),
		zap.Int("duration_days", defaultPackageDays),
	)
	return &ResolvedPackage{
		PackageName:   DefaultPackageName,
		TotalSessions: defaultPackageSessions,
		DurationDays:  intPtr(defaultPackageDays),
		Defaulted:     true,
	}, nil
}

func lookupLegacy(name string) (legacyPackage, bool) {
	for _, lp := range legacyCatalog {
		if strings.EqualFold(lp.name, name) {
			return lp, true
		}
	}
	return legacyPackage{}, false
}
