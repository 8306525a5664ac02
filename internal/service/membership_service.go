package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dance-house/config"
	"dance-house/internal/dto"
	"dance-house/internal/model"
	"dance-house/internal/repository"
	pkgerrors "dance-house/pkg/errors"
)

// ── 会员卡模块业务错误 ──

var (
	ErrMembershipNotFound   = errors.New("会员卡不存在")
	ErrInsufficientSessions = errors.New("剩余课时不足")
	ErrSessionsAtCapacity   = errors.New("剩余课时已达总课时，无法返还")
	ErrPackageRequired      = errors.New("请指定套餐")
	ErrInvalidEndDate       = errors.New("到期日不能早于开始日期")
)

// unlimitedYears 不限期套餐的到期日 = 开始日 + 100 年
const unlimitedYears = 100

// MembershipService 会员卡业务接口（签发 + 课时账本）
type MembershipService interface {
	// Issue 按解析后的套餐为学员签发一张会员卡，剩余课时 = 总课时
	Issue(ctx context.Context, studentID string, pkg *ResolvedPackage, startDate time.Time, transactionID *string) (*model.Membership, error)
	CreateManual(ctx context.Context, req *dto.CreateMembershipRequest, callerID string) (*dto.MembershipResponse, error)
	GetByID(ctx context.Context, id string) (*dto.MembershipResponse, error)
	List(ctx context.Context, req *dto.MembershipListRequest) ([]dto.MembershipResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateMembershipRequest, callerID string) (*dto.MembershipResponse, error)
	// Deduct 原子扣减一节课时，剩余为 0 时返回 ErrInsufficientSessions
	Deduct(ctx context.Context, id string) (*dto.LedgerResponse, error)
	// Credit 原子返还一节课时，不超过总课时
	Credit(ctx context.Context, id string) (*dto.LedgerResponse, error)
	// ExpireLapsed 将已过期或课时用尽的 Active 会员卡落库为 Expired
	ExpireLapsed(ctx context.Context) (int64, error)
}

type membershipService struct {
	repo     *repository.Repository
	resolver *packageResolver
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewMembershipService 创建 MembershipService 实例
func NewMembershipService(repo *repository.Repository, cfg *config.EnrollmentConfig, loc *time.Location, logger *zap.Logger) MembershipService {
	return newMembershipService(repo, newPackageResolver(repo, cfg, logger), loc, logger)
}

func newMembershipService(repo *repository.Repository, resolver *packageResolver, loc *time.Location, logger *zap.Logger) *membershipService {
	return &membershipService{repo: repo, resolver: resolver, loc: loc, logger: logger, now: time.Now}
}

func (s *membershipService) bind(repo *repository.Repository) *membershipService {
	c := *s
	c.repo = repo
	c.resolver = s.resolver.bind(repo)
	return &c
}

// ────────────────────── Issue ──────────────────────

func (s *membershipService) Issue(ctx context.Context, studentID string, pkg *ResolvedPackage, startDate time.Time, transactionID *string) (*model.Membership, error) {
	start, end := membershipTerm(startDate, pkg.DurationDays, s.loc)

	m := &model.Membership{
		StudentID:         studentID,
		TransactionID:     transactionID,
		PackageName:       pkg.PackageName,
		TotalSessions:     pkg.TotalSessions,
		RemainingSessions: pkg.TotalSessions,
		StartDate:         start,
		EndDate:           end,
		Status:            model.MembershipStatusActive,
	}

	if err := s.repo.Membership.Create(ctx, m); err != nil {
		s.logger.Error("签发会员卡失败",
			zap.String("student_id", studentID),
			zap.String("package_name", pkg.PackageName),
			zap.Error(err),
		)
		return nil, pkgerrors.Store("membership.create", err)
	}

	s.logger.Info("签发会员卡",
		zap.String("membership_id", m.MembershipID),
		zap.String("student_id", studentID),
		zap.String("package_name", m.PackageName),
		zap.Int("total_sessions", m.TotalSessions),
		zap.Time("end_date", m.EndDate),
	)
	return m, nil
}

// membershipTerm 开始日取工作室时区的自然日；按自然日累加有效期，不限期则加 100 年
func membershipTerm(startDate time.Time, durationDays *int, loc *time.Location) (time.Time, time.Time) {
	start := localDay(startDate, loc)
	if durationDays == nil {
		return start, start.AddDate(unlimitedYears, 0, 0)
	}
	return start, start.AddDate(0, 0, *durationDays)
}

// ────────────────────── CreateManual ──────────────────────

func (s *membershipService) CreateManual(ctx context.Context, req *dto.CreateMembershipRequest, callerID string) (*dto.MembershipResponse, error) {
	if req.PackageID == "" && strings.TrimSpace(req.PackageName) == "" {
		return nil, ErrPackageRequired
	}

	student, err := s.repo.Student.GetByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学员失败", zap.String("id", req.StudentID), zap.Error(err))
		return nil, pkgerrors.Store("student.get", err)
	}

	resolved, err := s.resolver.Resolve(ctx, PackageRef{PackageID: req.PackageID, PackageName: req.PackageName})
	if err != nil {
		return nil, err
	}

	startDate := s.now()
	if req.StartDate != "" {
		startDate, err = parseLocalDate(req.StartDate, s.loc)
		if err != nil {
			return nil, ErrInvalidDate
		}
	}

	m, err := s.Issue(ctx, student.StudentID, resolved, startDate, nil)
	if err != nil {
		return nil, err
	}
	m.Student = student

	resp := toMembershipResponse(m, s.now(), s.loc)
	return &resp, nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *membershipService) GetByID(ctx context.Context, id string) (*dto.MembershipResponse, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toMembershipResponse(m, s.now(), s.loc)
	return &resp, nil
}

func (s *membershipService) List(ctx context.Context, req *dto.MembershipListRequest) ([]dto.MembershipResponse, int64, error) {
	filters := &repository.ListFilters{
		StudentID: req.StudentID,
		Status:    req.Status,
		Keyword:   strings.TrimSpace(req.Keyword),
	}
	list, total, err := s.repo.Membership.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出会员卡失败", zap.Error(err))
		return nil, 0, pkgerrors.Store("membership.list", err)
	}

	now := s.now()
	result := make([]dto.MembershipResponse, 0, len(list))
	for i := range list {
		result = append(result, toMembershipResponse(&list[i], now, s.loc))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *membershipService) Update(ctx context.Context, id string, req *dto.UpdateMembershipRequest, callerID string) (*dto.MembershipResponse, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		m.Status = *req.Status
	}
	if req.EndDate != nil {
		end, err := parseLocalDate(*req.EndDate, s.loc)
		if err != nil {
			return nil, ErrInvalidDate
		}
		if end.Before(m.StartDate) {
			return nil, ErrInvalidEndDate
		}
		m.EndDate = end
	}
	m.UpdatedBy = &callerID

	if err := s.repo.Membership.UpdateTerms(ctx, m); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		s.logger.Error("更新会员卡失败", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.Store("membership.update", err)
	}

	s.logger.Info("调整会员卡",
		zap.String("membership_id", id),
		zap.String("status", m.Status),
		zap.Time("end_date", m.EndDate),
		zap.String("operator", callerID),
	)

	resp := toMembershipResponse(m, s.now(), s.loc)
	return &resp, nil
}

// ────────────────────── 课时账本 ──────────────────────

func (s *membershipService) Deduct(ctx context.Context, id string) (*dto.LedgerResponse, error) {
	if err := s.deduct(ctx, id); err != nil {
		return nil, err
	}
	return s.ledger(ctx, id)
}

func (s *membershipService) Credit(ctx context.Context, id string) (*dto.LedgerResponse, error) {
	if err := s.credit(ctx, id); err != nil {
		return nil, err
	}
	return s.ledger(ctx, id)
}

// deduct 条件扣减：WHERE remaining_sessions > 0，未命中时回读区分不存在与课时不足
func (s *membershipService) deduct(ctx context.Context, id string) error {
	err := s.repo.Membership.Deduct(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pkgerrors.ErrConditionNotMet) {
		s.logger.Error("扣减课时失败", zap.String("membership_id", id), zap.Error(err))
		return pkgerrors.Store("membership.deduct", err)
	}
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	return ErrInsufficientSessions
}

// credit 条件返还：WHERE remaining_sessions < total_sessions
func (s *membershipService) credit(ctx context.Context, id string) error {
	err := s.repo.Membership.Credit(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pkgerrors.ErrConditionNotMet) {
		s.logger.Error("返还课时失败", zap.String("membership_id", id), zap.Error(err))
		return pkgerrors.Store("membership.credit", err)
	}
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	return ErrSessionsAtCapacity
}

func (s *membershipService) ledger(ctx context.Context, id string) (*dto.LedgerResponse, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.LedgerResponse{
		MembershipID:      m.MembershipID,
		RemainingSessions: m.RemainingSessions,
		TotalSessions:     m.TotalSessions,
	}, nil
}

// ────────────────────── ExpireLapsed ──────────────────────

func (s *membershipService) ExpireLapsed(ctx context.Context) (int64, error) {
	n, err := s.repo.Membership.ExpireLapsed(ctx, s.now())
	if err != nil {
		s.logger.Error("批量过期会员卡失败", zap.Error(err))
		return 0, pkgerrors.Store("membership.expire", err)
	}
	return n, nil
}

// ── 内部辅助方法 ──

func (s *membershipService) get(ctx context.Context, id string) (*model.Membership, error) {
	m, err := s.repo.Membership.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		s.logger.Error("查询会员卡失败", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.Store("membership.get", err)
	}
	return m, nil
}

func toMembershipResponse(m *model.Membership, now time.Time, loc *time.Location) dto.MembershipResponse {
	resp := dto.MembershipResponse{
		ID:                m.MembershipID,
		StudentID:         m.StudentID,
		TransactionID:     m.TransactionID,
		PackageName:       m.PackageName,
		TotalSessions:     m.TotalSessions,
		RemainingSessions: m.RemainingSessions,
		StartDate:         m.StartDate.In(loc).Format(dto.DateLayout),
		EndDate:           m.EndDate.In(loc).Format(dto.DateLayout),
		Status:            m.EffectiveStatus(now),
		StoredStatus:      m.Status,
		CreatedAt:         formatTime(m.CreatedAt),
	}
	if m.Student != nil {
		resp.StudentName = m.Student.FullName
	}
	return resp
}
