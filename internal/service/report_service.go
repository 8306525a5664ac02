package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dance-house/internal/dto"
	"dance-house/internal/repository"
	pkgerrors "dance-house/pkg/errors"
)

const (
	defaultExpiringDays  = 7
	defaultRevenueMonths = 12
)

// ReportService 报表业务接口
type ReportService interface {
	// ListExpiring 列出 within_days 天内到期且仍有课时的会员卡，附 Zalo 续费提醒链接
	ListExpiring(ctx context.Context, req *dto.ExpiringListRequest) ([]dto.ExpiringMembershipResponse, error)
	// MonthlyRevenue 最近 N 个自然月（含当月）已完成交易的收入，无交易的月份补零
	MonthlyRevenue(ctx context.Context, req *dto.RevenueRequest) (*dto.RevenueReportResponse, error)
}

type reportService struct {
	repo       *repository.Repository
	studioName string
	loc        *time.Location
	logger     *zap.Logger
	now        func() time.Time
}

// NewReportService 创建 ReportService 实例
func NewReportService(repo *repository.Repository, studioName string, loc *time.Location, logger *zap.Logger) ReportService {
	return newReportService(repo, studioName, loc, logger)
}

func newReportService(repo *repository.Repository, studioName string, loc *time.Location, logger *zap.Logger) *reportService {
	return &reportService{repo: repo, studioName: studioName, loc: loc, logger: logger, now: time.Now}
}

// ────────────────────── ListExpiring ──────────────────────

func (s *reportService) ListExpiring(ctx context.Context, req *dto.ExpiringListRequest) ([]dto.ExpiringMembershipResponse, error) {
	within := req.WithinDays
	if within <= 0 {
		within = defaultExpiringDays
	}

	// 到期日为今天（剩 0 天）到今天 + within 天
	now := s.now()
	until := localDay(now, s.loc).AddDate(0, 0, within+1)

	list, err := s.repo.Membership.ListExpiring(ctx, now, until)
	if err != nil {
		s.logger.Error("查询即将到期会员卡失败", zap.Int("within_days", within), zap.Error(err))
		return nil, pkgerrors.Store("membership.list_expiring", err)
	}

	today := calendarDate(now, s.loc)
	result := make([]dto.ExpiringMembershipResponse, 0, len(list))
	for i := range list {
		m := &list[i]
		item := dto.ExpiringMembershipResponse{
			MembershipID:      m.MembershipID,
			StudentID:         m.StudentID,
			PackageName:       m.PackageName,
			EndDate:           m.EndDate.In(s.loc).Format(dto.DateLayout),
			DaysLeft:          int(calendarDate(m.EndDate, s.loc).Sub(today) / (24 * time.Hour)),
			RemainingSessions: m.RemainingSessions,
		}
		if m.Student != nil {
			item.StudentName = m.Student.FullName
			item.Phone = m.Student.Phone
			item.ReminderLink = zaloReminderLink(m.Student.Phone, m.Student.FullName, s.studioName, item.DaysLeft)
		}
		result = append(result, item)
	}
	return result, nil
}

// zaloReminderLink 生成 Zalo 聊天链接，手机号转为 84 开头的国际格式
func zaloReminderLink(phone, studentName, studioName string, daysLeft int) string {
	intl := phone
	if strings.HasPrefix(intl, "0") {
		intl = "84" + intl[1:]
	}
	msg := fmt.Sprintf(
		"Chào %s, gói tập của bạn tại %s sắp hết hạn sau %d ngày nữa. Bạn nhớ gia hạn sớm để giữ ưu đãi nhé!",
		studentName, studioName, daysLeft,
	)
	return "https://zalo.me/" + intl + "?" + url.Values{"text": {msg}}.Encode()
}

// ────────────────────── MonthlyRevenue ──────────────────────

func (s *reportService) MonthlyRevenue(ctx context.Context, req *dto.RevenueRequest) (*dto.RevenueReportResponse, error) {
	items, err := monthlyRevenueSeries(ctx, s.repo, s.loc, s.now(), req.Months)
	if err != nil {
		s.logger.Error("查询月度收入失败", zap.Int("months", req.Months), zap.Error(err))
		return nil, pkgerrors.Store("transaction.monthly_revenue", err)
	}

	resp := &dto.RevenueReportResponse{Months: items, TotalRevenue: decimal.Zero}
	for _, it := range items {
		resp.TotalRevenue = resp.TotalRevenue.Add(it.TotalRevenue)
		resp.TransactionCount += it.TransactionCount
	}
	return resp, nil
}

// monthlyRevenueSeries 查询最近 months 个自然月的收入，返回连续的月份序列（正序）
func monthlyRevenueSeries(ctx context.Context, repo *repository.Repository, loc *time.Location, now time.Time, months int) ([]dto.MonthlyRevenueItem, error) {
	if months <= 0 {
		months = defaultRevenueMonths
	}

	y, m, _ := now.In(loc).Date()
	from := time.Date(y, m-time.Month(months-1), 1, 0, 0, 0, 0, loc)
	to := time.Date(y, m+1, 1, 0, 0, 0, 0, loc)

	rows, err := repo.Transaction.MonthlyRevenue(ctx, from, to, loc)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[int]repository.MonthlyRevenueRow, len(rows))
	for _, r := range rows {
		byMonth[r.Year*100+r.Month] = r
	}

	items := make([]dto.MonthlyRevenueItem, 0, months)
	for cur := from; cur.Before(to); cur = cur.AddDate(0, 1, 0) {
		item := dto.MonthlyRevenueItem{Year: cur.Year(), Month: int(cur.Month()), TotalRevenue: decimal.Zero}
		if r, ok := byMonth[item.Year*100+item.Month]; ok {
			item.TotalRevenue = r.TotalRevenue
			item.TransactionCount = r.TransactionCount
		}
		items = append(items, item)
	}
	return items, nil
}
