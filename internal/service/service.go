package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"dance-house/config"
	"dance-house/internal/repository"
	pkgerrors "dance-house/pkg/errors"
	"dance-house/pkg/jwt"
	"dance-house/pkg/mailer"
	"dance-house/pkg/payos"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Student      StudentService
	Package      PackageService
	Class        ClassService
	Membership   MembershipService
	Transaction  TransactionService
	Enrollment   EnrollmentService
	Attendance   AttendanceService
	Export       ExportService
	Report       ReportService
	Notification NotificationService
}

// Deps 外部协作方
type Deps struct {
	JWT       *jwt.Manager
	Blacklist TokenBlacklist
	Mailer    mailer.Sender
	PayOS     *payos.Verifier
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	deps Deps,
	logger *zap.Logger,
) *Service {
	loc := cfg.Studio.Location()

	resolver := newPackageResolver(repo, &cfg.Enrollment, logger)
	students := newStudentService(repo, loc, logger)
	memberships := newMembershipService(repo, resolver, loc, logger)
	transactions := newTransactionService(repo, logger)
	notifier := NewNotificationService(deps.Mailer, &cfg.Studio, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, deps.JWT, deps.Blacklist, logger),
		Student:      students,
		Package:      NewPackageService(repo, logger),
		Class:        NewClassService(repo, logger),
		Membership:   memberships,
		Transaction:  transactions,
		Enrollment:   newEnrollmentService(repo, students, resolver, memberships, transactions, notifier, deps.PayOS, logger),
		Attendance:   newAttendanceService(repo, memberships, loc, logger),
		Export:       NewExportService(repo, loc, logger),
		Report:       NewReportService(repo, cfg.Studio.Name, loc, logger),
		Notification: notifier,
	}
}

// ── 事务辅助 ──

// runInTx 在同一个数据库事务中执行 fn，fn 返回错误或 panic 时回滚
// 未注入 *gorm.DB（单元测试中使用 mock 仓储）时 BeginTx 返回 nil，fn 直接在原仓储上执行
func runInTx(ctx context.Context, repo *repository.Repository, logger *zap.Logger, fn func(txRepo *repository.Repository) error) error {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		logger.Error("开启事务失败", zap.Error(err))
		return pkgerrors.Store("tx.begin", err)
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			logger.Error("提交事务失败", zap.Error(err))
			return pkgerrors.Store("tx.commit", err)
		}
	}
	return nil
}

// ── 日期辅助 ──

// localDay 返回 t 在工作室时区下的自然日零点
func localDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// calendarDate 将工作室时区的自然日编码为 UTC 零点，用于 DATE 列
func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseLocalDate 按工作室时区解析 YYYY-MM-DD
func parseLocalDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, loc)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }
