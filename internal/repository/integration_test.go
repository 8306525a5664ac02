//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dance-house/internal/model"
	"dance-house/internal/repository"
	"dance-house/pkg/database"
	pkgerrors "dance-house/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=dance_house password=dance_house_password dbname=dance_house_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 部分唯一索引与 CHECK 约束只存在于迁移脚本中，不能用 AutoMigrate
	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func uniquePhone() string {
	return fmt.Sprintf("09%08d", time.Now().UnixNano()%100000000)
}

// setupMembership 创建学员与会员卡，返回清理函数
func setupMembership(t *testing.T, total, remaining int) (*model.Student, *model.Membership, func()) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewRepository(testDB)

	student := &model.Student{
		FullName: "Test Student",
		Phone:    uniquePhone(),
		Status:   model.StudentStatusActive,
		JoinDate: time.Now(),
	}
	if err := repo.Student.Create(ctx, student); err != nil {
		t.Fatalf("创建学员失败: %v", err)
	}

	now := time.Now().UTC()
	m := &model.Membership{
		StudentID:         student.StudentID,
		PackageName:       "Tháng (8 buổi)",
		TotalSessions:     total,
		RemainingSessions: remaining,
		StartDate:         now,
		EndDate:           now.AddDate(0, 0, 30),
		Status:            model.MembershipStatusActive,
	}
	if err := repo.Membership.Create(ctx, m); err != nil {
		t.Fatalf("创建会员卡失败: %v", err)
	}

	cleanup := func() {
		testDB.Exec("DELETE FROM attendance WHERE student_id = ?", student.StudentID)
		testDB.Exec("DELETE FROM memberships WHERE student_id = ?", student.StudentID)
		testDB.Exec("DELETE FROM students WHERE student_id = ?", student.StudentID)
	}
	return student, m, cleanup
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction Rollback / Commit
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	_, m, cleanup := setupMembership(t, 8, 8)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	if err := repo.WithTx(tx).Membership.Deduct(ctx, m.MembershipID); err != nil {
		tx.Rollback()
		t.Fatalf("事务内扣课失败: %v", err)
	}
	tx.Rollback()

	found, err := repo.Membership.GetByID(ctx, m.MembershipID)
	if err != nil {
		t.Fatalf("查询会员卡失败: %v", err)
	}
	if found.RemainingSessions != 8 {
		t.Errorf("回滚后剩余课时应为 8，实际=%d", found.RemainingSessions)
	}
}

func TestTransaction_Commit(t *testing.T) {
	_, m, cleanup := setupMembership(t, 8, 8)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx 失败: %v", err)
	}
	if err := repo.WithTx(tx).Membership.Deduct(ctx, m.MembershipID); err != nil {
		tx.Rollback()
		t.Fatalf("事务内扣课失败: %v", err)
	}
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("Commit 失败: %v", err)
	}

	found, err := repo.Membership.GetByID(ctx, m.MembershipID)
	if err != nil {
		t.Fatalf("查询会员卡失败: %v", err)
	}
	if found.RemainingSessions != 7 {
		t.Errorf("提交后剩余课时应为 7，实际=%d", found.RemainingSessions)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: 条件更新与并发
// ═══════════════════════════════════════════════════════════

func TestMembership_ConcurrentDeductLastSession(t *testing.T) {
	_, m, cleanup := setupMembership(t, 8, 1)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	const workers = 10
	var wg sync.WaitGroup
	var success, rejected int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Membership.Deduct(ctx, m.MembershipID)
			switch {
			case err == nil:
				atomic.AddInt32(&success, 1)
			case errors.Is(err, pkgerrors.ErrConditionNotMet):
				atomic.AddInt32(&rejected, 1)
			default:
				t.Errorf("意外错误: %v", err)
			}
		}()
	}
	wg.Wait()

	if success != 1 || rejected != workers-1 {
		t.Errorf("期望 1 次成功 %d 次拒绝，实际 success=%d rejected=%d", workers-1, success, rejected)
	}

	found, _ := repo.Membership.GetByID(ctx, m.MembershipID)
	if found.RemainingSessions != 0 {
		t.Errorf("剩余课时应为 0，实际=%d", found.RemainingSessions)
	}
}

func TestMembership_CreditAtCapacity(t *testing.T) {
	_, m, cleanup := setupMembership(t, 8, 8)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	err := repo.Membership.Credit(context.Background(), m.MembershipID)
	if !errors.Is(err, pkgerrors.ErrConditionNotMet) {
		t.Errorf("满额返还应返回 ErrConditionNotMet，实际=%v", err)
	}
}

func TestMembership_ExpireLapsedKeepsExhaustedActive(t *testing.T) {
	st, m, cleanup := setupMembership(t, 8, 0)
	defer cleanup()

	ctx := context.Background()
	repo := repository.NewRepository(testDB)

	// 到期日当天仍可用，课时用尽的卡不被扫描改写
	if _, err := repo.Membership.ExpireLapsed(ctx, m.EndDate.Add(12*time.Hour)); err != nil {
		t.Fatalf("ExpireLapsed 失败: %v", err)
	}
	got, _ := repo.Membership.GetByID(ctx, m.MembershipID)
	if got.Status != model.MembershipStatusActive {
		t.Fatalf("课时用尽不应落库为 Expired，实际=%s", got.Status)
	}

	if err := repo.Membership.Credit(ctx, m.MembershipID); err != nil {
		t.Fatalf("返还失败: %v", err)
	}
	if _, err := repo.Membership.FindUsableForStudent(ctx, st.StudentID, m.EndDate.Add(12*time.Hour)); err != nil {
		t.Errorf("返还后到期日当天应可用: %v", err)
	}

	// 次日零点起过期
	if _, err := repo.Membership.ExpireLapsed(ctx, m.EndDate.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("ExpireLapsed 失败: %v", err)
	}
	got, _ = repo.Membership.GetByID(ctx, m.MembershipID)
	if got.Status != model.MembershipStatusExpired {
		t.Errorf("过到期日后应为 Expired，实际=%s", got.Status)
	}
}

func TestMembership_ListExpiring(t *testing.T) {
	st, m, cleanup := setupMembership(t, 8, 5)
	defer cleanup()

	ctx := context.Background()
	repo := repository.NewRepository(testDB)

	// 到期日前 3 天：7 天窗口内可见，2 天窗口外不可见
	now := m.EndDate.AddDate(0, 0, -3)
	list, err := repo.Membership.ListExpiring(ctx, now, now.AddDate(0, 0, 8))
	if err != nil {
		t.Fatalf("ListExpiring 失败: %v", err)
	}
	if !containsMembership(list, m.MembershipID) {
		t.Errorf("7 天窗口内应包含会员卡 %s", m.MembershipID)
	}
	for _, item := range list {
		if item.MembershipID == m.MembershipID && (item.Student == nil || item.Student.StudentID != st.StudentID) {
			t.Errorf("应预加载学员，实际=%v", item.Student)
		}
	}

	list, err = repo.Membership.ListExpiring(ctx, now, now.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("ListExpiring 失败: %v", err)
	}
	if containsMembership(list, m.MembershipID) {
		t.Errorf("2 天窗口外不应包含会员卡 %s", m.MembershipID)
	}
}

func containsMembership(list []model.Membership, id string) bool {
	for _, item := range list {
		if item.MembershipID == id {
			return true
		}
	}
	return false
}

func TestTransaction_MonthlyRevenue(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Skipf("缺少时区数据: %v", err)
	}
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	// 使用远离真实数据的年份
	add := func(status string, amount int64, processed time.Time) {
		txn := &model.Transaction{
			OrderCode:      fmt.Sprintf("%d", time.Now().UnixNano()),
			CustomerName:   "Revenue Tester",
			CustomerPhone:  uniquePhone(),
			Amount:         decimal.NewFromInt(amount),
			PaymentGateway: model.GatewayBankTransfer,
			Status:         status,
			ProcessedAt:    &processed,
		}
		if err := repo.Transaction.Create(ctx, txn); err != nil {
			t.Fatalf("创建交易失败: %v", err)
		}
		t.Cleanup(func() { testDB.Exec("DELETE FROM transactions WHERE transaction_id = ?", txn.TransactionID) })
	}
	// 1999-02-01 00:30 +07 计入二月
	add(model.TransactionStatusCompleted, 600000, time.Date(1999, 1, 31, 17, 30, 0, 0, time.UTC))
	add(model.TransactionStatusCompleted, 400000, time.Date(1999, 2, 10, 3, 0, 0, 0, time.UTC))
	add(model.TransactionStatusCancelled, 900000, time.Date(1999, 2, 11, 3, 0, 0, 0, time.UTC))

	from := time.Date(1999, 1, 1, 0, 0, 0, 0, loc)
	to := time.Date(1999, 3, 1, 0, 0, 0, 0, loc)
	rows, err := repo.Transaction.MonthlyRevenue(ctx, from, to, loc)
	if err != nil {
		t.Fatalf("MonthlyRevenue 失败: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("期望只有二月有收入，实际=%+v", rows)
	}
	got := rows[0]
	if got.Year != 1999 || got.Month != 2 || !got.TotalRevenue.Equal(decimal.NewFromInt(1000000)) || got.TransactionCount != 2 {
		t.Errorf("期望 1999-02 1000000/2，实际=%+v", got)
	}
}

func TestTransaction_ConcurrentApproveOnlyOnce(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	txn := &model.Transaction{
		OrderCode:      fmt.Sprintf("%d", time.Now().UnixNano()),
		CustomerName:   "Race Tester",
		CustomerPhone:  uniquePhone(),
		PaymentGateway: model.GatewayBankTransfer,
		Status:         model.TransactionStatusPending,
	}
	if err := repo.Transaction.Create(ctx, txn); err != nil {
		t.Fatalf("创建交易失败: %v", err)
	}
	defer testDB.Exec("DELETE FROM transactions WHERE transaction_id = ?", txn.TransactionID)

	var wg sync.WaitGroup
	var success int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Transaction.TransitionStatus(ctx, txn.TransactionID,
				model.TransactionStatusPending, model.TransactionStatusCompleted, "tester", time.Now())
			if err == nil {
				atomic.AddInt32(&success, 1)
			}
		}()
	}
	wg.Wait()

	if success != 1 {
		t.Errorf("状态迁移应只成功一次，实际=%d", success)
	}
}

func TestStudent_CreateIfPhoneAbsent(t *testing.T) {
	repo := repository.NewRepository(testDB)
	ctx := context.Background()
	phone := uniquePhone()
	defer testDB.Exec("DELETE FROM students WHERE phone = ?", phone)

	first := &model.Student{FullName: "A", Phone: phone, Status: model.StudentStatusActive, JoinDate: time.Now()}
	created, err := repo.Student.CreateIfPhoneAbsent(ctx, first)
	if err != nil || !created {
		t.Fatalf("首次插入应成功: created=%v err=%v", created, err)
	}

	second := &model.Student{FullName: "B", Phone: phone, Status: model.StudentStatusActive, JoinDate: time.Now()}
	created, err = repo.Student.CreateIfPhoneAbsent(ctx, second)
	if err != nil {
		t.Fatalf("重复插入不应报错: %v", err)
	}
	if created {
		t.Error("同手机号第二次插入应被忽略")
	}

	found, err := repo.Student.GetByPhone(ctx, phone)
	if err != nil {
		t.Fatalf("按手机号查询失败: %v", err)
	}
	if found.FullName != "A" {
		t.Errorf("应保留首条记录，实际=%s", found.FullName)
	}
}

func TestAttendance_DuplicatePresentRejected(t *testing.T) {
	student, m, cleanup := setupMembership(t, 8, 8)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	class := &model.DanceClass{Name: "Hip Hop Basic", DayOfWeek: 1, StartTime: "18:00", EndTime: "19:30", Capacity: 20, IsActive: true}
	if err := repo.DanceClass.Create(ctx, class); err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}
	defer testDB.Exec("DELETE FROM dance_classes WHERE class_id = ?", class.ClassID)

	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	newRecord := func() *model.Attendance {
		return &model.Attendance{
			StudentID:    student.StudentID,
			ClassID:      class.ClassID,
			MembershipID: &m.MembershipID,
			Date:         date,
			Status:       model.AttendanceStatusPresent,
			CheckInTime:  time.Now(),
		}
	}

	first := newRecord()
	ok, err := repo.Attendance.CreateIfAbsent(ctx, first)
	if err != nil || !ok {
		t.Fatalf("首次签到应成功: ok=%v err=%v", ok, err)
	}

	ok, err = repo.Attendance.CreateIfAbsent(ctx, newRecord())
	if err != nil {
		t.Fatalf("重复签到不应报错: %v", err)
	}
	if ok {
		t.Error("同日同课重复签到应被拒绝")
	}

	// 取消后可以重新签到
	if err := repo.Attendance.Cancel(ctx, first.AttendanceID, uuid.NewString()); err != nil {
		t.Fatalf("取消签到失败: %v", err)
	}
	ok, err = repo.Attendance.CreateIfAbsent(ctx, newRecord())
	if err != nil || !ok {
		t.Errorf("取消后重新签到应成功: ok=%v err=%v", ok, err)
	}
}
