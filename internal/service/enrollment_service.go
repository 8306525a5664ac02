package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dance-house/internal/dto"
	"dance-house/internal/model"
	"dance-house/internal/repository"
	pkgerrors "dance-house/pkg/errors"
	"dance-house/pkg/payos"
)

// ── 报名模块业务错误 ──

var (
	ErrGatewayNotConfigured = errors.New("未配置支付网关")
	ErrAmountMismatch       = errors.New("回调金额与订单金额不一致")
)

// gatewayOperator 网关回调触发的状态变更记录的操作人
const gatewayOperator = "gateway:payos"

// EnrollmentService 报名编排：审核支付 → 学员建档 → 解析套餐 → 签发会员卡
type EnrollmentService interface {
	// ApprovePayment 在单个数据库事务中完成交易置为 completed、学员建档与签发会员卡
	ApprovePayment(ctx context.Context, transactionID, approvedBy string) (*dto.ApprovePaymentResponse, error)
	CancelPayment(ctx context.Context, transactionID, cancelledBy string) error
	// HandleGatewayWebhook 校验 PayOS 回调签名并按支付结果审核或取消交易，重复回调视为成功
	HandleGatewayWebhook(ctx context.Context, body []byte) (*dto.WebhookAck, error)
}

type enrollmentService struct {
	repo         *repository.Repository
	students     *studentService
	resolver     *packageResolver
	memberships  *membershipService
	transactions *transactionService
	notifier     NotificationService
	verifier     *payos.Verifier
	logger       *zap.Logger
	now          func() time.Time
}

func newEnrollmentService(
	repo *repository.Repository,
	students *studentService,
	resolver *packageResolver,
	memberships *membershipService,
	transactions *transactionService,
	notifier NotificationService,
	verifier *payos.Verifier,
	logger *zap.Logger,
) *enrollmentService {
	return &enrollmentService{
		repo:         repo,
		students:     students,
		resolver:     resolver,
		memberships:  memberships,
		transactions: transactions,
		notifier:     notifier,
		verifier:     verifier,
		logger:       logger,
		now:          time.Now,
	}
}

// ────────────────────── ApprovePayment ──────────────────────

func (s *enrollmentService) ApprovePayment(ctx context.Context, transactionID, approvedBy string) (*dto.ApprovePaymentResponse, error) {
	var (
		result  dto.ApprovePaymentResponse
		txn     *model.Transaction
		student *model.Student
		issued  *model.Membership
	)

	err := runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		transactions := s.transactions.bind(txRepo)
		students := s.students.bind(txRepo)
		resolver := s.resolver.bind(txRepo)
		memberships := s.memberships.bind(txRepo)

		// 1. pending → completed；已处理则整体中止，不会重复签发
		if err := transactions.MarkCompleted(ctx, transactionID, approvedBy); err != nil {
			return err
		}

		var err error
		txn, err = txRepo.Transaction.GetByID(ctx, transactionID)
		if err != nil {
			return pkgerrors.Store("transaction.get", err)
		}

		// 2. 确定学员：已关联则沿用，否则按手机号查找或建档并回写到交易
		studentID := ""
		created := false
		if txn.StudentID != nil && *txn.StudentID != "" {
			studentID = *txn.StudentID
		} else {
			studentID, created, err = students.ResolveOrCreate(ctx, txn.CustomerPhone, txn.CustomerName, txn.CustomerEmail)
			if err != nil {
				return err
			}
			if err := txRepo.Transaction.SetStudent(ctx, txn.TransactionID, studentID); err != nil {
				return pkgerrors.Store("transaction.set_student", err)
			}
		}
		student, err = txRepo.Student.GetByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrStudentNotFound
			}
			return pkgerrors.Store("student.get", err)
		}

		// 3. 解析套餐：优先 package_id，其次 metadata 中的套餐名
		ref := PackageRef{PackageName: txn.MetadataPackageName()}
		if txn.PackageID != nil {
			ref.PackageID = *txn.PackageID
		}
		resolved, err := resolver.Resolve(ctx, ref)
		if err != nil {
			return err
		}

		// 4. 签发会员卡
		issued, err = memberships.Issue(ctx, studentID, resolved, s.now(), &txn.TransactionID)
		if err != nil {
			return err
		}

		result = dto.ApprovePaymentResponse{
			TransactionID:  txn.TransactionID,
			MembershipID:   issued.MembershipID,
			StudentID:      studentID,
			CreatedStudent: created,
			PackageName:    resolved.PackageName,
			Defaulted:      resolved.Defaulted,
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrAlreadyProcessed) && !errors.Is(err, ErrTransactionNotFound) {
			s.logger.Error("审核支付失败，已回滚",
				zap.String("transaction_id", transactionID),
				zap.String("approved_by", approvedBy),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.logger.Info("审核支付完成",
		zap.String("transaction_id", transactionID),
		zap.String("membership_id", result.MembershipID),
		zap.String("student_id", result.StudentID),
		zap.Bool("created_student", result.CreatedStudent),
	)

	// 5. 提交后通知；失败只记录日志
	s.notifyEnrollment(ctx, txn, student, issued)

	return &result, nil
}

func (s *enrollmentService) notifyEnrollment(ctx context.Context, txn *model.Transaction, student *model.Student, m *model.Membership) {
	if s.notifier == nil {
		return
	}
	email := txn.CustomerEmail
	if email == nil {
		email = student.Email
	}
	if email == nil {
		return
	}
	notice := EnrollmentNotice{
		ToName:        student.FullName,
		ToAddress:     *email,
		OrderCode:     txn.OrderCode,
		Amount:        txn.Amount,
		PackageName:   m.PackageName,
		TotalSessions: m.TotalSessions,
		StartDate:     m.StartDate,
		EndDate:       m.EndDate,
	}
	if err := s.notifier.SendEnrollmentConfirmation(ctx, notice); err != nil {
		s.logger.Warn("发送报名确认邮件失败",
			zap.String("transaction_id", txn.TransactionID),
			zap.String("to", *email),
			zap.Error(err),
		)
	}
}

// ────────────────────── CancelPayment ──────────────────────

func (s *enrollmentService) CancelPayment(ctx context.Context, transactionID, cancelledBy string) error {
	return s.transactions.MarkCancelled(ctx, transactionID, cancelledBy)
}

// ────────────────────── HandleGatewayWebhook ──────────────────────

func (s *enrollmentService) HandleGatewayWebhook(ctx context.Context, body []byte) (*dto.WebhookAck, error) {
	if s.verifier == nil {
		return nil, ErrGatewayNotConfigured
	}

	// 1. 校验签名
	data, err := s.verifier.VerifyWebhook(body)
	if err != nil {
		s.logger.Warn("PayOS 回调校验失败", zap.Error(err))
		return nil, err
	}

	// 2. 定位交易
	orderCode := strconv.FormatInt(data.OrderCode, 10)
	txn, err := s.repo.Transaction.GetByOrderCode(ctx, orderCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("PayOS 回调订单不存在", zap.String("order_code", orderCode))
			return nil, ErrTransactionNotFound
		}
		return nil, pkgerrors.Store("transaction.get_by_order_code", err)
	}

	ack := &dto.WebhookAck{OrderCode: orderCode}

	// 3. 支付成功 → 审核；其余结果 → 取消
	if data.Paid() {
		if !txn.Amount.IsInteger() || txn.Amount.IntPart() != data.Amount {
			s.logger.Error("PayOS 回调金额不一致",
				zap.String("order_code", orderCode),
				zap.String("expected", txn.Amount.String()),
				zap.Int64("actual", data.Amount),
			)
			return nil, ErrAmountMismatch
		}
		_, err = s.ApprovePayment(ctx, txn.TransactionID, gatewayOperator)
		ack.Result = "approved"
	} else {
		err = s.transactions.MarkCancelled(ctx, txn.TransactionID, gatewayOperator)
		ack.Result = "cancelled"
	}

	if errors.Is(err, ErrAlreadyProcessed) {
		ack.Result = "ignored"
		status := s.currentStatus(ctx, txn)
		if data.Paid() && status != model.TransactionStatusCompleted {
			// 客户已付款但交易已被取消，需人工核对退款或补发会员卡
			s.logger.Error("PayOS 支付成功但交易已取消，需人工核对",
				zap.String("order_code", orderCode),
				zap.String("transaction_id", txn.TransactionID),
				zap.String("status", status),
				zap.Int64("amount", data.Amount),
			)
			return ack, nil
		}
		s.logger.Info("PayOS 重复回调，已忽略",
			zap.String("order_code", orderCode),
			zap.String("status", status),
		)
		return ack, nil
	}
	if err != nil {
		return nil, err
	}
	return ack, nil
}

// currentStatus 回读交易当前状态，读取失败时退回回调前的快照
func (s *enrollmentService) currentStatus(ctx context.Context, txn *model.Transaction) string {
	latest, err := s.repo.Transaction.GetByID(ctx, txn.TransactionID)
	if err != nil {
		return txn.Status
	}
	return latest.Status
}
