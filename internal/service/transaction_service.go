package service

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"dance-house/internal/dto"
	"dance-house/internal/model"
	"dance-house/internal/repository"
	pkgerrors "dance-house/pkg/errors"
)

// ── 交易模块业务错误 ──

var (
	ErrTransactionNotFound = errors.New("交易不存在")
	ErrAlreadyProcessed    = errors.New("交易已处理，不能重复操作")
	ErrPackageInactive     = errors.New("套餐已停售")
)

// orderCodeAttempts 订单号冲突时的最大重试次数
const orderCodeAttempts = 3

// TransactionService 支付交易业务接口
type TransactionService interface {
	// MarkCompleted 仅当交易处于 pending 时置为 completed，否则返回 ErrAlreadyProcessed
	MarkCompleted(ctx context.Context, id, processedBy string) error
	// MarkCancelled 仅当交易处于 pending 时置为 cancelled
	MarkCancelled(ctx context.Context, id, processedBy string) error
	CreateCheckout(ctx context.Context, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	GetCheckoutStatus(ctx context.Context, orderCode string) (*dto.CheckoutStatusResponse, error)
	GetByID(ctx context.Context, id string) (*dto.TransactionResponse, error)
	List(ctx context.Context, req *dto.TransactionListRequest) ([]dto.TransactionResponse, int64, error)
}

type transactionService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
	rnd    func(n int64) int64
}

// NewTransactionService 创建 TransactionService 实例
func NewTransactionService(repo *repository.Repository, logger *zap.Logger) TransactionService {
	return newTransactionService(repo, logger)
}

func newTransactionService(repo *repository.Repository, logger *zap.Logger) *transactionService {
	return &transactionService{repo: repo, logger: logger, now: time.Now, rnd: rand.Int63n}
}

func (s *transactionService) bind(repo *repository.Repository) *transactionService {
	c := *s
	c.repo = repo
	return &c
}

// ────────────────────── 状态迁移 ──────────────────────

func (s *transactionService) MarkCompleted(ctx context.Context, id, processedBy string) error {
	return s.transition(ctx, id, model.TransactionStatusCompleted, processedBy)
}

func (s *transactionService) MarkCancelled(ctx context.Context, id, processedBy string) error {
	return s.transition(ctx, id, model.TransactionStatusCancelled, processedBy)
}

// transition 单条条件更新完成 pending → to；未命中时回读区分不存在与已处理
func (s *transactionService) transition(ctx context.Context, id, to, processedBy string) error {
	err := s.repo.Transaction.TransitionStatus(ctx, id, model.TransactionStatusPending, to, processedBy, s.now())
	if err == nil {
		s.logger.Info("交易状态变更",
			zap.String("transaction_id", id),
			zap.String("status", to),
			zap.String("processed_by", processedBy),
		)
		return nil
	}
	if !errors.Is(err, pkgerrors.ErrConditionNotMet) {
		s.logger.Error("更新交易状态失败", zap.String("transaction_id", id), zap.Error(err))
		return pkgerrors.Store("transaction.transition", err)
	}

	txn, err := s.repo.Transaction.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTransactionNotFound
		}
		return pkgerrors.Store("transaction.get", err)
	}
	s.logger.Warn("交易已处理，忽略重复操作",
		zap.String("transaction_id", id),
		zap.String("status", txn.Status),
		zap.String("requested", to),
	)
	return ErrAlreadyProcessed
}

// ────────────────────── CreateCheckout ──────────────────────

func (s *transactionService) CreateCheckout(ctx context.Context, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	// 1. 校验套餐
	pkg, err := s.repo.Package.GetByID(ctx, req.PackageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPackageNotFound
		}
		s.logger.Error("查询套餐失败", zap.String("package_id", req.PackageID), zap.Error(err))
		return nil, pkgerrors.Store("package.get", err)
	}
	if !pkg.IsActive {
		return nil, ErrPackageInactive
	}

	phone := NormalizePhone(req.CustomerPhone)
	if phone == "" {
		return nil, ErrPhoneRequired
	}
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, ErrNameRequired
	}

	gateway := req.PaymentGateway
	if gateway == "" {
		gateway = model.GatewayBankTransfer
	}

	// 2. 套餐条款快照写入 metadata
	metadata := datatypes.JSONMap{
		"package_name":   pkg.Name,
		"total_sessions": pkg.TotalSessions,
	}
	if pkg.DurationDays != nil {
		metadata["duration_days"] = *pkg.DurationDays
	}

	txn := &model.Transaction{
		PackageID:      &pkg.PackageID,
		CustomerName:   name,
		CustomerPhone:  phone,
		CustomerEmail:  normalizeEmail(req.CustomerEmail),
		Amount:         pkg.Price,
		PaymentGateway: gateway,
		Status:         model.TransactionStatusPending,
		Metadata:       metadata,
	}

	// 3. 生成订单号，唯一冲突时重试
	for attempt := 1; ; attempt++ {
		txn.OrderCode = s.newOrderCode()
		err = s.repo.Transaction.Create(ctx, txn)
		if err == nil {
			break
		}
		if !errors.Is(err, pkgerrors.ErrDuplicateKey) || attempt >= orderCodeAttempts {
			s.logger.Error("创建交易失败", zap.String("order_code", txn.OrderCode), zap.Error(err))
			return nil, pkgerrors.Store("transaction.create", err)
		}
		s.logger.Warn("订单号冲突，重新生成", zap.String("order_code", txn.OrderCode), zap.Int("attempt", attempt))
	}

	s.logger.Info("创建订单",
		zap.String("transaction_id", txn.TransactionID),
		zap.String("order_code", txn.OrderCode),
		zap.String("package", pkg.Name),
		zap.String("gateway", gateway),
	)

	return &dto.CheckoutResponse{
		TransactionID:  txn.TransactionID,
		OrderCode:      txn.OrderCode,
		PackageName:    pkg.Name,
		Amount:         txn.Amount,
		PaymentGateway: gateway,
		Status:         txn.Status,
	}, nil
}

// newOrderCode 数字订单号：秒级时间戳 × 1000 + 三位随机数，兼容 PayOS 的整型 orderCode
func (s *transactionService) newOrderCode() string {
	return strconv.FormatInt(s.now().Unix()*1000+s.rnd(1000), 10)
}

// ────────────────────── 查询 ──────────────────────

func (s *transactionService) GetCheckoutStatus(ctx context.Context, orderCode string) (*dto.CheckoutStatusResponse, error) {
	txn, err := s.repo.Transaction.GetByOrderCode(ctx, orderCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		s.logger.Error("按订单号查询交易失败", zap.String("order_code", orderCode), zap.Error(err))
		return nil, pkgerrors.Store("transaction.get_by_order_code", err)
	}
	return &dto.CheckoutStatusResponse{
		OrderCode:   txn.OrderCode,
		PackageName: txn.MetadataPackageName(),
		Amount:      txn.Amount,
		Status:      txn.Status,
	}, nil
}

func (s *transactionService) GetByID(ctx context.Context, id string) (*dto.TransactionResponse, error) {
	txn, err := s.repo.Transaction.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		s.logger.Error("查询交易失败", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.Store("transaction.get", err)
	}
	resp := toTransactionResponse(txn)
	return &resp, nil
}

func (s *transactionService) List(ctx context.Context, req *dto.TransactionListRequest) ([]dto.TransactionResponse, int64, error) {
	filters := &repository.ListFilters{
		Status:    req.Status,
		StudentID: req.StudentID,
		Keyword:   strings.TrimSpace(req.Keyword),
	}
	list, total, err := s.repo.Transaction.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出交易失败", zap.Error(err))
		return nil, 0, pkgerrors.Store("transaction.list", err)
	}

	result := make([]dto.TransactionResponse, 0, len(list))
	for i := range list {
		result = append(result, toTransactionResponse(&list[i]))
	}
	return result, total, nil
}

func toTransactionResponse(t *model.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:             t.TransactionID,
		OrderCode:      t.OrderCode,
		StudentID:      t.StudentID,
		PackageID:      t.PackageID,
		CustomerName:   t.CustomerName,
		CustomerPhone:  t.CustomerPhone,
		CustomerEmail:  t.CustomerEmail,
		Amount:         t.Amount,
		PaymentGateway: t.PaymentGateway,
		Status:         t.Status,
		Metadata:       t.Metadata,
		ProcessedBy:    t.ProcessedBy,
		CreatedAt:      formatTime(t.CreatedAt),
	}
	if resp.Metadata == nil {
		resp.Metadata = map[string]interface{}{}
	}
	if t.ProcessedAt != nil {
		resp.ProcessedAt = strPtr(formatTime(*t.ProcessedAt))
	}
	return resp
}
