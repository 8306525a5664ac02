package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dance-house/internal/dto"
	"dance-house/internal/model"
	pkgerrors "dance-house/pkg/errors"
)

var transactionNow = time.Date(2024, 5, 1, 8, 0, 0, 0, testLoc)

// ── CreateCheckout 测试 ──

func TestTransactionService_CreateCheckout_Success(t *testing.T) {
	env := newTestEnv(false, transactionNow)
	pkg := env.seedPackage("Tháng (8 buổi)", 8, intPtr(30), 600000, true)

	resp, err := env.transactionSvc.CreateCheckout(context.Background(), &dto.CheckoutRequest{
		PackageID:     pkg.PackageID,
		CustomerName:  " Phạm Dung ",
		CustomerPhone: "0903 456 789",
	})
	if err != nil {
		t.Fatalf("CreateCheckout 应成功: %v", err)
	}

	wantCode := strconv.FormatInt(transactionNow.Unix()*1000+42, 10)
	if resp.OrderCode != wantCode {
		t.Errorf("期望订单号 %s，实际 %s", wantCode, resp.OrderCode)
	}
	if resp.Status != model.TransactionStatusPending || resp.PaymentGateway != model.GatewayBankTransfer {
		t.Errorf("期望 pending / bank_transfer，实际 %s / %s", resp.Status, resp.PaymentGateway)
	}
	if !resp.Amount.Equal(pkg.Price) {
		t.Errorf("期望金额 %s，实际 %s", pkg.Price, resp.Amount)
	}

	txn, _ := env.transactions.GetByID(context.Background(), resp.TransactionID)
	if txn.CustomerPhone != "0903456789" || txn.CustomerName != "Phạm Dung" {
		t.Errorf("客户信息未规范化: %s / %s", txn.CustomerName, txn.CustomerPhone)
	}
	if txn.MetadataPackageName() != "Tháng (8 buổi)" {
		t.Errorf("metadata 应记录套餐名，实际 %v", txn.Metadata)
	}
	if txn.Metadata["duration_days"] != 30 {
		t.Errorf("metadata 应记录有效期，实际 %v", txn.Metadata["duration_days"])
	}
}

func TestTransactionService_CreateCheckout_PackageChecks(t *testing.T) {
	env := newTestEnv(false, transactionNow)
	inactive := env.seedPackage("Cũ", 8, intPtr(30), 100, false)
	ctx := context.Background()

	_, err := env.transactionSvc.CreateCheckout(ctx, &dto.CheckoutRequest{PackageID: "missing", CustomerName: "A", CustomerPhone: "0901234567"})
	if !errors.Is(err, ErrPackageNotFound) {
		t.Errorf("期望 ErrPackageNotFound，实际: %v", err)
	}
	_, err = env.transactionSvc.CreateCheckout(ctx, &dto.CheckoutRequest{PackageID: inactive.PackageID, CustomerName: "A", CustomerPhone: "0901234567"})
	if !errors.Is(err, ErrPackageInactive) {
		t.Errorf("期望 ErrPackageInactive，实际: %v", err)
	}
}

func TestTransactionService_CreateCheckout_OrderCodeRetry(t *testing.T) {
	env := newTestEnv(false, transactionNow)
	pkg := env.seedPackage("Tháng (8 buổi)", 8, intPtr(30), 600000, true)
	req := &dto.CheckoutRequest{PackageID: pkg.PackageID, CustomerName: "A", CustomerPhone: "0901234567"}

	env.transactions.dupOrderCodes = orderCodeAttempts - 1
	if _, err := env.transactionSvc.CreateCheckout(context.Background(), req); err != nil {
		t.Fatalf("冲突次数未超过上限时应成功: %v", err)
	}

	env.transactions.dupOrderCodes = orderCodeAttempts
	_, err := env.transactionSvc.CreateCheckout(context.Background(), req)
	if !errors.Is(err, pkgerrors.ErrDuplicateKey) || !pkgerrors.IsStoreError(err) {
		t.Errorf("超过重试上限应返回 StoreError(ErrDuplicateKey)，实际: %v", err)
	}
}

// ── 状态迁移测试 ──

func TestTransactionService_MarkCompleted_Once(t *testing.T) {
	env := newTestEnv(false, transactionNow)
	txn := env.seedPendingTransaction("0901234567", "An", nil, nil, 600000)
	ctx := context.Background()

	if err := env.transactionSvc.MarkCompleted(ctx, txn.TransactionID, "admin-001"); err != nil {
		t.Fatalf("MarkCompleted 应成功: %v", err)
	}
	if err := env.transactionSvc.MarkCompleted(ctx, txn.TransactionID, "admin-002"); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("重复审核期望 ErrAlreadyProcessed，实际: %v", err)
	}
	if err := env.transactionSvc.MarkCancelled(ctx, txn.TransactionID, "admin-002"); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("已完成交易不能取消，实际: %v", err)
	}

	got, _ := env.transactions.GetByID(ctx, txn.TransactionID)
	if got.Status != model.TransactionStatusCompleted || got.ProcessedBy == nil || *got.ProcessedBy != "admin-001" {
		t.Errorf("期望 completed / admin-001，实际 %s / %v", got.Status, got.ProcessedBy)
	}
	if got.ProcessedAt == nil || !got.ProcessedAt.Equal(transactionNow) {
		t.Errorf("期望处理时间 %v，实际 %v", transactionNow, got.ProcessedAt)
	}
}

func TestTransactionService_MarkCompleted_Concurrent(t *testing.T) {
	env := newTestEnv(false, transactionNow)
	txn := env.seedPendingTransaction("0901234567", "An", nil, nil, 600000)

	var success, processed int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := env.transactionSvc.MarkCompleted(context.Background(), txn.TransactionID, "admin")
			switch {
			case err == nil:
				atomic.AddInt32(&success, 1)
			case errors.Is(err, ErrAlreadyProcessed):
				atomic.AddInt32(&processed, 1)
			}
		}()
	}
	wg.Wait()

	if success != 1 || processed != 7 {
		t.Errorf("期望 1 次成功 / 7 次已处理，实际 %d / %d", success, processed)
	}
}

func TestTransactionService_MarkCompleted_NotFound(t *testing.T) {
	env := newTestEnv(false, transactionNow)

	if err := env.transactionSvc.MarkCompleted(context.Background(), "missing", "admin"); !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("期望 ErrTransactionNotFound，实际: %v", err)
	}
}

// ── 查询测试 ──

func TestTransactionService_GetCheckoutStatus(t *testing.T) {
	env := newTestEnv(false, transactionNow)
	txn := env.seedPendingTransaction("0901234567", "An", nil, map[string]interface{}{"package_name": "10 buổi"}, 500000)

	resp, err := env.transactionSvc.GetCheckoutStatus(context.Background(), txn.OrderCode)
	if err != nil {
		t.Fatalf("GetCheckoutStatus 应成功: %v", err)
	}
	if resp.PackageName != "10 buổi" || resp.Status != model.TransactionStatusPending {
		t.Errorf("期望 10 buổi / pending，实际 %s / %s", resp.PackageName, resp.Status)
	}

	if _, err := env.transactionSvc.GetCheckoutStatus(context.Background(), "0"); !errors.Is(err, ErrTransactionNotFound) {
		t.Errorf("期望 ErrTransactionNotFound，实际: %v", err)
	}
}

func TestTransactionService_List_ByStatus(t *testing.T) {
	env := newTestEnv(false, transactionNow)
	a := env.seedPendingTransaction("0901234567", "An", nil, nil, 1)
	env.seedPendingTransaction("0901234568", "Bình", nil, nil, 1)
	_ = env.transactionSvc.MarkCancelled(context.Background(), a.TransactionID, "admin")

	list, total, err := env.transactionSvc.List(context.Background(), &dto.TransactionListRequest{Status: model.TransactionStatusPending})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || list[0].CustomerName != "Bình" {
		t.Errorf("期望只返回 Bình 的 pending 交易，实际 total=%d", total)
	}
	if list[0].Metadata == nil {
		t.Error("metadata 不应为 nil")
	}
}
