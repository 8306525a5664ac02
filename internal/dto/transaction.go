package dto

import "github.com/shopspring/decimal"

// ── 支付交易模块 DTO ──

// CheckoutRequest 公开下单请求
type CheckoutRequest struct {
	PackageID      string  `json:"package_id"      binding:"required,uuid"`
	CustomerName   string  `json:"customer_name"   binding:"required,max=100"`
	CustomerPhone  string  `json:"customer_phone"  binding:"required,vnphone"`
	CustomerEmail  *string `json:"customer_email"  binding:"omitempty,email"`
	PaymentGateway string  `json:"payment_gateway" binding:"omitempty,oneof=bank_transfer payos"`
}

// CheckoutResponse 下单结果（客户凭 order_code 转账对账）
type CheckoutResponse struct {
	TransactionID  string          `json:"transaction_id"`
	OrderCode      string          `json:"order_code"`
	PackageName    string          `json:"package_name"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentGateway string          `json:"payment_gateway"`
	Status         string          `json:"status"`
}

// CheckoutStatusResponse 公开查询订单状态
type CheckoutStatusResponse struct {
	OrderCode   string          `json:"order_code"`
	PackageName string          `json:"package_name"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
}

// TransactionListRequest 交易列表查询参数
type TransactionListRequest struct {
	PaginationRequest
	Status    string `form:"status"     binding:"omitempty,oneof=pending completed cancelled"`
	StudentID string `form:"student_id" binding:"omitempty,uuid"`
	Keyword   string `form:"keyword"    binding:"omitempty,max=50"`
}

// TransactionResponse 交易信息
type TransactionResponse struct {
	ID             string                 `json:"id"`
	OrderCode      string                 `json:"order_code"`
	StudentID      *string                `json:"student_id,omitempty"`
	PackageID      *string                `json:"package_id,omitempty"`
	CustomerName   string                 `json:"customer_name"`
	CustomerPhone  string                 `json:"customer_phone"`
	CustomerEmail  *string                `json:"customer_email,omitempty"`
	Amount         decimal.Decimal        `json:"amount"`
	PaymentGateway string                 `json:"payment_gateway"`
	Status         string                 `json:"status"`
	Metadata       map[string]interface{} `json:"metadata"`
	ProcessedAt    *string                `json:"processed_at,omitempty"`
	ProcessedBy    *string                `json:"processed_by,omitempty"`
	CreatedAt      string                 `json:"created_at"`
}

// ApprovePaymentResponse 审核通过结果
type ApprovePaymentResponse struct {
	TransactionID  string `json:"transaction_id"`
	MembershipID   string `json:"membership_id"`
	StudentID      string `json:"student_id"`
	CreatedStudent bool   `json:"created_student"`
	PackageName    string `json:"package_name"`
	Defaulted      bool   `json:"defaulted_package"`
}

// WebhookAck 网关回调应答
type WebhookAck struct {
	OrderCode string `json:"order_code"`
	Result    string `json:"result"` // approved | cancelled | ignored
}
