package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Transaction 支付交易，对应 transactions
// 状态只允许 pending → completed | cancelled 一次
type Transaction struct {
	TransactionID  string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"transaction_id"`
	OrderCode      string            `gorm:"type:varchar(32);not null"                      json:"order_code"`
	StudentID      *string           `gorm:"type:uuid"                                      json:"student_id,omitempty"`
	PackageID      *string           `gorm:"type:uuid"                                      json:"package_id,omitempty"`
	CustomerName   string            `gorm:"type:varchar(100);not null"                     json:"customer_name"`
	CustomerPhone  string            `gorm:"type:varchar(20);not null"                      json:"customer_phone"`
	CustomerEmail  *string           `gorm:"type:varchar(255)"                              json:"customer_email,omitempty"`
	Amount         decimal.Decimal   `gorm:"type:numeric(12,2);not null;default:0"          json:"amount"`
	PaymentGateway string            `gorm:"type:varchar(20);not null"                      json:"payment_gateway"`
	Status         string            `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"               json:"metadata"`
	ProcessedAt    *time.Time        `json:"processed_at,omitempty"`
	ProcessedBy    *string           `gorm:"type:varchar(64)"                               json:"processed_by,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`
}

// TableName 指定表名
func (Transaction) TableName() string { return "transactions" }

// MetadataPackageName 取 metadata 中的 package_name
func (t *Transaction) MetadataPackageName() string {
	if t.Metadata == nil {
		return ""
	}
	if v, ok := t.Metadata["package_name"].(string); ok {
		return v
	}
	return ""
}
