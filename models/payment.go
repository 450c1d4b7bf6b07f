package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the settled side of an order. OrderId is unique: the same logical
// settlement can arrive webhook-first or poll-first, so writes are upserts
// keyed by order id, never inserts.
type Payment struct {
	ID        int             `gorm:"primary_key" json:"id"`
	OrderId   string          `gorm:"size:36;not null;unique" json:"order_id"`
	Provider  string          `gorm:"size:50;not null;default:paystack" json:"provider"`
	Reference string          `gorm:"size:100;not null;uniqueIndex" json:"reference"`
	Status    PaymentStatus   `gorm:"size:20;not null" json:"status"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"amount"`
	PaidAt    *time.Time      `json:"paid_at"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
